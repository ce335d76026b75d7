// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/nrdev/rebasekit/pkg/rebase"
)

// StartCmd resolves the three tips and hands them to Init, moving HEAD
// onto the replay base and recording the plan.
type StartCmd struct {
	Branch   string `arg:"" optional:"" default:"HEAD" help:"Branch or commit being rebased"`
	Upstream string `arg:"" optional:"" help:"Commits already in upstream are skipped"`
	Onto     string `name:"onto" help:"Replay onto this commit instead of upstream"`
}

func (c *StartCmd) Run(g *Globals) error {
	r, err := openRepo(g)
	if err != nil {
		return err
	}
	ctx := context.Background()

	branch, err := revparseTip(r.Backend, c.Branch)
	if err != nil {
		return fmt.Errorf("resolve branch %q: %w", c.Branch, err)
	}
	in := &rebase.InitOptions{Branch: branch}
	if c.Upstream != "" {
		upstream, err := revparseTip(r.Backend, c.Upstream)
		if err != nil {
			return fmt.Errorf("resolve upstream %q: %w", c.Upstream, err)
		}
		in.Upstream = &upstream
	}
	if c.Onto != "" {
		onto, err := revparseTip(r.Backend, c.Onto)
		if err != nil {
			return fmt.Errorf("resolve onto %q: %w", c.Onto, err)
		}
		in.Onto = &onto
	}

	if err := r.Engine.Init(ctx, in); err != nil {
		return err
	}
	fmt.Println("rebase started")
	return nil
}
