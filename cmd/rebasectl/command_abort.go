// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
)

// AbortCmd restores the original branch and discards the in-progress
// rebase entirely.
type AbortCmd struct{}

func (c *AbortCmd) Run(g *Globals) error {
	r, err := openRepo(g)
	if err != nil {
		return err
	}
	if err := r.Engine.Abort(context.Background()); err != nil {
		return err
	}
	fmt.Println("rebase aborted")
	return nil
}
