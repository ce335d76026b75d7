// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nrdev/rebasekit/pkg/rebase"
)

// StatusCmd reports the on-disk state of an in-progress rebase, or says
// plainly that there isn't one.
type StatusCmd struct{}

func (c *StatusCmd) Run(g *Globals) error {
	r, err := openRepo(g)
	if err != nil {
		return err
	}
	st, err := rebase.LoadState(context.Background(), r.Engine.RepoDir, r.Engine.Store)
	if err != nil {
		if errors.Is(err, rebase.ErrNotFound) {
			fmt.Println("no rebase in progress")
			return nil
		}
		return err
	}

	fmt.Printf("rebase in progress (%s): step %d/%d onto %s\n", st.Flavor, st.Merge.Step, st.Merge.End, st.Merge.OntoName)
	if st.Merge.Current != nil {
		fmt.Printf("currently replaying %s\n", st.Merge.Current.Hash)
		if paths, err := r.Engine.ConflictedPaths(context.Background()); err == nil && len(paths) > 0 {
			fmt.Println("unresolved conflicts:")
			for _, p := range paths {
				fmt.Println("  ", p)
			}
		}
	}
	return nil
}
