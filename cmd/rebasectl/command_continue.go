// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nrdev/rebasekit/pkg/rebase"
)

// ContinueCmd drives the step loop: commit whatever the last Next
// staged (if it resolved cleanly), then keep calling Next until a
// conflict needs a human or the plan is exhausted, in which case it
// finishes the rebase itself.
type ContinueCmd struct{}

func (c *ContinueCmd) Run(g *Globals) error {
	r, err := openRepo(g)
	if err != nil {
		return err
	}
	ctx := context.Background()

	for {
		st, err := rebase.LoadState(ctx, r.Engine.RepoDir, r.Engine.Store)
		if err != nil {
			return err
		}
		if st.Merge.Step >= 1 && st.Merge.Current != nil {
			paths, err := r.Engine.ConflictedPaths(ctx)
			if err != nil {
				return err
			}
			if len(paths) > 0 {
				fmt.Println("conflicts remain, resolve them with `rebasectl resolve <path>`:")
				for _, p := range paths {
					fmt.Println("  ", p)
				}
				return nil
			}
			if _, err := r.Engine.Commit(ctx, &rebase.CommitOptions{Committer: defaultSignature()}); err != nil && !errors.Is(err, rebase.ErrAlreadyApplied) {
				return err
			}
		}

		result, err := r.Engine.Next(ctx, nil)
		if err != nil {
			return err
		}
		if result.Exhausted {
			if err := r.Engine.Finish(ctx, &rebase.FinishOptions{Committer: defaultSignature()}); err != nil {
				return err
			}
			fmt.Println("rebase finished")
			return nil
		}
		if len(result.Conflicts) > 0 {
			fmt.Printf("conflict replaying %s:\n", result.PickOID)
			for _, conflict := range result.Conflicts {
				fmt.Println("  ", conflict.Path)
			}
			return nil
		}
	}
}
