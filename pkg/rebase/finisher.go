// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package rebase

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// Abort implements §4.F: restore HEAD to the recorded original, hard
// reset the working tree, and remove the state directory.
func (e *Engine) Abort(ctx context.Context) error {
	s, err := LoadState(ctx, e.RepoDir, e.Store)
	if err != nil {
		return err
	}
	if s.HeadDetached {
		if err := e.Refs.SetHeadDirect(ctx, s.OrigHeadID, "rebase: aborting"); err != nil {
			return fmt.Errorf("restore detached HEAD: %w", err)
		}
	} else {
		if err := e.Refs.SetHeadSymbolic(ctx, s.OrigHeadName, "rebase: aborting"); err != nil {
			return fmt.Errorf("restore symbolic HEAD: %w", err)
		}
	}
	if err := e.Tree.ResetHard(ctx, s.OrigHeadID); err != nil {
		return fmt.Errorf("hard reset working tree: %w", err)
	}
	return removeStateDir(s.StatePath)
}

// FinishOptions carries the caller's committer signature and options
// for Finish.
type FinishOptions struct {
	Committer object.Signature
	Opts      *Options
}

// Finish implements §4.F: update the original branch ref by
// compare-and-set, restore symbolic HEAD (or leave it direct when the
// rebase began detached), propagate notes, and remove the state
// directory.
func (e *Engine) Finish(ctx context.Context, in *FinishOptions) error {
	s, err := LoadState(ctx, e.RepoDir, e.Store)
	if err != nil {
		return err
	}
	var opts *Options
	if in != nil {
		opts, err = NormalizeOptions(in.Opts, e.Config)
	} else {
		opts, err = NormalizeOptions(nil, e.Config)
	}
	if err != nil {
		return err
	}

	terminal, err := e.Refs.PeelHeadToCommit(ctx)
	if err != nil {
		return fmt.Errorf("resolve terminal HEAD: %w", err)
	}

	if s.HeadDetached {
		if err := e.Refs.SetHeadDirect(ctx, terminal, fmt.Sprintf("rebase finished: returning to %s", s.OntoID)); err != nil {
			return fmt.Errorf("set terminal detached HEAD: %w", err)
		}
	} else {
		ontoHex := s.OntoID.String()
		reflogUpdate := fmt.Sprintf("rebase finished: %s onto %s", s.OrigHeadName, ontoHex)
		if err := e.Refs.UpdateCAS(ctx, s.OrigHeadName, s.OrigHeadID, terminal, reflogUpdate); err != nil {
			return fmt.Errorf("%w: %v", ErrRefUpdateConflict, err)
		}
		reflogHead := fmt.Sprintf("rebase finished: returning to %s", s.OrigHeadName)
		if err := e.Refs.SetHeadSymbolic(ctx, s.OrigHeadName, reflogHead); err != nil {
			return fmt.Errorf("restore symbolic HEAD: %w", err)
		}
	}

	var committer object.Signature
	if in != nil {
		committer = in.Committer
	}
	if err := e.propagateNotes(ctx, s.StatePath, opts, committer); err != nil {
		return err
	}

	return removeStateDir(s.StatePath)
}
