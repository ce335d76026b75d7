// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package rebase

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// CommitOptions carries the caller-supplied identity and message for a
// single rebase step's commit. A nil Author and an empty Encoding or
// Message are defaulted from the pick per §4.E step 5; Committer is used
// as given, even when zero. Only when Commit receives nil options is the
// committer taken from the pick as well.
type CommitOptions struct {
	Author    *object.Signature
	Committer object.Signature
	Encoding  string
	Message   string
}

// Commit implements §4.E: reload the pick staged by the last Next call,
// verify it has no conflicts and produced a change, write a new commit,
// advance HEAD, and append the rewrite mapping.
func (e *Engine) Commit(ctx context.Context, opts *CommitOptions) (plumbing.Hash, error) {
	s, err := LoadState(ctx, e.RepoDir, e.Store)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if s.Merge.Step < 1 || s.Merge.Current == nil {
		return plumbing.ZeroHash, ErrInvalidState
	}
	pick := s.Merge.Current

	idx := e.NewIdx()
	if err := loadIndex(s.StatePath, idx); err != nil {
		return plumbing.ZeroHash, err
	}
	if idx.HasConflicts() {
		return plumbing.ZeroHash, ErrMergeConflict
	}

	headOID, err := e.Refs.PeelHeadToCommit(ctx)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve HEAD: %w", err)
	}
	headCommit, err := e.Store.Commit(ctx, headOID)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("load HEAD commit: %w", err)
	}
	headTree, err := e.Store.Tree(ctx, headCommit.TreeHash)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("load HEAD tree: %w", err)
	}
	if n, err := e.Tree.DiffTreeIndex(ctx, headTree, idx); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("diff HEAD against resolved index: %w", err)
	} else if n == 0 {
		return plumbing.ZeroHash, ErrAlreadyApplied
	}

	newTreeHash, err := idx.WriteTree(ctx)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write index to tree: %w", err)
	}

	author := pick.Author
	if opts != nil && opts.Author != nil {
		author = *opts.Author
	}
	committer := pick.Committer
	encoding := pick.Encoding
	message := pick.Message
	if opts != nil {
		committer = opts.Committer
		if opts.Encoding != "" {
			encoding = opts.Encoding
		}
		if opts.Message != "" {
			message = opts.Message
		}
	}

	newCommit := &object.Commit{
		Author:       author,
		Committer:    committer,
		ParentHashes: []plumbing.Hash{headOID},
		TreeHash:     newTreeHash,
		Message:      message,
		Encoding:     encoding,
	}
	newOID, err := e.Store.WriteCommit(ctx, newCommit)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write commit: %w", err)
	}

	if err := e.Refs.UpdateCAS(ctx, plumbing.HEAD, headOID, newOID, "rebase"); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("update HEAD: %w", err)
	}
	if err := appendStateFile(s.StatePath, fileRewritten, rewrittenLine(pick.Hash, newOID)); err != nil {
		return plumbing.ZeroHash, err
	}
	removeIndexStaging(s.StatePath)
	e.dbg("rebase: committed pick %d/%d as %s", s.Merge.Step, s.Merge.End, newOID)
	return newOID, nil
}
