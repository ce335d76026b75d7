// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package rebase implements the rebase state machine: initiate, iterate
// pick, commit, and finish or abort, entirely on disk and resumable
// across process restarts. It consumes the object database, reference
// database, working tree, index, tree merger, revision walker, and
// notes subsystem as narrow ports (ports.go); this package never
// imports a concrete storage format.
package rebase

import (
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/nrdev/rebasekit/modules/config"
	"github.com/nrdev/rebasekit/modules/trace"
)

// Engine bundles every external collaborator the rebase operations need.
// It holds no state of its own beyond the ports; all rebase state lives
// on disk under RepoDir and is loaded fresh on every call.
type Engine struct {
	RepoDir string
	Bare    bool

	Store   CommitStore
	Walker  RevWalker
	Merger  TreeMerger
	Tree    WorkingTree
	Refs    RefDB
	Reflog  ReflogWriter
	Notes   NoteStore
	NewIdx  func() Index
	Config  *config.Config
	Verbose bool
}

func (e *Engine) dbg(format string, args ...any) {
	if !e.Verbose {
		return
	}
	trace.DbgPrint(format, args...)
}

func commitSummary(c *object.Commit) string {
	for i := 0; i < len(c.Message); i++ {
		if c.Message[i] == '\n' {
			return c.Message[:i]
		}
	}
	return c.Message
}

// requireNoState is the InProgress precondition of §4.C step 2.
func (e *Engine) requireNoState() error {
	if flavor, _ := probeFlavor(e.RepoDir); flavor != FlavorNone {
		return ErrInProgress
	}
	return nil
}
