// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package rebase

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
)

// Resolve stages oid as the resolution for path in the pick currently
// parked by the last Next call, collapsing any conflict entries at that
// path down to a single resolved entry, per §4.D's hand-off to a human
// resolver.
func (e *Engine) Resolve(ctx context.Context, path string, oid plumbing.Hash) error {
	s, err := LoadState(ctx, e.RepoDir, e.Store)
	if err != nil {
		return err
	}
	if s.Merge.Step < 1 || s.Merge.Current == nil {
		return ErrInvalidState
	}
	idx := e.NewIdx()
	if err := loadIndex(s.StatePath, idx); err != nil {
		return err
	}
	idx.ResolveConflict(path, oid)
	if err := persistIndex(s.StatePath, idx); err != nil {
		return err
	}
	e.dbg("rebase: resolved %s as %s", path, oid)
	return nil
}

// ConflictedPaths reports every path still staged at a non-zero stage
// in the pick currently parked by the last Next call, for a caller
// deciding what still needs Resolve before Commit will proceed.
func (e *Engine) ConflictedPaths(ctx context.Context) ([]string, error) {
	s, err := LoadState(ctx, e.RepoDir, e.Store)
	if err != nil {
		return nil, err
	}
	if s.Merge.Step < 1 || s.Merge.Current == nil {
		return nil, ErrInvalidState
	}
	idx := e.NewIdx()
	if err := loadIndex(s.StatePath, idx); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, entry := range idx.Entries() {
		if entry.Stage == 0 {
			continue
		}
		if !seen[entry.Path] {
			seen[entry.Path] = true
			out = append(out, entry.Path)
		}
	}
	return out, nil
}
