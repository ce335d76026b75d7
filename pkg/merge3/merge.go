// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package merge3 implements the three-way tree merge primitive the
// rebase engine's Stepper consumes as a port (pkg/rebase/ports.go),
// trimmed from the teacher's pkg/zeta/odb/merge.go conflict taxonomy
// down to content and modify/delete conflicts — directory-rename
// detection is out of scope for a rebase's per-step merge.
package merge3

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/nrdev/rebasekit/pkg/rebase"
)

type Merger struct{}

func New() *Merger {
	return &Merger{}
}

func flatten(t *object.Tree) (map[string]plumbing.Hash, error) {
	out := make(map[string]plumbing.Hash)
	if t == nil {
		return out, nil
	}
	iter := t.Files()
	defer iter.Close()
	err := iter.ForEach(func(f *object.File) error {
		out[f.Name] = f.Hash
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("flatten tree: %w", err)
	}
	return out, nil
}

func union(maps ...map[string]plumbing.Hash) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, m := range maps {
		for p := range m {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	return paths
}

// MergeTrees implements §4.D step 6-7: a path-keyed three-way merge
// over base, ours, theirs. Unconflicted paths are staged directly at
// resolved stage; conflicted paths are staged at ancestor/ours/theirs
// stage for the caller (or the caller's editor) to resolve before
// Commit.
func (m *Merger) MergeTrees(_ context.Context, idx rebase.Index, base, ours, theirs *object.Tree, _ *rebase.CheckoutOptions) (*rebase.MergeResult, error) {
	baseFiles, err := flatten(base)
	if err != nil {
		return nil, err
	}
	oursFiles, err := flatten(ours)
	if err != nil {
		return nil, err
	}
	theirFiles, err := flatten(theirs)
	if err != nil {
		return nil, err
	}

	result := &rebase.MergeResult{}
	for _, path := range union(baseFiles, oursFiles, theirFiles) {
		baseHash, inBase := baseFiles[path]
		oursHash, inOurs := oursFiles[path]
		theirHash, inTheirs := theirFiles[path]

		switch {
		case inOurs && inTheirs && oursHash == theirHash:
			idx.SetEntry(rebase.IndexEntry{Path: path, OID: oursHash, Stage: 0})
		case inOurs && inBase && oursHash == baseHash:
			// unchanged on our side: take theirs (modify or delete)
			if inTheirs {
				idx.SetEntry(rebase.IndexEntry{Path: path, OID: theirHash, Stage: 0})
			}
		case inTheirs && inBase && theirHash == baseHash:
			// unchanged on their side: take ours (modify or delete)
			if inOurs {
				idx.SetEntry(rebase.IndexEntry{Path: path, OID: oursHash, Stage: 0})
			}
		case !inBase && inOurs && !inTheirs:
			idx.SetEntry(rebase.IndexEntry{Path: path, OID: oursHash, Stage: 0})
		case !inBase && !inOurs && inTheirs:
			idx.SetEntry(rebase.IndexEntry{Path: path, OID: theirHash, Stage: 0})
		case inBase && !inOurs && !inTheirs:
			// deleted identically on both sides: nothing to stage
		default:
			kind := rebase.ConflictContent
			if inOurs != inTheirs {
				kind = rebase.ConflictModifyDelete
			}
			stageConflict(idx, path, baseHash, inBase, oursHash, inOurs, theirHash, inTheirs)
			result.Conflicts = append(result.Conflicts, rebase.Conflict{Path: path, Kind: kind})
		}
	}
	return result, nil
}

func stageConflict(idx rebase.Index, path string, baseHash plumbing.Hash, inBase bool, oursHash plumbing.Hash, inOurs bool, theirHash plumbing.Hash, inTheirs bool) {
	if inBase {
		idx.SetEntry(rebase.IndexEntry{Path: path, OID: baseHash, Stage: 1})
	}
	if inOurs {
		idx.SetEntry(rebase.IndexEntry{Path: path, OID: oursHash, Stage: 2})
	}
	if inTheirs {
		idx.SetEntry(rebase.IndexEntry{Path: path, OID: theirHash, Stage: 3})
	}
}
