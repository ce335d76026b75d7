// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package rebase

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// LoadState implements §4.B: determine flavor, reject unsupported
// flavors, read the fixed fields, and for merge flavor the step payload.
func LoadState(ctx context.Context, repoDir string, store CommitStore) (*State, error) {
	flavor, stateDir := probeFlavor(repoDir)
	if flavor == FlavorNone {
		return nil, ErrNotFound
	}
	if flavor == FlavorApply {
		return nil, newErrUnsupported("apply-flavor (\"am\"-style) rebase state detected")
	}

	s := &State{Flavor: flavor, StatePath: stateDir}

	headName, err := readStateFileRequired(stateDir, fileHeadName)
	if err != nil {
		return nil, err
	}
	if headName == detachedHeadLiteral {
		s.HeadDetached = true
	} else {
		s.OrigHeadName = plumbing.ReferenceName(headName)
	}

	origHeadID, err := readOrigHead(stateDir)
	if err != nil {
		return nil, err
	}
	s.OrigHeadID = origHeadID

	ontoID, err := readHashFile(stateDir, fileOnto)
	if err != nil {
		return nil, err
	}
	s.OntoID = ontoID

	if err := loadMergePayload(ctx, stateDir, store, s); err != nil {
		return nil, err
	}
	return s, nil
}

// readOrigHead tries orig-head first, falling back to the legacy head
// file, per §4.B step 4 and the "never write head" note in §9.
func readOrigHead(stateDir string) (plumbing.Hash, error) {
	v, ok, err := readStateFile(stateDir, fileOrigHead)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if !ok {
		v, ok, err = readStateFile(stateDir, fileHead)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if !ok {
			return plumbing.ZeroHash, newErrCorrupt("missing both orig-head and legacy head")
		}
	}
	h := plumbing.NewHash(v)
	if h.IsZero() && v != plumbing.ZeroHash.String() {
		return plumbing.ZeroHash, newErrCorrupt(fmt.Sprintf("invalid object id in orig-head: %q", v))
	}
	return h, nil
}

func loadMergePayload(ctx context.Context, stateDir string, store CommitStore, s *State) error {
	end, err := readIntFile(stateDir, fileEnd, -1)
	if err != nil {
		return err
	}
	if end < 0 {
		return newErrCorrupt("missing required file \"end\"")
	}
	ontoName, err := readStateFileRequired(stateDir, fileOntoName)
	if err != nil {
		return err
	}
	msgnum, err := readIntFile(stateDir, fileMsgnum, 0)
	if err != nil {
		return err
	}
	s.Merge = MergeState{Step: msgnum, End: end, OntoName: ontoName}

	currentHex, ok, err := readStateFile(stateDir, fileCurrent)
	if err != nil {
		return err
	}
	if ok && currentHex != "" {
		oid := plumbing.NewHash(currentHex)
		c, err := store.Commit(ctx, oid)
		if err != nil {
			return fmt.Errorf("load staged pick %s: %w", oid, err)
		}
		s.Merge.Current = c
	}
	return nil
}
