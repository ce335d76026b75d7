// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package rebase

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// Next implements §4.D: stage the next pick by loading its trees,
// performing a three-way merge, and checking out the resulting index.
func (e *Engine) Next(ctx context.Context, checkoutOpts *CheckoutOptions) (StepResult, error) {
	s, err := LoadState(ctx, e.RepoDir, e.Store)
	if err != nil {
		return StepResult{}, err
	}
	if s.Flavor != FlavorMerge {
		return StepResult{}, newErrUnsupported(fmt.Sprintf("flavor %s is not executable", s.Flavor))
	}
	if s.Exhausted() {
		return StepResult{Exhausted: true}, nil
	}

	step := s.Merge.Step + 1
	pickOID, err := readHashFile(s.StatePath, pickFileName(step))
	if err != nil {
		return StepResult{}, err
	}
	pick, err := e.Store.Commit(ctx, pickOID)
	if err != nil {
		return StepResult{}, fmt.Errorf("load pick %s: %w", pickOID, err)
	}
	if pick.NumParents() > 1 {
		return StepResult{}, newErrUnsupported(fmt.Sprintf("pick %s is a merge commit", pickOID))
	}

	pickTree, err := e.Store.Tree(ctx, pick.TreeHash)
	if err != nil {
		return StepResult{}, fmt.Errorf("load pick tree: %w", err)
	}
	headOID, err := e.Refs.PeelHeadToCommit(ctx)
	if err != nil {
		return StepResult{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	headCommit, err := e.Store.Commit(ctx, headOID)
	if err != nil {
		return StepResult{}, fmt.Errorf("load HEAD commit: %w", err)
	}
	headTree, err := e.Store.Tree(ctx, headCommit.TreeHash)
	if err != nil {
		return StepResult{}, fmt.Errorf("load HEAD tree: %w", err)
	}
	parentTree, err := parentTreeOf(ctx, e.Store, pick)
	if err != nil {
		return StepResult{}, fmt.Errorf("load pick parent tree: %w", err)
	}

	if err := writeStateFile(s.StatePath, fileMsgnum, fmt.Sprintf("%d", step)); err != nil {
		return StepResult{}, err
	}
	if err := writeStateFile(s.StatePath, fileCurrent, pickOID.String()); err != nil {
		return StepResult{}, err
	}

	opts := normalizeCheckoutOptions(checkoutOpts, s.Merge.OntoName, pick)
	idx := e.NewIdx()
	result, err := e.Merger.MergeTrees(ctx, idx, parentTree, headTree, pickTree, opts)
	if err != nil {
		return StepResult{}, newErrMergeFailed(err)
	}
	if len(result.Conflicts) > 0 {
		e.dbg("rebase: %d conflict(s) staged for pick %s", len(result.Conflicts), pickOID)
	}

	if err := e.Tree.CheckoutIndex(ctx, idx, opts); err != nil {
		return StepResult{}, fmt.Errorf("checkout merged index: %w", err)
	}
	if err := persistIndex(s.StatePath, idx); err != nil {
		return StepResult{}, err
	}
	e.dbg("rebase: staged pick %d/%d (%s)", step, s.Merge.End, pickOID)
	return StepResult{Staged: true, PickOID: pickOID, Conflicts: result.Conflicts}, nil
}

// parentTreeOf loads the pick's sole parent's tree, or an empty tree if
// the pick is a root commit.
func parentTreeOf(ctx context.Context, store CommitStore, pick *object.Commit) (*object.Tree, error) {
	if pick.NumParents() == 0 {
		return &object.Tree{}, nil
	}
	parent, err := store.Commit(ctx, pick.ParentHashes[0])
	if err != nil {
		return nil, err
	}
	return store.Tree(ctx, parent.TreeHash)
}

// normalizeCheckoutOptions implements §4.D's label normalization: a
// caller-supplied struct is copied verbatim; otherwise default strategy
// is safe and unset labels are filled from onto_name and the pick's
// summary line.
func normalizeCheckoutOptions(in *CheckoutOptions, ontoName string, pick *object.Commit) *CheckoutOptions {
	out := CheckoutOptions{Strategy: CheckoutSafe}
	if in != nil {
		out = *in
	}
	if out.Ancestor == "" {
		out.Ancestor = "ancestor"
	}
	if out.Ours == "" {
		out.Ours = ontoName
	}
	if out.Theirs == "" {
		out.Theirs = commitSummary(pick)
	}
	return &out
}
