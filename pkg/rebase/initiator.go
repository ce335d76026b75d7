// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package rebase

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// InitOptions carries the caller-resolved tips for Init: branch is
// required, upstream and onto are each optional and default to the
// other per §4.C.
type InitOptions struct {
	Branch   CommitTip
	Upstream *CommitTip
	Onto     *CommitTip
	Opts     *Options
}

// Init implements §4.C: validate preconditions, enumerate commits to
// replay, persist the plan, and move HEAD to onto.
func (e *Engine) Init(ctx context.Context, in *InitOptions) error {
	if e.Bare {
		return ErrBare
	}
	if err := e.requireNoState(); err != nil {
		return err
	}
	if err := e.requireClean(ctx); err != nil {
		return err
	}

	if in.Upstream == nil && in.Onto == nil {
		return ErrInvalidArgument
	}
	upstream, onto := resolveUpstreamOnto(in.Upstream, in.Onto)

	picks, err := e.enumeratePicks(ctx, in.Branch.Hash, upstream.Hash)
	if err != nil {
		return err
	}

	opts, err := NormalizeOptions(in.Opts, e.Config)
	if err != nil {
		return err
	}

	stateDir := mergeStatePath(e.RepoDir)
	if err := os.MkdirAll(stateDir, stateDirMode); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	if err := e.initPersist(ctx, stateDir, in.Branch, onto, picks, opts); err != nil {
		_ = removeStateDir(stateDir)
		return err
	}

	ontoName := deriveOntoName(onto)
	reflogMsg := fmt.Sprintf("rebase: checkout %s", ontoName)
	if err := e.Refs.SetHeadDirect(ctx, onto.Hash, reflogMsg); err != nil {
		_ = removeStateDir(stateDir)
		return fmt.Errorf("move HEAD to onto: %w", err)
	}

	ontoCommit, err := e.Store.Commit(ctx, onto.Hash)
	if err != nil {
		_ = removeStateDir(stateDir)
		return fmt.Errorf("resolve onto commit: %w", err)
	}
	ontoTree, err := e.Store.Tree(ctx, ontoCommit.TreeHash)
	if err != nil {
		_ = removeStateDir(stateDir)
		return fmt.Errorf("resolve onto tree: %w", err)
	}
	if err := e.Tree.CheckoutTree(ctx, ontoTree, true); err != nil {
		_ = removeStateDir(stateDir)
		return fmt.Errorf("checkout onto tree: %w", err)
	}
	e.dbg("rebase: initiated %d pick(s) onto %s", len(picks), ontoName)
	return nil
}

// requireClean enforces §4.C preconditions 3 and 4: the index must
// match HEAD, and the working tree must match the index. This engine
// never exposes a staging command of its own (no "add" between rebase
// steps), so the repo's index is, by construction, always HEAD's tree
// reflected back as a fresh Index — step 3 is a standing invariant
// rather than a real precondition, and step 4 (is the workdir dirty
// against HEAD) is the one that can actually fail.
func (e *Engine) requireClean(ctx context.Context) error {
	headOID, err := e.Refs.PeelHeadToCommit(ctx)
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}
	headCommit, err := e.Store.Commit(ctx, headOID)
	if err != nil {
		return fmt.Errorf("load HEAD commit: %w", err)
	}
	headTree, err := e.Store.Tree(ctx, headCommit.TreeHash)
	if err != nil {
		return fmt.Errorf("load HEAD tree: %w", err)
	}
	idx := e.NewIdx()
	if err := populateIndexFromTree(idx, headTree); err != nil {
		return fmt.Errorf("acquire index from HEAD: %w", err)
	}
	if n, err := e.Tree.DiffTreeIndex(ctx, headTree, idx); err != nil {
		return fmt.Errorf("diff HEAD against index: %w", err)
	} else if n != 0 {
		return ErrDirty
	}
	if n, err := e.Tree.DiffIndexWorkdir(ctx, idx); err != nil {
		return fmt.Errorf("diff index against working tree: %w", err)
	} else if n != 0 {
		return ErrDirty
	}
	return nil
}

// populateIndexFromTree stages every blob in tree into idx at the
// resolved stage, the way acquiring a repo's index would read back
// whatever is currently checked out.
func populateIndexFromTree(idx Index, tree *object.Tree) error {
	if tree == nil {
		return nil
	}
	iter := tree.Files()
	defer iter.Close()
	return iter.ForEach(func(f *object.File) error {
		idx.SetEntry(IndexEntry{Path: f.Name, OID: f.Hash, Stage: 0})
		return nil
	})
}

func resolveUpstreamOnto(upstream, onto *CommitTip) (CommitTip, CommitTip) {
	switch {
	case onto == nil && upstream == nil:
		return CommitTip{}, CommitTip{}
	case onto == nil:
		return *upstream, *upstream
	case upstream == nil:
		return *onto, *onto
	default:
		return *upstream, *onto
	}
}

// enumeratePicks implements the commit-enumeration rule of §4.C: walk
// branch not reachable from upstream, topological with reverse
// chronological tie-break, skipping merge commits.
func (e *Engine) enumeratePicks(ctx context.Context, branchHash, upstreamHash plumbing.Hash) ([]*object.Commit, error) {
	commits, err := e.Walker.Walk(ctx, branchHash, []plumbing.Hash{upstreamHash})
	if err != nil {
		return nil, fmt.Errorf("enumerate commits: %w", err)
	}
	picks := make([]*object.Commit, 0, len(commits))
	for _, c := range commits {
		if c.NumParents() > 1 {
			continue
		}
		picks = append(picks, c)
	}
	return picks, nil
}

// initPersist writes the state directory files in the crash-safe order
// mandated by §4.C: head-name/onto/orig-head/quiet, then cmt.1..cmt.N,
// then end, then onto_name.
func (e *Engine) initPersist(ctx context.Context, stateDir string, branch, onto CommitTip, picks []*object.Commit, opts *Options) error {
	headNameValue := detachedHeadLiteral
	if !branch.Detached() {
		headNameValue = string(branch.RefName)
	}
	if err := writeStateFile(stateDir, fileHeadName, headNameValue); err != nil {
		return err
	}
	if err := writeStateFile(stateDir, fileOnto, onto.Hash.String()); err != nil {
		return err
	}
	if err := writeStateFile(stateDir, fileOrigHead, branch.Hash.String()); err != nil {
		return err
	}
	quietValue := ""
	if opts.Quiet {
		quietValue = "t"
	}
	if err := writeStateFile(stateDir, fileQuiet, quietValue); err != nil {
		return err
	}

	for i, c := range picks {
		if err := writeStateFile(stateDir, pickFileName(int32(i+1)), c.Hash.String()); err != nil {
			return err
		}
	}
	if err := writeStateFile(stateDir, fileEnd, fmt.Sprintf("%d", len(picks))); err != nil {
		return err
	}
	return writeStateFile(stateDir, fileOntoName, deriveOntoName(onto))
}

// deriveOntoName implements §4.C's onto_name derivation: refs/heads/
// suffix, else the full ref name, else the hex OID.
func deriveOntoName(onto CommitTip) string {
	if !onto.Detached() {
		const branchPrefix = "refs/heads/"
		if strings.HasPrefix(string(onto.RefName), branchPrefix) {
			return strings.TrimPrefix(string(onto.RefName), branchPrefix)
		}
		return string(onto.RefName)
	}
	return onto.Hash.String()
}
