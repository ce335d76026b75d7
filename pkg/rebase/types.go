// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package rebase

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// CommitTip describes a commit the caller resolved before calling into the
// engine: its OID, the text form used in messages, and the fully qualified
// ref name that produced it. RefName is empty for a detached lookup.
type CommitTip struct {
	Hash    plumbing.Hash
	Str     string
	RefName plumbing.ReferenceName
}

// Detached reports whether the tip was resolved without a symbolic ref.
func (t CommitTip) Detached() bool {
	return len(t.RefName) == 0
}

// Flavor is the on-disk rebase kind. Only Merge is executable; Apply and
// Interactive are detected and rejected.
type Flavor int

const (
	FlavorNone Flavor = iota
	FlavorApply
	FlavorMerge
	FlavorInteractive
)

func (f Flavor) String() string {
	switch f {
	case FlavorApply:
		return "apply"
	case FlavorMerge:
		return "merge"
	case FlavorInteractive:
		return "interactive"
	default:
		return "none"
	}
}

// MergeState is the flavor-specific payload carried by State when
// Flavor == FlavorMerge.
type MergeState struct {
	Step     int32
	End      int32
	OntoName string
	Current  *object.Commit
}

// State is the full in-memory representation of a rebase in progress,
// loaded from and persisted to the state directory by statedir.go.
type State struct {
	Flavor       Flavor
	StatePath    string
	HeadDetached bool
	OrigHeadName plumbing.ReferenceName
	OrigHeadID   plumbing.Hash
	OntoID       plumbing.Hash
	Merge        MergeState
}

// Exhausted reports whether a merge-flavor rebase has no steps left to stage.
func (s *State) Exhausted() bool {
	return s.Merge.Step >= s.Merge.End
}

// Options normalizes caller-supplied rebase options, resolved against
// config in options.go.
type Options struct {
	Version         int
	Quiet           bool
	RewriteNotesRef string
	rewriteSet      bool
}

// EngineVersion is the only Options.Version the engine accepts.
const EngineVersion = 1

// StepResult is the outcome of a single Next call.
type StepResult struct {
	Staged    bool
	PickOID   plumbing.Hash
	Exhausted bool
	Conflicts []Conflict
}

// CheckoutOptions normalizes the labels shown to the working-tree adapter
// during a three-way merge checkout (§4.D).
type CheckoutOptions struct {
	Strategy CheckoutStrategy
	Ancestor string
	Ours     string
	Theirs   string
}

type CheckoutStrategy int

const (
	CheckoutSafe CheckoutStrategy = iota
	CheckoutForce
)
