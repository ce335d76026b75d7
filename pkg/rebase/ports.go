// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package rebase

import (
	"context"
	"io"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// CommitStore is the object-database contract the engine consumes: commit
// and tree lookup, and commit creation. One concrete adapter lives in
// pkg/objstore.
type CommitStore interface {
	Commit(ctx context.Context, oid plumbing.Hash) (*object.Commit, error)
	Tree(ctx context.Context, oid plumbing.Hash) (*object.Tree, error)
	CommitTree(ctx context.Context, c *object.Commit) (plumbing.Hash, error)
	WriteCommit(ctx context.Context, c *object.Commit) (plumbing.Hash, error)
}

// RevWalker enumerates commits reachable from tip and not reachable from
// any hash in hide, topologically sorted with a reverse-chronological
// tie-break (oldest first).
type RevWalker interface {
	Walk(ctx context.Context, tip plumbing.Hash, hide []plumbing.Hash) ([]*object.Commit, error)
}

// ConflictKind distinguishes the two conflict shapes TreeMerger reports,
// per SPEC_FULL.md's trimmed conflict taxonomy (content/modify-delete
// only; directory-rename detection is out of scope).
type ConflictKind int

const (
	ConflictContent ConflictKind = iota
	ConflictModifyDelete
)

// Conflict is one unresolved path after a three-way tree merge.
type Conflict struct {
	Path string
	Kind ConflictKind
}

// MergeResult is the outcome of a three-way tree merge: the resulting
// index state (opaque to the engine) plus any conflicts found in it.
type MergeResult struct {
	Conflicts []Conflict
}

// TreeMerger is the three-way tree merge primitive: base, ours, theirs
// trees in, an index populated with merged or conflicted entries out.
type TreeMerger interface {
	MergeTrees(ctx context.Context, idx Index, base, ours, theirs *object.Tree, opts *CheckoutOptions) (*MergeResult, error)
}

// IndexEntry is one staged path, possibly at a higher conflict stage.
type IndexEntry struct {
	Path  string
	OID   plumbing.Hash
	Stage int // 0 = resolved, 1 = ancestor, 2 = ours, 3 = theirs
}

// Index is the staging area: acquire, inspect for conflicts, and write
// out as a tree. Save/LoadFrom let the engine park a staged merge
// between Next and Commit across process boundaries — a conflict needs
// a human to resolve it, and that happens in a separate invocation from
// the one that staged it, so the index has to survive on disk in
// between. Every adapter owns its own on-disk shape for this; the
// engine only ever round-trips through the same adapter instance.
type Index interface {
	Entries() []IndexEntry
	HasConflicts() bool
	WriteTree(ctx context.Context) (plumbing.Hash, error)
	SetEntry(e IndexEntry)
	ResolveConflict(path string, oid plumbing.Hash)
	Save(w io.Writer) error
	LoadFrom(r io.Reader) error
}

// WorkingTree is the checkout/reset/diff collaborator: check out an
// index or a tree into the filesystem, hard-reset to a commit, and count
// deltas between a tree and the index or between the index and the
// working directory.
type WorkingTree interface {
	CheckoutIndex(ctx context.Context, idx Index, opts *CheckoutOptions) error
	CheckoutTree(ctx context.Context, tree *object.Tree, force bool) error
	ResetHard(ctx context.Context, commit plumbing.Hash) error
	DiffTreeIndex(ctx context.Context, tree *object.Tree, idx Index) (int, error)
	DiffIndexWorkdir(ctx context.Context, idx Index) (int, error)
}

// RefDB is the reference-database contract: symbolic/direct HEAD
// creation with reflog messages, and compare-and-set update of arbitrary
// refs. One concrete adapter is pkg/refstore.Store, built over
// modules/refs and modules/reflog.
type RefDB interface {
	SetHeadDirect(ctx context.Context, target plumbing.Hash, reflogMsg string) error
	SetHeadSymbolic(ctx context.Context, target plumbing.ReferenceName, reflogMsg string) error
	UpdateCAS(ctx context.Context, name plumbing.ReferenceName, oldOID, newOID plumbing.Hash, reflogMsg string) error
	PeelHeadToCommit(ctx context.Context) (plumbing.Hash, error)
}

// ReflogWriter is the reflog half of the ref DB, kept as its own port
// because the engine never needs to read a reflog, only append to one
// through RefDB's reflog-message parameters; adapters may implement both
// RefDB and ReflogWriter on the same type.
type ReflogWriter interface {
	Append(ctx context.Context, name plumbing.ReferenceName, oldOID, newOID plumbing.Hash, message string) error
}

// Note is a single annotation: a message and the signature that created
// it, mirroring libgit2's git_note.
type Note struct {
	Message string
	Author  object.Signature
}

// NoteStore is the notes subsystem contract used only during Finish's
// note-propagation step.
type NoteStore interface {
	Read(ctx context.Context, ref plumbing.ReferenceName, target plumbing.Hash) (*Note, error)
	Create(ctx context.Context, ref plumbing.ReferenceName, target plumbing.Hash, note *Note, committer object.Signature) error
}
