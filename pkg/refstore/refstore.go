// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package refstore adapts the teacher's reference backend (modules/refs)
// and reflog format (modules/reflog) onto the rebase engine's RefDB and
// ReflogWriter ports (pkg/rebase/ports.go).
package refstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/nrdev/rebasekit/modules/reflog"
	"github.com/nrdev/rebasekit/modules/refs"
)

// Store is the concrete RefDB/ReflogWriter adapter. A single instance
// handles both halves of the port since both operate on the same
// on-disk repository root.
type Store struct {
	backend refs.Backend
	reflogs *reflog.DB
	sig     func() object.Signature
}

// New wires backend and reflogs together. sig, when non-nil, supplies
// the committer signature recorded against each reflog entry; when nil
// a default "rebasectl" identity stamped with the current time is used.
func New(backend refs.Backend, reflogs *reflog.DB, sig func() object.Signature) *Store {
	return &Store{backend: backend, reflogs: reflogs, sig: sig}
}

func (s *Store) signature() object.Signature {
	if s.sig != nil {
		return s.sig()
	}
	return object.Signature{Name: "rebasectl", Email: "rebasectl@localhost", When: time.Now()}
}

// peel resolves name to the commit hash it currently points at, or
// plumbing.ZeroHash if the reference is unborn.
func (s *Store) peel(name plumbing.ReferenceName) plumbing.Hash {
	ref, err := refs.ReferenceResolve(s.backend, name)
	if err != nil {
		return plumbing.ZeroHash
	}
	return ref.Hash()
}

func (s *Store) appendLog(name plumbing.ReferenceName, oldOID, newOID plumbing.Hash, message string) error {
	log, err := s.reflogs.Read(name)
	if err != nil {
		return fmt.Errorf("read reflog %s: %w", name, err)
	}
	entry := &reflog.Entry{O: oldOID, N: newOID, Committer: s.signature(), Message: message}
	log.Entries = append([]*reflog.Entry{entry}, log.Entries...)
	return s.reflogs.Write(log)
}

// SetHeadDirect points HEAD straight at target, per §4.C's HEAD-move
// step and §4.F's detached-finish step.
func (s *Store) SetHeadDirect(_ context.Context, target plumbing.Hash, reflogMsg string) error {
	old := s.peel(plumbing.HEAD)
	ref := plumbing.NewHashReference(plumbing.HEAD, target)
	if err := s.backend.ReferenceUpdate(ref, nil); err != nil {
		return fmt.Errorf("set HEAD direct: %w", err)
	}
	return s.appendLog(plumbing.HEAD, old, target, reflogMsg)
}

// SetHeadSymbolic points HEAD at target by name, per §4.F's
// return-to-branch finish step.
func (s *Store) SetHeadSymbolic(_ context.Context, target plumbing.ReferenceName, reflogMsg string) error {
	old := s.peel(plumbing.HEAD)
	ref := plumbing.NewSymbolicReference(plumbing.HEAD, target)
	if err := s.backend.ReferenceUpdate(ref, nil); err != nil {
		return fmt.Errorf("set HEAD symbolic: %w", err)
	}
	return s.appendLog(plumbing.HEAD, old, s.peel(target), reflogMsg)
}

// UpdateCAS updates name to newOID, failing if the on-disk value no
// longer matches oldOID, per §4.E's HEAD-advance step and §4.F's
// step that moves the original branch ref to the rebased tip.
func (s *Store) UpdateCAS(_ context.Context, name plumbing.ReferenceName, oldOID, newOID plumbing.Hash, reflogMsg string) error {
	var oldRef *plumbing.Reference
	if !oldOID.IsZero() {
		oldRef = plumbing.NewHashReference(name, oldOID)
	}
	newRef := plumbing.NewHashReference(name, newOID)
	if err := s.backend.ReferenceUpdate(newRef, oldRef); err != nil {
		return fmt.Errorf("update ref %s: %w", name, err)
	}
	return s.appendLog(name, oldOID, newOID, reflogMsg)
}

// PeelHeadToCommit resolves HEAD (direct or symbolic) to a commit hash.
func (s *Store) PeelHeadToCommit(_ context.Context) (plumbing.Hash, error) {
	ref, err := refs.ReferenceResolve(s.backend, plumbing.HEAD)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return ref.Hash(), nil
}

// Append records one reflog entry against name directly, for callers
// that already hold both old and new OIDs without a corresponding HEAD
// move. The engine itself writes reflog entries only through the RefDB
// methods above.
func (s *Store) Append(_ context.Context, name plumbing.ReferenceName, oldOID, newOID plumbing.Hash, message string) error {
	return s.appendLog(name, oldOID, newOID, message)
}
