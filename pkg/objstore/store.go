// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package objstore adapts a go-git object storer to the rebase engine's
// CommitStore and RevWalker ports (pkg/rebase/ports.go).
package objstore

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Store wraps a go-git encoded-object storer (memory or filesystem) as
// the engine's CommitStore.
type Store struct {
	objects storer.EncodedObjectStorer
}

func New(objects storer.EncodedObjectStorer) *Store {
	return &Store{objects: objects}
}

func (s *Store) Commit(_ context.Context, oid plumbing.Hash) (*object.Commit, error) {
	c, err := object.GetCommit(s.objects, oid)
	if err != nil {
		return nil, fmt.Errorf("get commit %s: %w", oid, err)
	}
	return c, nil
}

func (s *Store) Tree(_ context.Context, oid plumbing.Hash) (*object.Tree, error) {
	if oid.IsZero() {
		return &object.Tree{}, nil
	}
	t, err := object.GetTree(s.objects, oid)
	if err != nil {
		return nil, fmt.Errorf("get tree %s: %w", oid, err)
	}
	return t, nil
}

func (s *Store) CommitTree(_ context.Context, c *object.Commit) (plumbing.Hash, error) {
	return c.TreeHash, nil
}

// WriteCommit encodes and stores c, the way pkg/zeta/odb's WriteEncoded
// does for the teacher's object database.
func (s *Store) WriteCommit(_ context.Context, c *object.Commit) (plumbing.Hash, error) {
	obj := s.objects.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encode commit: %w", err)
	}
	hash, err := s.objects.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store commit: %w", err)
	}
	return hash, nil
}
