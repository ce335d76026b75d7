// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package notes adapts modules/refs onto the rebase engine's NoteStore
// port (pkg/rebase/ports.go): notes live in a commit chain under a ref,
// the same shape git's own notes feature uses — a tree fanned out by
// the first two hex digits of the annotated object's hash, one blob
// per note, so Finish's note-propagation step (§4.F) has somewhere
// real to copy a note to when a commit is rewritten.
package notes

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/nrdev/rebasekit/modules/refs"
	"github.com/nrdev/rebasekit/pkg/index"
	"github.com/nrdev/rebasekit/pkg/rebase"
)

// Store is the concrete NoteStore adapter.
type Store struct {
	objects storer.EncodedObjectStorer
	backend refs.Backend
}

func New(objects storer.EncodedObjectStorer, backend refs.Backend) *Store {
	return &Store{objects: objects, backend: backend}
}

func fanoutPath(target plumbing.Hash) string {
	hex := target.String()
	return hex[:2] + "/" + hex[2:]
}

func flattenTree(tree *object.Tree) (map[string]plumbing.Hash, error) {
	out := make(map[string]plumbing.Hash)
	if tree == nil {
		return out, nil
	}
	iter := tree.Files()
	defer iter.Close()
	err := iter.ForEach(func(f *object.File) error {
		out[f.Name] = f.Hash
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("flatten notes tree: %w", err)
	}
	return out, nil
}

// headCommit resolves ref to its tip commit. A missing ref is not an
// error: it means the notes tree is still unborn.
func (s *Store) headCommit(ref plumbing.ReferenceName) (*plumbing.Reference, *object.Commit, error) {
	r, err := s.backend.Reference(ref)
	if err != nil {
		return nil, nil, nil
	}
	c, err := object.GetCommit(s.objects, r.Hash())
	if err != nil {
		return nil, nil, fmt.Errorf("get notes commit %s: %w", r.Hash(), err)
	}
	return r, c, nil
}

// Read looks up the note annotating target under ref, decoding the
// "author\n\nmessage" body format Create writes.
func (s *Store) Read(_ context.Context, ref plumbing.ReferenceName, target plumbing.Hash) (*rebase.Note, error) {
	_, commit, err := s.headCommit(ref)
	if err != nil {
		return nil, err
	}
	if commit == nil {
		return nil, rebase.ErrNotFound
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("get notes tree: %w", err)
	}
	f, err := tree.File(fanoutPath(target))
	if err != nil {
		return nil, rebase.ErrNotFound
	}
	content, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("read note blob for %s: %w", target, err)
	}
	sigLine, message, ok := strings.Cut(content, "\n\n")
	if !ok {
		return nil, fmt.Errorf("malformed note for %s: missing author/message separator", target)
	}
	var author object.Signature
	author.Decode([]byte(sigLine))
	return &rebase.Note{Message: message, Author: author}, nil
}

// Create writes note under target, committing the updated notes tree
// onto ref with committer as both author and committer of the notes
// commit itself, per §4.F's rewrite-propagation step.
func (s *Store) Create(ctx context.Context, ref plumbing.ReferenceName, target plumbing.Hash, note *rebase.Note, committer object.Signature) error {
	oldRef, commit, err := s.headCommit(ref)
	if err != nil {
		return err
	}

	var baseTree *object.Tree
	if commit != nil {
		if baseTree, err = commit.Tree(); err != nil {
			return fmt.Errorf("get notes tree: %w", err)
		}
	}
	existing, err := flattenTree(baseTree)
	if err != nil {
		return err
	}

	idx := index.New(s.objects)
	for path, oid := range existing {
		idx.SetEntry(rebase.IndexEntry{Path: path, OID: oid, Stage: 0})
	}

	blobOID, err := s.writeNoteBlob(note)
	if err != nil {
		return err
	}
	idx.SetEntry(rebase.IndexEntry{Path: fanoutPath(target), OID: blobOID, Stage: 0})

	treeHash, err := idx.WriteTree(ctx)
	if err != nil {
		return fmt.Errorf("write notes tree: %w", err)
	}

	newCommit := &object.Commit{
		Author:    committer,
		Committer: committer,
		Message:   fmt.Sprintf("notes: add note for %s", target),
		TreeHash:  treeHash,
	}
	if commit != nil {
		newCommit.ParentHashes = []plumbing.Hash{commit.Hash}
	}
	obj := s.objects.NewEncodedObject()
	if err := newCommit.Encode(obj); err != nil {
		return fmt.Errorf("encode notes commit: %w", err)
	}
	newHash, err := s.objects.SetEncodedObject(obj)
	if err != nil {
		return fmt.Errorf("store notes commit: %w", err)
	}

	newRef := plumbing.NewHashReference(ref, newHash)
	if err := s.backend.ReferenceUpdate(newRef, oldRef); err != nil {
		return fmt.Errorf("update notes ref %s: %w", ref, err)
	}
	return nil
}

func (s *Store) writeNoteBlob(note *rebase.Note) (plumbing.Hash, error) {
	obj := s.objects.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	content := fmt.Sprintf("%s\n\n%s", note.Author.String(), note.Message)
	if _, err := w.Write([]byte(content)); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}
	return s.objects.SetEncodedObject(obj)
}
