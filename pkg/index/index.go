// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package index adapts go-git's plumbing/format/index package to the
// rebase engine's Index port (pkg/rebase/ports.go): stage numbering for
// conflict entries, and writing the resolved staging area to a tree.
package index

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	gitindex "github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/nrdev/rebasekit/pkg/rebase"
)

// These stage constants mirror gitindex.Stage's three-way numbering: ancestor,
// ours, theirs. Stage 0 is the resolved/merged entry.
const (
	stageResolved = 0
	stageAncestor = 1
	stageOurs     = 2
	stageTheirs   = 3
)

// Idx is the concrete Index adapter. It keeps an in-memory
// gitindex.Index alongside a path-keyed map of rebase.IndexEntry, since
// gitindex.Entry has no native concept of a non-zero conflict stage
// beyond plain storage — the stage bookkeeping the port needs lives
// here.
type Idx struct {
	objects storer.EncodedObjectStorer
	raw     *gitindex.Index
	byPath  map[string][]rebase.IndexEntry
}

func New(objects storer.EncodedObjectStorer) *Idx {
	return &Idx{
		objects: objects,
		raw:     &gitindex.Index{Version: 2},
		byPath:  make(map[string][]rebase.IndexEntry),
	}
}

func (i *Idx) Entries() []rebase.IndexEntry {
	out := make([]rebase.IndexEntry, 0, len(i.byPath))
	for _, stages := range i.byPath {
		out = append(out, stages...)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Path != out[b].Path {
			return out[a].Path < out[b].Path
		}
		return out[a].Stage < out[b].Stage
	})
	return out
}

func (i *Idx) HasConflicts() bool {
	for _, stages := range i.byPath {
		for _, e := range stages {
			if e.Stage != stageResolved {
				return true
			}
		}
	}
	return false
}

// SetEntry stages e, replacing any existing entry at the same
// (path, stage). Called by the TreeMerger adapter while resolving a
// three-way merge.
func (i *Idx) SetEntry(e rebase.IndexEntry) {
	stages := i.byPath[e.Path]
	for idx, existing := range stages {
		if existing.Stage == e.Stage {
			stages[idx] = e
			i.byPath[e.Path] = stages
			i.syncRaw(e.Path)
			return
		}
	}
	i.byPath[e.Path] = append(stages, e)
	i.syncRaw(e.Path)
}

// ResolveConflict collapses every staged entry for path down to a
// single resolved (stage 0) entry at oid, the caller-supplied
// resolution for a conflict the three-way merge could not settle.
func (i *Idx) ResolveConflict(path string, oid plumbing.Hash) {
	i.byPath[path] = []rebase.IndexEntry{{Path: path, OID: oid, Stage: stageResolved}}
	i.syncRaw(path)
}

func (i *Idx) syncRaw(path string) {
	var resolved *rebase.IndexEntry
	for idx := range i.byPath[path] {
		if i.byPath[path][idx].Stage == stageResolved {
			e := i.byPath[path][idx]
			resolved = &e
			break
		}
	}
	filtered := i.raw.Entries[:0]
	for _, e := range i.raw.Entries {
		if e.Name != path {
			filtered = append(filtered, e)
		}
	}
	i.raw.Entries = filtered
	if resolved != nil {
		i.raw.Entries = append(i.raw.Entries, &gitindex.Entry{
			Name: resolved.Path,
			Hash: resolved.OID,
			Mode: filemode.Regular,
		})
	}
}

// treeNode is an intermediate directory used while building the tree
// hierarchy from flat resolved paths.
type treeNode struct {
	blobs map[string]plumbing.Hash
	dirs  map[string]*treeNode
}

func newTreeNode() *treeNode {
	return &treeNode{blobs: make(map[string]plumbing.Hash), dirs: make(map[string]*treeNode)}
}

func (n *treeNode) insert(path string, oid plumbing.Hash) {
	parts := strings.Split(path, "/")
	cur := n
	for _, part := range parts[:len(parts)-1] {
		child, ok := cur.dirs[part]
		if !ok {
			child = newTreeNode()
			cur.dirs[part] = child
		}
		cur = child
	}
	cur.blobs[parts[len(parts)-1]] = oid
}

func (i *Idx) writeNode(n *treeNode) (plumbing.Hash, error) {
	var entries []object.TreeEntry
	for name, oid := range n.blobs {
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: oid})
	}
	for name, child := range n.dirs {
		childHash, err := i.writeNode(child)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: childHash})
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].Name < entries[b].Name })

	t := &object.Tree{Entries: entries}
	obj := i.objects.NewEncodedObject()
	if err := t.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encode tree: %w", err)
	}
	return i.objects.SetEncodedObject(obj)
}

// WriteTree writes every resolved (stage 0) entry as a tree, per §4.E
// step 4. Conflict entries are not written; the caller must resolve
// them first (HasConflicts gates commit time per §4.E step 2).
func (i *Idx) WriteTree(_ context.Context) (plumbing.Hash, error) {
	root := newTreeNode()
	for path, stages := range i.byPath {
		for _, e := range stages {
			if e.Stage == stageResolved {
				root.insert(path, e.OID)
			}
		}
	}
	return i.writeNode(root)
}

// Save serializes every staged entry (resolved and conflicted) to w, one
// "<stage> <oid> <path>" line per entry, so the engine can park an
// in-progress merge's staging area between a Next and the Commit that
// follows it, possibly in a separate process once a conflict needs a
// human in between — go-git's own index format has no multi-stage
// conflict entries to round-trip through, the same gap byPath fills in
// memory.
func (i *Idx) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, e := range i.Entries() {
		if _, err := fmt.Fprintf(bw, "%d %s %s\n", e.Stage, e.OID, e.Path); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LoadFrom resets i's staged entries and reconstructs them from a
// stream previously written by Save.
func (i *Idx) LoadFrom(r io.Reader) error {
	i.byPath = make(map[string][]rebase.IndexEntry)
	i.raw.Entries = nil
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 3)
		if len(parts) != 3 {
			return fmt.Errorf("malformed index line: %q", line)
		}
		stage, err := strconv.Atoi(parts[0])
		if err != nil {
			return fmt.Errorf("malformed index stage: %w", err)
		}
		i.SetEntry(rebase.IndexEntry{Path: parts[2], OID: plumbing.NewHash(parts[1]), Stage: stage})
	}
	return sc.Err()
}
