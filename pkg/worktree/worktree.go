// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package worktree adapts modules/vfs onto the rebase engine's
// WorkingTree port (pkg/rebase/ports.go): checking out an index or a
// tree into the filesystem, hard-resetting to a commit, and counting
// deltas for the dirty-working-tree check ahead of Init.
package worktree

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/nrdev/rebasekit/modules/vfs"
	"github.com/nrdev/rebasekit/pkg/rebase"
)

// Tree is the concrete WorkingTree adapter, rooted at a working
// directory distinct from the repository's state directory (the
// rebase-merge/rebase-apply layout lives under the caller's RepoDir,
// never under this root).
type Tree struct {
	root    string
	fs      vfs.VFS
	objects storer.EncodedObjectStorer
}

func New(root string, objects storer.EncodedObjectStorer) *Tree {
	return &Tree{root: root, fs: vfs.NewVFS(root), objects: objects}
}

func blobContent(objects storer.EncodedObjectStorer, oid plumbing.Hash) ([]byte, error) {
	blob, err := object.GetBlob(objects, oid)
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", oid, err)
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (t *Tree) writeFile(path string, mode filemode.FileMode, oid plumbing.Hash) error {
	full := t.fs.Join(t.root, path)
	if err := t.fs.MkdirAll(filepath.Dir(full), 0o777); err != nil {
		return err
	}
	if mode == filemode.Symlink {
		content, err := blobContent(t.objects, oid)
		if err != nil {
			return err
		}
		_ = t.fs.Remove(full)
		return t.fs.Symlink(string(content), full)
	}
	content, err := blobContent(t.objects, oid)
	if err != nil {
		return err
	}
	f, err := t.fs.Create(full)
	if err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if mode == filemode.Executable {
		return t.fs.Chmod(full, 0o755)
	}
	return nil
}

// flattenTree walks every blob in tree, keyed by slash-separated path.
func flattenTree(tree *object.Tree) (map[string]*object.File, error) {
	out := make(map[string]*object.File)
	if tree == nil {
		return out, nil
	}
	iter := tree.Files()
	defer iter.Close()
	err := iter.ForEach(func(f *object.File) error {
		out[f.Name] = f
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("flatten tree: %w", err)
	}
	return out, nil
}

// walkTrackedFiles lists every regular file currently under root,
// relative to root, using slash separators.
func (t *Tree) walkTrackedFiles() ([]string, error) {
	var out []string
	var walk func(rel string) error
	walk = func(rel string) error {
		entries, err := t.fs.ReadDir(t.fs.Join(t.root, rel))
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		for _, e := range entries {
			childRel := e.Name()
			if rel != "" {
				childRel = rel + "/" + e.Name()
			}
			if e.IsDir() {
				if err := walk(childRel); err != nil {
					return err
				}
				continue
			}
			out = append(out, childRel)
		}
		return nil
	}
	if err := walk(""); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckoutTree writes every blob in tree to the filesystem. When force
// is set, tracked files present on disk but absent from tree are
// removed; the engine only calls with force after requireClean has
// already verified the working tree mirrors the prior state, so this
// never touches genuinely untracked content the caller hasn't vetted.
func (t *Tree) CheckoutTree(_ context.Context, tree *object.Tree, force bool) error {
	files, err := flattenTree(tree)
	if err != nil {
		return err
	}
	for path, f := range files {
		if err := t.writeFile(path, f.Mode, f.Hash); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if !force {
		return nil
	}
	existing, err := t.walkTrackedFiles()
	if err != nil {
		return err
	}
	for _, path := range existing {
		if _, ok := files[path]; !ok {
			_ = t.fs.Remove(t.fs.Join(t.root, path))
		}
	}
	return pruneEmptyDirs(t.fs, t.root)
}

// CheckoutIndex writes every resolved (stage 0) entry to the
// filesystem. Conflicted paths are left untouched: Commit refuses to
// proceed while HasConflicts is true, so the caller must resolve them
// through the index before the next checkout.
func (t *Tree) CheckoutIndex(_ context.Context, idx rebase.Index, _ *rebase.CheckoutOptions) error {
	for _, e := range idx.Entries() {
		if e.Stage != 0 {
			continue
		}
		if err := t.writeFile(e.Path, filemode.Regular, e.OID); err != nil {
			return fmt.Errorf("write %s: %w", e.Path, err)
		}
	}
	return nil
}

// ResetHard checks out commit's tree over the working directory,
// discarding any local modifications, per §4.F's abort step.
func (t *Tree) ResetHard(ctx context.Context, commit plumbing.Hash) error {
	c, err := object.GetCommit(t.objects, commit)
	if err != nil {
		return fmt.Errorf("get commit %s: %w", commit, err)
	}
	tree, err := c.Tree()
	if err != nil {
		return fmt.Errorf("get tree for commit %s: %w", commit, err)
	}
	return t.CheckoutTree(ctx, tree, true)
}

// DiffTreeIndex counts paths that differ between tree and the index's
// resolved entries.
func (t *Tree) DiffTreeIndex(_ context.Context, tree *object.Tree, idx rebase.Index) (int, error) {
	treeFiles, err := flattenTree(tree)
	if err != nil {
		return 0, err
	}
	indexed := make(map[string]plumbing.Hash)
	for _, e := range idx.Entries() {
		if e.Stage == 0 {
			indexed[e.Path] = e.OID
		}
	}
	diff := 0
	for path, f := range treeFiles {
		oid, ok := indexed[path]
		if !ok || oid != f.Hash {
			diff++
		}
	}
	for path := range indexed {
		if _, ok := treeFiles[path]; !ok {
			diff++
		}
	}
	return diff, nil
}

// DiffIndexWorkdir counts index entries whose on-disk content no
// longer matches the staged blob hash, or that are missing entirely.
func (t *Tree) DiffIndexWorkdir(_ context.Context, idx rebase.Index) (int, error) {
	diff := 0
	for _, e := range idx.Entries() {
		if e.Stage != 0 {
			continue
		}
		full := t.fs.Join(t.root, e.Path)
		f, err := t.fs.Open(full)
		if err != nil {
			if os.IsNotExist(err) {
				diff++
				continue
			}
			return 0, err
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return 0, err
		}
		if plumbing.ComputeHash(plumbing.BlobObject, content) != e.OID {
			diff++
		}
	}
	return diff, nil
}

// pruneEmptyDirs removes directories left empty by CheckoutTree's
// stray-file removal, working bottom-up; root itself is never removed.
func pruneEmptyDirs(fsys vfs.VFS, root string) error {
	entries, err := fsys.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := fsys.Join(root, e.Name())
		if err := pruneEmptyDirs(fsys, dir); err != nil {
			return err
		}
		sub, err := fsys.ReadDir(dir)
		if err == nil && len(sub) == 0 {
			_ = fsys.Remove(dir)
		}
	}
	return nil
}
