package worktree

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	rindex "github.com/nrdev/rebasekit/pkg/index"
	"github.com/nrdev/rebasekit/pkg/rebase"
	"github.com/stretchr/testify/require"
)

func blob(t *testing.T, st *memory.Storage, content string) plumbing.Hash {
	t.Helper()
	obj := st.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	h, err := st.SetEncodedObject(obj)
	require.NoError(t, err)
	return h
}

func tree(t *testing.T, st *memory.Storage, entries ...object.TreeEntry) *object.Tree {
	t.Helper()
	tr := &object.Tree{Entries: entries}
	obj := st.NewEncodedObject()
	require.NoError(t, tr.Encode(obj))
	h, err := st.SetEncodedObject(obj)
	require.NoError(t, err)
	tr.Hash = h
	return tr
}

func TestCheckoutTreeWritesFiles(t *testing.T) {
	st := memory.NewStorage()
	root := t.TempDir()
	tr := tree(t, st,
		object.TreeEntry{Name: "a.txt", Mode: filemode.Regular, Hash: blob(t, st, "A\n")},
		object.TreeEntry{Name: "sub/b.txt", Mode: filemode.Regular, Hash: blob(t, st, "B\n")},
	)

	wt := New(root, st)
	require.NoError(t, wt.CheckoutTree(context.Background(), tr, false))

	content, err := os.ReadFile(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "A\n", string(content))
	content, err = os.ReadFile(filepath.Join(root, "sub", "b.txt"))
	require.NoError(t, err)
	require.Equal(t, "B\n", string(content))
}

func TestCheckoutTreeForceRemovesStrayFiles(t *testing.T) {
	st := memory.NewStorage()
	root := t.TempDir()
	first := tree(t, st,
		object.TreeEntry{Name: "keep.txt", Mode: filemode.Regular, Hash: blob(t, st, "keep\n")},
		object.TreeEntry{Name: "gone.txt", Mode: filemode.Regular, Hash: blob(t, st, "gone\n")},
	)
	wt := New(root, st)
	require.NoError(t, wt.CheckoutTree(context.Background(), first, false))

	second := tree(t, st,
		object.TreeEntry{Name: "keep.txt", Mode: filemode.Regular, Hash: blob(t, st, "keep\n")},
	)
	require.NoError(t, wt.CheckoutTree(context.Background(), second, true))

	_, err := os.Stat(filepath.Join(root, "gone.txt"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "keep.txt"))
	require.NoError(t, err)
}

func TestDiffIndexWorkdirDetectsEdits(t *testing.T) {
	st := memory.NewStorage()
	root := t.TempDir()
	h := blob(t, st, "original\n")
	tr := tree(t, st, object.TreeEntry{Name: "f.txt", Mode: filemode.Regular, Hash: h})

	wt := New(root, st)
	require.NoError(t, wt.CheckoutTree(context.Background(), tr, false))

	idx := rindex.New(st)
	idx.SetEntry(rebase.IndexEntry{Path: "f.txt", OID: h, Stage: 0})

	n, err := wt.DiffIndexWorkdir(context.Background(), idx)
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("edited\n"), 0o644))
	n, err = wt.DiffIndexWorkdir(context.Background(), idx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
