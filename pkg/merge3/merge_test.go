package merge3

import (
	"context"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	rindex "github.com/nrdev/rebasekit/pkg/index"
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

func TestMergeTreesCleanReplay(t *testing.T) {
	st := memory.NewStorage()
	baseBlob := blob(t, st, "base content\n")
	theirBlob := blob(t, st, "their content\n")

	base := tree(t, st, object.TreeEntry{Name: "f.txt", Mode: filemode.Regular, Hash: baseBlob})
	ours := tree(t, st, object.TreeEntry{Name: "f.txt", Mode: filemode.Regular, Hash: baseBlob})
	theirs := tree(t, st, object.TreeEntry{Name: "f.txt", Mode: filemode.Regular, Hash: theirBlob})

	idx := rindex.New(st)
	m := New()
	result, err := m.MergeTrees(context.Background(), idx, base, ours, theirs, nil)
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)
	require.False(t, idx.HasConflicts())
}

func TestMergeTreesBothSidesDelete(t *testing.T) {
	st := memory.NewStorage()
	fBlob := blob(t, st, "f\n")
	gBlob := blob(t, st, "g\n")

	base := tree(t, st,
		object.TreeEntry{Name: "f.txt", Mode: filemode.Regular, Hash: fBlob},
		object.TreeEntry{Name: "g.txt", Mode: filemode.Regular, Hash: gBlob},
	)
	// g.txt deleted on both sides relative to base.
	ours := tree(t, st, object.TreeEntry{Name: "f.txt", Mode: filemode.Regular, Hash: fBlob})
	theirs := tree(t, st, object.TreeEntry{Name: "f.txt", Mode: filemode.Regular, Hash: fBlob})

	idx := rindex.New(st)
	m := New()
	result, err := m.MergeTrees(context.Background(), idx, base, ours, theirs, nil)
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)
	require.False(t, idx.HasConflicts())
	for _, e := range idx.Entries() {
		require.NotEqual(t, "g.txt", e.Path)
	}
}

func TestMergeTreesContentConflict(t *testing.T) {
	st := memory.NewStorage()
	baseBlob := blob(t, st, "base\n")
	oursBlob := blob(t, st, "ours\n")
	theirBlob := blob(t, st, "theirs\n")

	base := tree(t, st, object.TreeEntry{Name: "f.txt", Mode: filemode.Regular, Hash: baseBlob})
	ours := tree(t, st, object.TreeEntry{Name: "f.txt", Mode: filemode.Regular, Hash: oursBlob})
	theirs := tree(t, st, object.TreeEntry{Name: "f.txt", Mode: filemode.Regular, Hash: theirBlob})

	idx := rindex.New(st)
	m := New()
	result, err := m.MergeTrees(context.Background(), idx, base, ours, theirs, nil)
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	require.True(t, idx.HasConflicts())
}
