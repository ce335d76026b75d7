package index

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/nrdev/rebasekit/pkg/rebase"
	"github.com/stretchr/testify/require"
)

func blobHash(t *testing.T, content string) plumbing.Hash {
	t.Helper()
	st := memory.NewStorage()
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

func TestHasConflictsAndResolve(t *testing.T) {
	idx := New(memory.NewStorage())
	idx.SetEntry(rebase.IndexEntry{Path: "f.txt", OID: blobHash(t, "ancestor"), Stage: stageAncestor})
	idx.SetEntry(rebase.IndexEntry{Path: "f.txt", OID: blobHash(t, "ours"), Stage: stageOurs})
	idx.SetEntry(rebase.IndexEntry{Path: "f.txt", OID: blobHash(t, "theirs"), Stage: stageTheirs})
	require.True(t, idx.HasConflicts())

	idx.ResolveConflict("f.txt", blobHash(t, "resolved"))
	require.False(t, idx.HasConflicts())
}

func TestWriteTreeNestedPaths(t *testing.T) {
	st := memory.NewStorage()
	idx := New(st)
	idx.SetEntry(rebase.IndexEntry{Path: "a/b/c.txt", OID: blobHash(t, "c"), Stage: stageResolved})
	idx.SetEntry(rebase.IndexEntry{Path: "top.txt", OID: blobHash(t, "top"), Stage: stageResolved})

	h, err := idx.WriteTree(context.Background())
	require.NoError(t, err)
	require.False(t, h.IsZero())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := memory.NewStorage()
	idx := New(st)
	idx.SetEntry(rebase.IndexEntry{Path: "f.txt", OID: blobHash(t, "ancestor"), Stage: stageAncestor})
	idx.SetEntry(rebase.IndexEntry{Path: "f.txt", OID: blobHash(t, "ours"), Stage: stageOurs})
	idx.SetEntry(rebase.IndexEntry{Path: "f.txt", OID: blobHash(t, "theirs"), Stage: stageTheirs})
	idx.SetEntry(rebase.IndexEntry{Path: "clean.txt", OID: blobHash(t, "clean"), Stage: stageResolved})

	var buf bytes.Buffer
	require.NoError(t, idx.Save(&buf))

	loaded := New(st)
	require.NoError(t, loaded.LoadFrom(&buf))
	require.True(t, loaded.HasConflicts())
	require.ElementsMatch(t, idx.Entries(), loaded.Entries())
}
