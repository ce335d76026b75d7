package notes

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/nrdev/rebasekit/modules/refs"
	"github.com/nrdev/rebasekit/pkg/rebase"
	"github.com/stretchr/testify/require"
)

func sig(name string, when time.Time) object.Signature {
	return object.Signature{Name: name, Email: name + "@example.io", When: when}
}

func TestCreateThenReadRoundTrip(t *testing.T) {
	st := memory.NewStorage()
	dir := t.TempDir()
	backend := refs.NewBackend(dir)
	s := New(st, backend)
	ctx := context.Background()
	ref := plumbing.ReferenceName("refs/notes/rewrite")
	target := plumbing.NewHash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	author := sig("Author", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, s.Create(ctx, ref, target, &rebase.Note{Message: "reviewed-by: bob\n", Author: author}, sig("Committer", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))))

	note, err := s.Read(ctx, ref, target)
	require.NoError(t, err)
	require.Equal(t, "reviewed-by: bob\n", note.Message)
	require.Equal(t, "Author", note.Author.Name)
}

func TestReadMissingNoteReturnsNotFound(t *testing.T) {
	st := memory.NewStorage()
	dir := t.TempDir()
	s := New(st, refs.NewBackend(dir))
	_, err := s.Read(context.Background(), plumbing.ReferenceName("refs/notes/rewrite"), plumbing.NewHash("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"))
	require.ErrorIs(t, err, rebase.ErrNotFound)
}

func TestCreateTwiceChainsNotesCommit(t *testing.T) {
	st := memory.NewStorage()
	dir := t.TempDir()
	backend := refs.NewBackend(dir)
	s := New(st, backend)
	ctx := context.Background()
	ref := plumbing.ReferenceName("refs/notes/rewrite")
	committer := sig("Committer", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	t1 := plumbing.NewHash("1111111111111111111111111111111111111111")
	t2 := plumbing.NewHash("2222222222222222222222222222222222222222")

	require.NoError(t, s.Create(ctx, ref, t1, &rebase.Note{Message: "first", Author: committer}, committer))
	require.NoError(t, s.Create(ctx, ref, t2, &rebase.Note{Message: "second", Author: committer}, committer))

	n1, err := s.Read(ctx, ref, t1)
	require.NoError(t, err)
	require.Equal(t, "first", n1.Message)
	n2, err := s.Read(ctx, ref, t2)
	require.NoError(t, err)
	require.Equal(t, "second", n2.Message)

	r, err := backend.Reference(ref)
	require.NoError(t, err)
	commit, err := object.GetCommit(st, r.Hash())
	require.NoError(t, err)
	require.Len(t, commit.ParentHashes, 1)
}
