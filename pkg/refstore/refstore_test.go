package refstore

import (
	"context"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/nrdev/rebasekit/modules/reflog"
	"github.com/nrdev/rebasekit/modules/refs"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	return New(refs.NewBackend(dir), reflog.NewDB(dir), nil), dir
}

func TestSetHeadDirectWritesReflog(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()
	h := plumbing.NewHash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	require.NoError(t, s.SetHeadDirect(ctx, h, "rebase: checkout onto"))

	backend := refs.NewBackend(dir)
	ref, err := backend.HEAD()
	require.NoError(t, err)
	require.Equal(t, h, ref.Hash())

	log, err := reflog.NewDB(dir).Read(plumbing.HEAD)
	require.NoError(t, err)
	require.Len(t, log.Entries, 1)
	require.Equal(t, h, log.Entries[0].N)
	require.True(t, log.Entries[0].O.IsZero())
}

func TestUpdateCASRejectsStaleOld(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	name := plumbing.ReferenceName("refs/heads/main")
	a := plumbing.NewHash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b := plumbing.NewHash("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	c := plumbing.NewHash("cccccccccccccccccccccccccccccccccccccccc")

	require.NoError(t, s.UpdateCAS(ctx, name, plumbing.ZeroHash, a, "init"))
	require.Error(t, s.UpdateCAS(ctx, name, b, c, "stale"))
	require.NoError(t, s.UpdateCAS(ctx, name, a, c, "advance"))
}

func TestPeelHeadToCommit(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	h := plumbing.NewHash("dddddddddddddddddddddddddddddddddddddddd")
	require.NoError(t, s.SetHeadDirect(ctx, h, "rebase: init"))
	peeled, err := s.PeelHeadToCommit(ctx)
	require.NoError(t, err)
	require.Equal(t, h, peeled)
}
