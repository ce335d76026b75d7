package objstore

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

// TestWalkLinearHistory builds master=A<-B, topic=A<-X<-Y<-Z and checks
// that Walk(Z, [B]) returns X,Y,Z oldest first (S1 from the rebase
// engine's universal properties).
func TestWalkLinearHistory(t *testing.T) {
	s := New(memory.NewStorage())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := writeCommit(t, s, "A\n", base)
	b := writeCommit(t, s, "B\n", base.Add(time.Hour), a)
	x := writeCommit(t, s, "X\n", base.Add(2*time.Hour), a)
	y := writeCommit(t, s, "Y\n", base.Add(3*time.Hour), x)
	z := writeCommit(t, s, "Z\n", base.Add(4*time.Hour), y)

	order, err := s.Walk(context.Background(), z, []plumbing.Hash{b})
	require.NoError(t, err)
	require.Len(t, order, 3)
	require.Equal(t, x, order[0].Hash)
	require.Equal(t, y, order[1].Hash)
	require.Equal(t, z, order[2].Hash)
}

// TestWalkKeepsMergeCommit checks that Walk itself returns merge commits;
// filtering them out of the pick list is left to its caller.
func TestWalkKeepsMergeCommit(t *testing.T) {
	s := New(memory.NewStorage())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := writeCommit(t, s, "A\n", base)
	q := writeCommit(t, s, "Q\n", base.Add(time.Hour), a)
	x := writeCommit(t, s, "X\n", base.Add(2*time.Hour), a)
	m := writeCommit(t, s, "M\n", base.Add(3*time.Hour), x, q)

	order, err := s.Walk(context.Background(), m, nil)
	require.NoError(t, err)
	require.Len(t, order, 4)
	require.Equal(t, m, order[len(order)-1].Hash)
}
