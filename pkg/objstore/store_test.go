package objstore

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

func sig(name string, when time.Time) object.Signature {
	return object.Signature{Name: name, Email: name + "@example.io", When: when}
}

func writeCommit(t *testing.T, s *Store, msg string, when time.Time, parents ...plumbing.Hash) plumbing.Hash {
	t.Helper()
	oid, err := s.WriteCommit(context.Background(), &object.Commit{
		Author:       sig("bob", when),
		Committer:    sig("bob", when),
		ParentHashes: parents,
		TreeHash:     plumbing.ZeroHash,
		Message:      msg,
	})
	require.NoError(t, err)
	return oid
}

func TestWriteAndReadCommit(t *testing.T) {
	s := New(memory.NewStorage())
	oid := writeCommit(t, s, "initial\n", time.Now())
	c, err := s.Commit(context.Background(), oid)
	require.NoError(t, err)
	require.Equal(t, "initial\n", c.Message)
}

func TestTreeZeroHash(t *testing.T) {
	s := New(memory.NewStorage())
	tr, err := s.Tree(context.Background(), plumbing.ZeroHash)
	require.NoError(t, err)
	require.Empty(t, tr.Entries)
}
