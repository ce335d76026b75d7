package refs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"
)

func TestBackendUpdateAndPack(t *testing.T) {
	repoPath := filepath.Join(t.TempDir(), "repo.zeta")
	require.NoError(t, os.MkdirAll(repoPath, 0755))
	b := NewBackend(repoPath)

	hash := plumbing.NewHash("adba50d9794b9ef3f7ec8cbc680f7f1fa3fbf9df")
	refs := []string{
		"refs/heads/mainline",
		"refs/heads/dev",
		"refs/tags/v1.0.0",
		"refs/remotes/origin/master",
	}
	for _, r := range refs {
		require.NoError(t, b.ReferenceUpdate(plumbing.NewHashReference(plumbing.ReferenceName(r), hash), nil))
	}
	require.NoError(t, b.Packed())

	newHash := plumbing.NewHash("d84149926219c5a85da48051f2b3ad296f3ade3")
	require.NoError(t, b.ReferenceUpdate(plumbing.NewHashReference("refs/heads/dev", newHash), nil))

	ref, err := b.Reference("refs/heads/dev")
	require.NoError(t, err)
	require.Equal(t, newHash, ref.Hash())
}

func TestReferenceUpdateCAS(t *testing.T) {
	repoPath := filepath.Join(t.TempDir(), "repo.zeta")
	require.NoError(t, os.MkdirAll(repoPath, 0755))
	b := NewBackend(repoPath)

	hashA := plumbing.NewHash("adba50d9794b9ef3f7ec8cbc680f7f1fa3fbf9df")
	hashB := plumbing.NewHash("d84149926219c5a85da48051f2b3ad296f3ade3")
	require.NoError(t, b.ReferenceUpdate(plumbing.NewHashReference("refs/heads/dev", hashA), nil))

	stale := plumbing.NewHashReference("refs/heads/dev", hashB)
	err := b.ReferenceUpdate(plumbing.NewHashReference("refs/heads/dev", hashB), stale)
	require.ErrorIs(t, err, ErrReferenceHasChanged)
}

func TestReferenceRemove(t *testing.T) {
	repoPath := filepath.Join(t.TempDir(), "repo.zeta")
	require.NoError(t, os.MkdirAll(repoPath, 0755))
	b := NewBackend(repoPath)
	hash := plumbing.NewHash("d84149926219c5a85da48051f2b3ad296f3ade3")
	ref := plumbing.NewHashReference("refs/heads/dev", hash)
	require.NoError(t, b.ReferenceUpdate(ref, nil))
	require.NoError(t, b.ReferenceRemove(ref))
	_, err := b.Reference("refs/heads/dev")
	require.Error(t, err)
}
