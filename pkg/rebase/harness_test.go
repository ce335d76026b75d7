package rebase_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/nrdev/rebasekit/modules/config"
	"github.com/nrdev/rebasekit/modules/reflog"
	"github.com/nrdev/rebasekit/modules/refs"
	"github.com/nrdev/rebasekit/pkg/index"
	"github.com/nrdev/rebasekit/pkg/merge3"
	"github.com/nrdev/rebasekit/pkg/notes"
	"github.com/nrdev/rebasekit/pkg/objstore"
	"github.com/nrdev/rebasekit/pkg/rebase"
	"github.com/nrdev/rebasekit/pkg/refstore"
	"github.com/nrdev/rebasekit/pkg/worktree"
	"github.com/stretchr/testify/require"
)

// harness wires one instance of every concrete adapter together, the
// same way cmd/rebasectl's openRepo does, so the engine's operations
// exercise the real collaborators rather than stubs.
type harness struct {
	t       *testing.T
	gitDir  string
	workDir string
	objects *memory.Storage
	backend refs.Backend
	wt      *worktree.Tree
	engine  *rebase.Engine
}

func testSignature() object.Signature {
	return object.Signature{Name: "tester", Email: "tester@example.com", When: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gitDir := t.TempDir()
	workDir := t.TempDir()
	objects := memory.NewStorage()
	backend := refs.NewBackend(gitDir)
	reflogs := reflog.NewDB(gitDir)
	rs := refstore.New(backend, reflogs, testSignature)
	store := objstore.New(objects)
	wt := worktree.New(workDir, objects)

	return &harness{
		t:       t,
		gitDir:  gitDir,
		workDir: workDir,
		objects: objects,
		backend: backend,
		wt:      wt,
		engine: &rebase.Engine{
			RepoDir: gitDir,
			Store:   store,
			Walker:  store,
			Merger:  merge3.New(),
			Tree:    wt,
			Refs:    rs,
			Reflog:  rs,
			Notes:   notes.New(objects, backend),
			NewIdx:  func() rebase.Index { return index.New(objects) },
			Config:  &config.Config{},
		},
	}
}

func (h *harness) blob(content string) plumbing.Hash {
	h.t.Helper()
	obj := h.objects.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	require.NoError(h.t, err)
	_, err = w.Write([]byte(content))
	require.NoError(h.t, err)
	require.NoError(h.t, w.Close())
	hash, err := h.objects.SetEncodedObject(obj)
	require.NoError(h.t, err)
	return hash
}

func te(name string, hash plumbing.Hash) object.TreeEntry {
	return object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: hash}
}

func (h *harness) buildTree(entries ...object.TreeEntry) plumbing.Hash {
	h.t.Helper()
	tr := &object.Tree{Entries: entries}
	obj := h.objects.NewEncodedObject()
	require.NoError(h.t, tr.Encode(obj))
	hash, err := h.objects.SetEncodedObject(obj)
	require.NoError(h.t, err)
	return hash
}

func (h *harness) commit(treeHash plumbing.Hash, parents []plumbing.Hash, msg string) plumbing.Hash {
	h.t.Helper()
	sig := testSignature()
	c := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      msg,
		TreeHash:     treeHash,
		ParentHashes: parents,
	}
	obj := h.objects.NewEncodedObject()
	require.NoError(h.t, c.Encode(obj))
	hash, err := h.objects.SetEncodedObject(obj)
	require.NoError(h.t, err)
	return hash
}

func (h *harness) setRef(name plumbing.ReferenceName, hash plumbing.Hash) {
	h.t.Helper()
	require.NoError(h.t, h.backend.ReferenceUpdate(plumbing.NewHashReference(name, hash), nil))
}

func (h *harness) setHeadSymbolic(target plumbing.ReferenceName) {
	h.t.Helper()
	require.NoError(h.t, h.backend.ReferenceUpdate(plumbing.NewSymbolicReference(plumbing.HEAD, target), nil))
}

func (h *harness) setHeadDirect(hash plumbing.Hash) {
	h.t.Helper()
	require.NoError(h.t, h.backend.ReferenceUpdate(plumbing.NewHashReference(plumbing.HEAD, hash), nil))
}

func (h *harness) resolve(name plumbing.ReferenceName) plumbing.Hash {
	h.t.Helper()
	ref, err := refs.ReferenceResolve(h.backend, name)
	require.NoError(h.t, err)
	return ref.Hash()
}

// checkoutTree writes treeHash's blobs into the working directory,
// mirroring the state a real checkout of that tree would have left.
func (h *harness) checkoutTree(treeHash plumbing.Hash) {
	h.t.Helper()
	tr, err := object.GetTree(h.objects, treeHash)
	require.NoError(h.t, err)
	require.NoError(h.t, h.wt.CheckoutTree(context.Background(), tr, true))
}

// parentChain walks first-parent links from tip back to (and
// including) the root, returning the hashes in tip-first order.
func (h *harness) parentChain(tip plumbing.Hash) []plumbing.Hash {
	h.t.Helper()
	var chain []plumbing.Hash
	cur := tip
	for !cur.IsZero() {
		chain = append(chain, cur)
		c, err := object.GetCommit(h.objects, cur)
		require.NoError(h.t, err)
		if c.NumParents() == 0 {
			break
		}
		cur = c.ParentHashes[0]
	}
	return chain
}

// readRewritten parses the rewrite log directly off disk, the way an
// external tool inspecting the bit-exact layout would.
func (h *harness) readRewritten() [][2]plumbing.Hash {
	h.t.Helper()
	data, err := os.ReadFile(filepath.Join(h.gitDir, "rebase-merge", "rewritten"))
	require.NoError(h.t, err)
	var pairs [][2]plumbing.Hash
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		require.Len(h.t, fields, 2, fmt.Sprintf("malformed rewritten line %q", line))
		pairs = append(pairs, [2]plumbing.Hash{plumbing.NewHash(fields[0]), plumbing.NewHash(fields[1])})
	}
	return pairs
}

// readPlan reads every cmt.<i> file in walk order directly off disk.
func (h *harness) readPlan() []plumbing.Hash {
	h.t.Helper()
	endData, err := os.ReadFile(filepath.Join(h.gitDir, "rebase-merge", "end"))
	require.NoError(h.t, err)
	end := strings.TrimSpace(string(endData))
	var n int
	_, scanErr := fmt.Sscanf(end, "%d", &n)
	require.NoError(h.t, scanErr)
	plan := make([]plumbing.Hash, 0, n)
	for i := 1; i <= n; i++ {
		data, err := os.ReadFile(filepath.Join(h.gitDir, "rebase-merge", fmt.Sprintf("cmt.%d", i)))
		require.NoError(h.t, err)
		plan = append(plan, plumbing.NewHash(strings.TrimSpace(string(data))))
	}
	return plan
}

func (h *harness) stateDirExists() bool {
	h.t.Helper()
	_, err := os.Stat(filepath.Join(h.gitDir, "rebase-merge"))
	return err == nil
}

func (h *harness) readFile(path string) string {
	h.t.Helper()
	data, err := os.ReadFile(filepath.Join(h.workDir, path))
	require.NoError(h.t, err)
	return string(data)
}

// writeFile writes content directly into dir/path, simulating an
// uncommitted edit a human made to the working tree.
func writeFile(dir, path, content string) error {
	return os.WriteFile(filepath.Join(dir, path), []byte(content), 0o644)
}
