// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/filesystem/dotgit"
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
)

// repo bundles the wired engine plus the handles its subcommands need
// beyond the engine's own ports: the object store (to turn a path
// string into a blob for Resolve) and the reference backend (to
// rev-parse command-line arguments).
type repo struct {
	Engine  *rebase.Engine
	Objects storer.EncodedObjectStorer
	Backend refs.Backend
}

func openRepo(g *Globals) (*repo, error) {
	objects := filesystem.NewStorage(dotgit.New(osfs.New(g.GitDir)), cache.NewObjectLRUDefault())
	backend := refs.NewBackend(g.GitDir)
	reflogs := reflog.NewDB(g.GitDir)
	rs := refstore.New(backend, reflogs, defaultSignature)
	store := objstore.New(objects)

	cfg, err := config.Load(g.GitDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	eng := &rebase.Engine{
		RepoDir: g.GitDir,
		Store:   store,
		Walker:  store,
		Merger:  merge3.New(),
		Tree:    worktree.New(g.WorkDir, objects),
		Refs:    rs,
		Reflog:  rs,
		Notes:   notes.New(objects, backend),
		NewIdx:  func() rebase.Index { return index.New(objects) },
		Config:  cfg,
		Verbose: g.Verbose,
	}
	return &repo{Engine: eng, Objects: objects, Backend: backend}, nil
}

// defaultSignature stamps rebasectl's own identity onto ref updates and
// reflog entries it writes directly (as opposed to commits, which carry
// the original author's identity forward per §4.E).
func defaultSignature() object.Signature {
	return object.Signature{Name: "rebasectl", Email: "rebasectl@localhost", When: time.Now()}
}
