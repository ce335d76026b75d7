// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// ResolveCmd stages the working tree's current content at path as the
// resolution for whatever conflict Next left there.
type ResolveCmd struct {
	Path string `arg:"" help:"Path to stage the working tree's content for"`
}

func (c *ResolveCmd) Run(g *Globals) error {
	r, err := openRepo(g)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(g.WorkDir, c.Path))
	if err != nil {
		return fmt.Errorf("read %s: %w", c.Path, err)
	}
	oid, err := writeBlob(r.Objects, data)
	if err != nil {
		return fmt.Errorf("store blob for %s: %w", c.Path, err)
	}
	if err := r.Engine.Resolve(context.Background(), c.Path, oid); err != nil {
		return err
	}
	fmt.Printf("staged resolution for %s\n", c.Path)
	return nil
}

func writeBlob(objects storer.EncodedObjectStorer, data []byte) (plumbing.Hash, error) {
	obj := objects.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}
	return objects.SetEncodedObject(obj)
}
