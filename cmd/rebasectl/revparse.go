// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/nrdev/rebasekit/modules/refs"
	"github.com/nrdev/rebasekit/pkg/rebase"
)

func tryHash(s string) plumbing.Hash {
	if len(s) != 40 {
		return plumbing.ZeroHash
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return plumbing.ZeroHash
		}
	}
	return plumbing.NewHash(s)
}

// revparseTip resolves raw (a full hash, a short branch/tag name, or
// "HEAD") to a CommitTip, following git's rev-parse disambiguation
// order for short names (modules/refs/rules.go).
func revparseTip(backend refs.Backend, raw string) (rebase.CommitTip, error) {
	if h := tryHash(raw); !h.IsZero() {
		return rebase.CommitTip{Hash: h, Str: raw}, nil
	}
	if raw == "HEAD" {
		head, err := backend.HEAD()
		if err != nil {
			return rebase.CommitTip{}, fmt.Errorf("resolve HEAD: %w", err)
		}
		if head == nil {
			return rebase.CommitTip{}, fmt.Errorf("HEAD is unborn")
		}
		if head.Type() == plumbing.HashReference {
			return rebase.CommitTip{Hash: head.Hash(), Str: raw}, nil
		}
		branch := head.Target()
		resolved, err := refs.ReferenceResolve(backend, branch)
		if err != nil {
			return rebase.CommitTip{}, fmt.Errorf("resolve %s: %w", branch, err)
		}
		return rebase.CommitTip{Hash: resolved.Hash(), Str: raw, RefName: branch}, nil
	}

	name := plumbing.ReferenceName(raw)
	for _, r := range refs.RefRevParseRules() {
		candidate := r.ReferenceName(raw)
		if _, err := backend.Reference(candidate); err == nil {
			name = candidate
			break
		}
	}
	ref, err := refs.ReferenceResolve(backend, name)
	if err != nil {
		return rebase.CommitTip{}, fmt.Errorf("revparse %q: %w", raw, err)
	}
	return rebase.CommitTip{Hash: ref.Hash(), Str: raw, RefName: name}, nil
}
