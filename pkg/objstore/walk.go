// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package objstore

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Walk implements the RevWalker port: commits reachable from tip, minus
// commits reachable from any hash in hide (and their ancestors),
// topologically sorted (children before their parents are never
// emitted out of order) with a reverse-chronological tie-break among
// commits with no pending dependency, oldest first in the returned
// slice — the same shape as the teacher's
// `w.revList(ctx, our, ignore, LogOrderTopo, nil)` call in
// worktree_rebase.go, generalized from libgit2's
// git_revwalk_push/hide/sorting.
func (s *Store) Walk(ctx context.Context, tip plumbing.Hash, hide []plumbing.Hash) ([]*object.Commit, error) {
	excluded := make(map[plumbing.Hash]bool)
	for _, h := range hide {
		if err := collectAncestors(ctx, s, h, excluded); err != nil {
			return nil, err
		}
	}

	included := make(map[plumbing.Hash]*object.Commit)
	if err := collectIncluded(ctx, s, tip, excluded, included); err != nil {
		return nil, err
	}

	indegree := make(map[plumbing.Hash]int, len(included))
	for h := range included {
		indegree[h] = 0
	}
	for _, c := range included {
		for _, p := range c.ParentHashes {
			if _, ok := included[p]; ok {
				indegree[p]++
			}
		}
	}

	pq := &commitHeap{}
	heap.Init(pq)
	for h, c := range included {
		if indegree[h] == 0 {
			heap.Push(pq, c)
		}
	}

	order := make([]*object.Commit, 0, len(included))
	for pq.Len() > 0 {
		c := heap.Pop(pq).(*object.Commit)
		order = append(order, c)
		for _, p := range c.ParentHashes {
			pc, ok := included[p]
			if !ok {
				continue
			}
			indegree[p]--
			if indegree[p] == 0 {
				heap.Push(pq, pc)
			}
		}
	}

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

func collectAncestors(ctx context.Context, s *Store, tip plumbing.Hash, seen map[plumbing.Hash]bool) error {
	if tip.IsZero() || seen[tip] {
		return nil
	}
	seen[tip] = true
	c, err := s.Commit(ctx, tip)
	if err != nil {
		return fmt.Errorf("walk ancestors of %s: %w", tip, err)
	}
	for _, p := range c.ParentHashes {
		if err := collectAncestors(ctx, s, p, seen); err != nil {
			return err
		}
	}
	return nil
}

func collectIncluded(ctx context.Context, s *Store, tip plumbing.Hash, excluded map[plumbing.Hash]bool, included map[plumbing.Hash]*object.Commit) error {
	if tip.IsZero() || excluded[tip] {
		return nil
	}
	if _, ok := included[tip]; ok {
		return nil
	}
	c, err := s.Commit(ctx, tip)
	if err != nil {
		return fmt.Errorf("walk commits from %s: %w", tip, err)
	}
	included[tip] = c
	for _, p := range c.ParentHashes {
		if err := collectIncluded(ctx, s, p, excluded, included); err != nil {
			return err
		}
	}
	return nil
}

// commitHeap is a max-heap by commit time, giving the reverse-
// chronological tie-break among commits with no pending dependency.
type commitHeap []*object.Commit

func (h commitHeap) Len() int { return len(h) }
func (h commitHeap) Less(i, j int) bool {
	return h[i].Committer.When.After(h[j].Committer.When)
}
func (h commitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *commitHeap) Push(x any) {
	*h = append(*h, x.(*object.Commit))
}

func (h *commitHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
