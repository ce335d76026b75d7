// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package refs

import (
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
)

// DB is an in-memory snapshot of a reference database.
type DB struct {
	references []*plumbing.Reference
	cache      map[plumbing.ReferenceName]*plumbing.Reference
	head       *plumbing.Reference
}

func (d *DB) References() []*plumbing.Reference {
	return d.references
}

func (d *DB) Sort() {
	sort.Slice(d.references, func(i, j int) bool {
		return d.references[i].Name() < d.references[j].Name()
	})
}

func (d *DB) HEAD() *plumbing.Reference {
	return d.head
}

func (d *DB) Lookup(name string) *plumbing.Reference {
	for _, r := range refRevParseRules {
		if r, ok := d.cache[r.ReferenceName(name)]; ok {
			return r
		}
	}
	return nil
}

func (d *DB) Resolve(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	for range MaxResolveRecursion {
		r := d.Lookup(string(name))
		if r == nil {
			return nil, plumbing.ErrReferenceNotFound
		}
		if r.Type() == plumbing.HashReference {
			return r, nil
		}
		if r.Type() != plumbing.SymbolicReference {
			return nil, plumbing.ErrReferenceNotFound
		}
		name = r.Target()
	}
	return nil, plumbing.ErrReferenceNotFound
}

// ShortName returns the shortest unambiguous name for refname, following
// git's shorten_unambiguous_ref rules.
func (d *DB) ShortName(refname plumbing.ReferenceName, strict bool) string {
	for i := len(refRevParseRules) - 1; i > 0; i-- {
		var j int
		rulesToFail := 1
		shortName := refRevParseRules[i].ShortName(string(refname))
		if len(shortName) == 0 {
			continue
		}
		if strict {
			rulesToFail = len(refRevParseRules)
		}
		for j = 0; j < rulesToFail; j++ {
			if i == j {
				continue
			}
			if d.Exists(refRevParseRules[j].ReferenceName(shortName)) {
				break
			}
		}
		if j == rulesToFail {
			return shortName
		}
	}
	return string(refname)
}

func (d *DB) Exists(refname plumbing.ReferenceName) bool {
	_, ok := d.cache[refname]
	return ok
}

func (d *DB) IsCurrent(refname plumbing.ReferenceName) bool {
	return d.head != nil && d.head.Name() == refname
}
