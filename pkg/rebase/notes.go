// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package rebase

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// propagateNotes implements §4.F's note propagation: disabled if no
// rewrite ref is configured; otherwise, for each (old,new) pair in the
// rewrite log, copy the note under old (if any) to new with the same
// message and original author, signed by committer.
func (e *Engine) propagateNotes(ctx context.Context, stateDir string, opts *Options, committer object.Signature) error {
	if opts.RewriteNotesRef == "" {
		return nil
	}
	pairs, err := readRewrittenLines(stateDir)
	if err != nil {
		return err
	}
	ref := plumbing.ReferenceName(opts.RewriteNotesRef)
	for _, pair := range pairs {
		oldOID, newOID := pair[0], pair[1]
		note, err := e.Notes.Read(ctx, ref, oldOID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return fmt.Errorf("read note for %s: %w", oldOID, err)
		}
		if note == nil {
			continue
		}
		if err := e.Notes.Create(ctx, ref, newOID, note, committer); err != nil {
			return fmt.Errorf("create note for %s: %w", newOID, err)
		}
	}
	return nil
}
