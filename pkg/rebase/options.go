// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package rebase

import (
	"github.com/nrdev/rebasekit/modules/config"
)

// NormalizeOptions validates the caller's option struct and resolves
// RewriteNotesRef per §4.G: caller override, else notes.rewrite.rebase
// (default true) gated read of notes.rewriteref (default none).
func NormalizeOptions(opts *Options, cfg *config.Config) (*Options, error) {
	o := &Options{Version: EngineVersion}
	if opts != nil {
		if opts.Version != 0 && opts.Version != EngineVersion {
			return nil, newErrUnsupported("options struct version mismatch")
		}
		o.Quiet = opts.Quiet
		if opts.RewriteNotesRef != "" {
			o.RewriteNotesRef = opts.RewriteNotesRef
			return o, nil
		}
	}
	if cfg == nil {
		return o, nil
	}
	rewriteEnabled := cfg.Notes.RewriteRebase.IsUnset() || cfg.Notes.RewriteRebase.True()
	if rewriteEnabled {
		o.RewriteNotesRef = cfg.Notes.RewriteRef
	}
	return o, nil
}
