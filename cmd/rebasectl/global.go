// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/nrdev/rebasekit/modules/trace"
)

// Globals carries the flags every subcommand shares: where the
// repository's metadata lives, where its working files live, and
// whether to narrate internal steps.
type Globals struct {
	GitDir  string `name:"git-dir" help:"Path to the repository's metadata directory" default:".git"`
	WorkDir string `name:"work-tree" help:"Path to the working tree root" default:"."`
	Verbose bool   `short:"V" name:"verbose" help:"Make the operation more talkative"`
}

func (g *Globals) DbgPrint(format string, args ...any) {
	if !g.Verbose {
		return
	}
	trace.DbgPrint(format, args...)
}
