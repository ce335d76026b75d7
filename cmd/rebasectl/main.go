// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// App is the rebasectl command tree: initiate a rebase, advance it one
// auto-replayed run at a time, stage a manual conflict resolution,
// abort back to the starting point, or inspect what's in progress.
type App struct {
	Globals
	Start    StartCmd    `cmd:"" help:"Begin replaying commits onto a new base"`
	Continue ContinueCmd `cmd:"" help:"Replay picks until the next conflict or completion"`
	Resolve  ResolveCmd  `cmd:"" help:"Stage the working tree's content as a conflict's resolution"`
	Abort    AbortCmd    `cmd:"" help:"Abort and restore the original branch"`
	Status   StatusCmd   `cmd:"" help:"Show the state of an in-progress rebase"`
}

func main() {
	var app App
	ctx := kong.Parse(&app,
		kong.Name("rebasectl"),
		kong.Description("Replay commits from one base onto another, entirely on disk and resumable"),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&app.Globals); err != nil {
		fmt.Fprintln(os.Stderr, "rebasectl:", err)
		os.Exit(1)
	}
}
