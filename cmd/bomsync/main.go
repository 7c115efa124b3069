// Package main provides the entry point for the bomsync CLI tool.
package main

import (
	"context"
	"os"

	"github.com/agentstation/bomsync/cmd/bomsync/app"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	application, err := app.New(version, commit, date, builtBy)
	if err != nil {
		app.ExitOnError(err)
	}

	// Cancelling on SIGINT lets a running upload stop between calls and
	// report partial progress.
	ctx, cancel := app.ContextWithSignals(context.Background())
	defer cancel()

	err = application.Execute(ctx, os.Args[1:])
	if shutdownErr := application.Shutdown(ctx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	app.ExitOnError(err)
}
