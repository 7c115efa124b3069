// Package appcontext provides the application context interface shared by
// all CLI commands. Commands accept this interface rather than the concrete
// App type so they can be tested with fakes.
package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/bomsync"
	"github.com/agentstation/bomsync/internal/files"
)

// Interface defines what commands need from the application.
type Interface interface {
	// Workspace loads the configured workspace file.
	Workspace() (*files.Workspace, error)

	// Bomsync creates an instance wired to the remote catalog service when
	// one is configured, and otherwise to stores served from the workspace.
	// The returned stores are nil in the remote case.
	Bomsync(ws *files.Workspace, opts ...bomsync.Option) (bomsync.Bomsync, *files.Stores, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
