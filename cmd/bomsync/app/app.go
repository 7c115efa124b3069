// Package app provides the application context and dependency management
// for the bomsync CLI. It centralizes configuration, logging and the
// construction of Bomsync instances so commands only see appcontext.Interface.
package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/bomsync"
	"github.com/agentstation/bomsync/internal/appcontext"
	"github.com/agentstation/bomsync/internal/files"
	"github.com/agentstation/bomsync/internal/utils/ptr"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/parts"
)

// App represents the bomsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger
}

var _ appcontext.Interface = (*App)(nil)

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Workspace loads the configured workspace file.
func (a *App) Workspace() (*files.Workspace, error) {
	ws, err := files.Load(a.config.Workspace)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().
		Str("path", ws.Path()).
		Int("lines", len(ws.Lines)).
		Msg("Loaded workspace")
	return ws, nil
}

// Bomsync creates an instance for ws. With a catalog service URL configured
// the catalogs, BOMs and supplier quotes come from the service; otherwise
// they are served from the workspace file and the stores are returned so
// the caller can write them back.
func (a *App) Bomsync(ws *files.Workspace, opts ...bomsync.Option) (bomsync.Bomsync, *files.Stores, error) {
	base := []bomsync.Option{
		bomsync.WithUploadOptions(a.config.UploadOptions()...),
	}

	var stores *files.Stores
	if a.config.CatalogServiceURL != "" {
		suppliers := a.suppliers(ws)
		base = append(base,
			bomsync.WithRemoteService(a.config.CatalogServiceURL, ptr.NonZero(a.config.CatalogServiceAPIKey)),
			bomsync.WithRemoteSuppliers(suppliers...),
			bomsync.WithSupplierPriority(suppliers...),
		)
		a.logger.Debug().
			Str("url", a.config.CatalogServiceURL).
			Int("suppliers", len(suppliers)).
			Msg("Using remote catalog service")
	} else {
		stores = ws.Stores()
		base = append(base,
			bomsync.WithBoms(stores.Boms),
			bomsync.WithCatalogs(stores.Catalogs),
			bomsync.WithSuppliers(stores.Providers()...),
			bomsync.WithSupplierPriority(a.suppliers(ws)...),
		)
	}

	bs, err := bomsync.New(append(base, opts...)...)
	if err != nil {
		return nil, nil, errors.WrapResource("create", "bomsync", "", err)
	}
	return bs, stores, nil
}

// suppliers returns the configured priority, falling back to the
// workspace's own ordering.
func (a *App) suppliers(ws *files.Workspace) []parts.SupplierID {
	if ids := a.config.Priority(); len(ids) > 0 {
		return ids
	}
	return ws.Suppliers()
}

// Shutdown performs graceful shutdown of the application.
func (a *App) Shutdown(_ context.Context) error {
	a.logger.Debug().Msg("Shutting down")
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}
