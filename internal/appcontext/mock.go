package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/bomsync"
	"github.com/agentstation/bomsync/internal/files"
	"github.com/agentstation/bomsync/pkg/upload"
)

// Mock provides a mock implementation of Interface for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default value.
type Mock struct {
	WorkspaceFunc    func() (*files.Workspace, error)
	BomsyncFunc      func(*files.Workspace, ...bomsync.Option) (bomsync.Bomsync, *files.Stores, error)
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	VersionFunc      func() string
	CommitFunc       func() string
	DateFunc         func() string
	BuiltByFunc      func() string
}

var _ Interface = (*Mock)(nil)

// Workspace returns a workspace using the mock function or an empty one.
func (m *Mock) Workspace() (*files.Workspace, error) {
	if m.WorkspaceFunc != nil {
		return m.WorkspaceFunc()
	}
	return &files.Workspace{}, nil
}

// Bomsync returns an instance using the mock function, or one served from
// the workspace stores without call pacing or retry delays.
func (m *Mock) Bomsync(ws *files.Workspace, opts ...bomsync.Option) (bomsync.Bomsync, *files.Stores, error) {
	if m.BomsyncFunc != nil {
		return m.BomsyncFunc(ws, opts...)
	}
	stores := ws.Stores()
	base := []bomsync.Option{
		bomsync.WithBoms(stores.Boms),
		bomsync.WithCatalogs(stores.Catalogs),
		bomsync.WithSuppliers(stores.Providers()...),
		bomsync.WithSupplierPriority(ws.Suppliers()...),
		bomsync.WithUploadOptions(upload.WithCallDelay(0), upload.WithRetryBackoff(0, 0)),
	}
	bs, err := bomsync.New(append(base, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	return bs, stores, nil
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns the format using the mock function or "json".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "json"
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns commit using the mock function or "unknown".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "unknown"
}

// Date returns date using the mock function or "unknown".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// BuiltBy returns builtBy using the mock function or "unknown".
func (m *Mock) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "unknown"
}
