package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

const workspace = `
target:
  name: Main Board
lines:
  - id: r1
    ordering_code: RC0402
    requested_quantity: 8
quotes:
  digikey:
    rc0402:
      is_available: true
      price_breaks:
        - {minimum_quantity: 1, unit_price: "0.10"}
boms:
  - id: main
    name: Main Board
`

func newTestApp(t *testing.T, mutate func(*Config)) *App {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bomsync.yaml")
	if err := os.WriteFile(path, []byte(workspace), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	config.Workspace = path
	config.CatalogServiceURL = ""
	config.SupplierPriority = nil
	if mutate != nil {
		mutate(config)
	}

	logger := zerolog.Nop()
	app, err := New("1.0.0", "abc123", "2024-01-01", "test", WithConfig(config), WithLogger(&logger))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return app
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app, err := New("1.0.0", "abc123", "2024-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Commit() != "abc123" {
		t.Errorf("Commit() = %s, want abc123", app.Commit())
	}
	if app.Date() != "2024-01-01" {
		t.Errorf("Date() = %s, want 2024-01-01", app.Date())
	}
	if app.BuiltBy() != "test" {
		t.Errorf("BuiltBy() = %s, want test", app.BuiltBy())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Error("Config() returned nil")
	}
}

// TestApp_LocalStores verifies that without a catalog service the
// workspace stores back the instance.
func TestApp_LocalStores(t *testing.T) {
	app := newTestApp(t, nil)

	ws, err := app.Workspace()
	if err != nil {
		t.Fatalf("Workspace() failed: %v", err)
	}
	if len(ws.Lines) != 1 {
		t.Fatalf("Workspace() lines = %d, want 1", len(ws.Lines))
	}

	bs, stores, err := app.Bomsync(ws)
	if err != nil {
		t.Fatalf("Bomsync() failed: %v", err)
	}
	if stores == nil {
		t.Fatal("Bomsync() returned nil stores for a local workspace")
	}
	if bs.Cache() == nil {
		t.Error("Cache() should be set with the workspace catalog store")
	}
	if len(stores.Suppliers) != 1 {
		t.Errorf("stores.Suppliers = %d, want 1", len(stores.Suppliers))
	}
}

// TestApp_RemoteService verifies that a catalog service URL replaces the
// workspace stores.
func TestApp_RemoteService(t *testing.T) {
	app := newTestApp(t, func(c *Config) {
		c.CatalogServiceURL = "https://catalog.example.com/api"
		c.CatalogServiceAPIKey = "secret"
		c.SupplierPriority = []string{"mouser"}
	})

	ws, err := app.Workspace()
	if err != nil {
		t.Fatalf("Workspace() failed: %v", err)
	}
	bs, stores, err := app.Bomsync(ws)
	if err != nil {
		t.Fatalf("Bomsync() failed: %v", err)
	}
	if stores != nil {
		t.Error("Bomsync() returned stores for a remote service")
	}
	if bs.Cache() == nil {
		t.Error("Cache() should be set with a remote catalog store")
	}
}

// TestApp_MissingWorkspace verifies a missing workspace file is reported.
func TestApp_MissingWorkspace(t *testing.T) {
	app := newTestApp(t, func(c *Config) {
		c.Workspace = filepath.Join(t.TempDir(), "nope.yaml")
	})
	if _, err := app.Workspace(); err == nil {
		t.Error("Workspace() should fail for a missing file")
	}
}

// TestApp_RootCommand verifies the registered subcommands.
func TestApp_RootCommand(t *testing.T) {
	app := newTestApp(t, nil)
	root := app.createRootCommand()

	for _, name := range []string{"optimize", "reconcile", "upload", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
	for _, flag := range []string{"config", "verbose", "quiet", "no-color", "format", "log-level", "workspace"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag %q not defined", flag)
		}
	}
}
