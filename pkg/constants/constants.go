// Package constants provides shared constants used throughout the bomsync
// codebase: pipeline tunables, timeouts, file permissions and property keys
// that should be consistent across packages.
package constants

import "time"

// Pipeline tunables. Each has a matching functional option in pkg/upload.
const (
	// DefaultBatchSize is the number of part lines uploaded per batch
	DefaultBatchSize = 5

	// MaxRetries is the maximum number of attempts for a failed upload
	MaxRetries = 3

	// DefaultProbeConcurrency bounds concurrent catalog existence checks
	DefaultProbeConcurrency = 5

	// CatalogCacheTTL is how long catalog listings and memberships stay fresh
	CatalogCacheTTL = 3 * time.Minute

	// CacheCleanupInterval is how often expired membership entries are purged
	CacheCleanupInterval = 5 * time.Minute

	// DefaultCallDelay is the mandatory pause between two writes to the same target
	DefaultCallDelay = 250 * time.Millisecond

	// RetryBackoff is the base backoff duration between retry rounds
	RetryBackoff = 1 * time.Second

	// MaxRetryBackoff is the maximum backoff duration between retry rounds
	MaxRetryBackoff = 30 * time.Second
)

// Timeout constants
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to the catalog service
	DefaultHTTPTimeout = 30 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 10 * time.Minute
)

// Rate limiting constants for the HTTP transport
const (
	// DefaultRequestsPerSecond is the client-side request rate against the catalog service
	DefaultRequestsPerSecond = 4

	// BurstSize is the token bucket burst size for the transport limiter
	BurstSize = 2
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Property keys written to catalog parts and read from BOM items.
const (
	PropertyQuantity           = "quantity"
	PropertySupplier           = "supplier"
	PropertySupplierPartNumber = "supplier_part_number"
	PropertyUnitPrice          = "unit_price"
	PropertyTotalPrice         = "total_price"
	PropertyProductURL         = "product_url"
	PropertyDatasheetURL       = "datasheet_url"
	PropertyImageURL           = "image_url"
	PropertyDescription        = "description"
)

// Path constants
const (
	// DefaultConfigName is the config file name searched in $HOME and the working directory
	DefaultConfigName = ".bomsync"

	// DefaultWorkspaceFile is the workspace file used when none is given
	DefaultWorkspaceFile = "bomsync.yaml"
)
