package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/parts"
	"github.com/agentstation/bomsync/pkg/upload"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Workspace file
	Workspace string

	// Upload tuning
	BatchSize        int
	MaxRetries       int
	ProbeConcurrency int
	CacheTTL         time.Duration
	CallDelay        time.Duration
	RetryBackoff     time.Duration
	MaxRetryBackoff  time.Duration
	SupplierPriority []string

	// Remote catalog service
	CatalogServiceURL    string
	CatalogServiceAPIKey string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (BOMSYNC_ prefix)
// 3. .env files
// 4. Config file (~/.bomsync.yaml or the given file)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix("bomsync")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "reading "+configFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(constants.DefaultConfigName)
		// A missing config file is fine.
		_ = v.ReadInConfig()
	}

	return &Config{
		ConfigFile: v.ConfigFileUsed(),
		Format:     v.GetString("format"),

		Workspace: v.GetString("workspace"),

		BatchSize:        v.GetInt("batch_size"),
		MaxRetries:       v.GetInt("max_retries"),
		ProbeConcurrency: v.GetInt("probe_concurrency"),
		CacheTTL:         v.GetDuration("cache_ttl"),
		CallDelay:        v.GetDuration("call_delay"),
		RetryBackoff:     v.GetDuration("retry_backoff"),
		MaxRetryBackoff:  v.GetDuration("max_retry_backoff"),
		SupplierPriority: v.GetStringSlice("supplier_priority"),

		CatalogServiceURL:    v.GetString("catalog_service_url"),
		CatalogServiceAPIKey: v.GetString("catalog_service_api_key"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", v.GetString("log_level")),
		LogFormat: getEnvOrDefault("LOG_FORMAT", v.GetString("log_format")),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", v.GetString("log_output")),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workspace", constants.DefaultWorkspaceFile)
	v.SetDefault("batch_size", constants.DefaultBatchSize)
	v.SetDefault("max_retries", constants.MaxRetries)
	v.SetDefault("probe_concurrency", constants.DefaultProbeConcurrency)
	v.SetDefault("cache_ttl", constants.CatalogCacheTTL)
	v.SetDefault("call_delay", constants.DefaultCallDelay)
	v.SetDefault("retry_backoff", constants.RetryBackoff)
	v.SetDefault("max_retry_backoff", constants.MaxRetryBackoff)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// UpdateFromFlags updates config values from parsed command flags so flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel, workspace string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if workspace != "" {
		c.Workspace = workspace
	}
}

// UploadOptions converts the upload tuning to orchestrator options.
func (c *Config) UploadOptions() []upload.Option {
	opts := []upload.Option{
		upload.WithBatchSize(c.BatchSize),
		upload.WithMaxRetries(c.MaxRetries),
		upload.WithProbeConcurrency(c.ProbeConcurrency),
		upload.WithCacheTTL(c.CacheTTL),
		upload.WithCallDelay(c.CallDelay),
		upload.WithRetryBackoff(c.RetryBackoff, c.MaxRetryBackoff),
	}
	return opts
}

// Priority returns the configured supplier priority. Entries may also be
// comma separated, as they are when set through BOMSYNC_SUPPLIER_PRIORITY.
func (c *Config) Priority() []parts.SupplierID {
	ids := make([]parts.SupplierID, 0, len(c.SupplierPriority))
	for _, entry := range c.SupplierPriority {
		for s := range strings.SplitSeq(entry, ",") {
			if s = strings.TrimSpace(s); s != "" {
				ids = append(ids, parts.SupplierID(s))
			}
		}
	}
	return ids
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
