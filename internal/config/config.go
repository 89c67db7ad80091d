// Package config provides configuration loading and management for the catalog sync tool.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opendata-sync/catalog-sync/internal/telemetry"
)

// EnvPrefix is the prefix of every environment variable read by the tool
const EnvPrefix = "CATALOG_SYNC"

const (
	// StoreTypeMongo stores items as documents in a MongoDB collection
	StoreTypeMongo = "mongo"

	// StoreTypePostgres stores items as JSONB documents in PostgreSQL
	StoreTypePostgres = "postgres"
)

const (
	defaultPageSize        = 100
	defaultCatalogTimeout  = 30 * time.Second
	defaultCatalogRetries  = 3
	defaultResourceTimeout = 30 * time.Second
	defaultMainCollection  = "items"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Catalog        CatalogConfig         `yaml:"catalog"`
	Store          StoreConfig           `yaml:"store"`
	Cache          *CacheConfig          `yaml:"cache,omitempty"`
	Resources      *ResourcesConfig      `yaml:"resources,omitempty"`
	Parsers        *ParsersConfig        `yaml:"parsers,omitempty"`
	PostProcessors []PostProcessorConfig `yaml:"postProcessors,omitempty"`
	Sync           SyncConfig            `yaml:"sync"`
	Notify         *NotifyConfig         `yaml:"notify,omitempty"`
	Telemetry      *telemetry.Config     `yaml:"telemetry,omitempty"`

	// StatusDir is where the summary of the last run is written.
	// Empty disables file persistence.
	StatusDir string `yaml:"statusDir,omitempty"`
}

// CatalogConfig defines how the remote CKAN catalog is reached
type CatalogConfig struct {
	// Server is the base URL of the CKAN instance, e.g. https://data.example.org
	Server string `yaml:"server"`

	// PageSize is the number of packages requested per export page
	PageSize int `yaml:"pageSize,omitempty"`

	// Timeout bounds every single catalog request (e.g. "30s")
	Timeout string `yaml:"timeout,omitempty"`

	// MaxRetries is the number of attempts for a failing catalog request
	MaxRetries uint `yaml:"maxRetries,omitempty"`

	// Filter restricts the packages taking part in the sync
	Filter *FilterConfig `yaml:"filter,omitempty"`
}

// FilterConfig defines filtering rules for catalog packages
type FilterConfig struct {
	Names *NameFilterConfig `yaml:"names,omitempty"`
	Tags  *TagFilterConfig  `yaml:"tags,omitempty"`
}

// NameFilterConfig defines glob based filtering on package names
type NameFilterConfig struct {
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// TagFilterConfig defines tag-based filtering
type TagFilterConfig struct {
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// StoreConfig defines the document store receiving the items
type StoreConfig struct {
	// Type is either "mongo" (default) or "postgres"
	Type string `yaml:"type,omitempty"`

	// URL is the MongoDB connection string
	URL string `yaml:"url,omitempty"`

	// Database is the MongoDB database name
	Database string `yaml:"database,omitempty"`

	// MainCollection receives the synced items
	MainCollection string `yaml:"mainCollection,omitempty"`

	// StatsCollection receives one statistics record per run. Optional.
	StatsCollection string `yaml:"statsCollection,omitempty"`

	// CacheCollection is cleared whenever a run changes the main collection. Optional.
	CacheCollection string `yaml:"cacheCollection,omitempty"`

	// Postgres holds the connection settings when Type is "postgres"
	Postgres *DatabaseConfig `yaml:"postgres,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// CacheConfig defines the downstream result cache invalidated after a changing run
type CacheConfig struct {
	Redis *RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig defines the redis result cache
type RedisConfig struct {
	Address string `yaml:"address"`
	DB      int    `yaml:"db,omitempty"`

	// KeyPrefix limits invalidation to matching keys. Empty flushes the whole database.
	KeyPrefix string `yaml:"keyPrefix,omitempty"`
}

// ResourcesConfig defines how resource payloads are downloaded for enrichment
type ResourcesConfig struct {
	Timeout string `yaml:"timeout,omitempty"`

	// RateLimit is the maximum number of payload downloads per second. Zero means unlimited.
	RateLimit float64 `yaml:"rateLimit,omitempty"`
	Burst     int     `yaml:"burst,omitempty"`

	// BreakerFailures is the number of consecutive failures that opens the circuit breaker.
	// Zero disables the breaker.
	BreakerFailures uint32 `yaml:"breakerFailures,omitempty"`
	BreakerTimeout  string `yaml:"breakerTimeout,omitempty"`
}

// ParsersConfig defines where format parser definitions are loaded from
type ParsersConfig struct {
	Directory string `yaml:"directory"`
}

// PostProcessorConfig names a built-in post-processor and its options
type PostProcessorConfig struct {
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options,omitempty"`
}

// SyncConfig defines the behaviour of a sync pass
type SyncConfig struct {
	// GroupByPackage builds one item per package instead of one per resource
	GroupByPackage bool `yaml:"groupByPackage,omitempty"`

	// Verbose logs per package and per resource progress
	Verbose bool `yaml:"verbose,omitempty"`

	// SkipCleanupWhenUnchanged skips orphan removal when nothing was inserted or updated
	SkipCleanupWhenUnchanged bool `yaml:"skipCleanupWhenUnchanged,omitempty"`

	// RetainVocabularyCache keeps resolved vocabulary names between runs in watch mode
	RetainVocabularyCache bool `yaml:"retainVocabularyCache,omitempty"`

	// Interval is the pause between runs in watch mode (e.g. "1h")
	Interval string `yaml:"interval,omitempty"`

	// RunTimeout bounds a whole run. Empty means no deadline.
	RunTimeout string `yaml:"runTimeout,omitempty"`
}

// NotifyConfig defines where run summaries are published
type NotifyConfig struct {
	Kafka *KafkaConfig `yaml:"kafka,omitempty"`
}

// KafkaConfig defines the kafka topic receiving run summaries
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateCatalog(&c.Catalog); err != nil {
		return err
	}

	if err := validateStore(&c.Store); err != nil {
		return err
	}

	if c.Cache != nil && c.Cache.Redis != nil && c.Cache.Redis.Address == "" {
		return fmt.Errorf("cache.redis.address is required")
	}

	if c.Resources != nil {
		if err := validateDuration(c.Resources.Timeout, "resources.timeout"); err != nil {
			return err
		}
		if err := validateDuration(c.Resources.BreakerTimeout, "resources.breakerTimeout"); err != nil {
			return err
		}
		if c.Resources.RateLimit < 0 {
			return fmt.Errorf("resources.rateLimit must not be negative")
		}
	}

	if c.Parsers != nil && c.Parsers.Directory == "" {
		return fmt.Errorf("parsers.directory is required")
	}

	for i, pp := range c.PostProcessors {
		if pp.Name == "" {
			return fmt.Errorf("postProcessors[%d]: name is required", i)
		}
	}

	if err := validateDuration(c.Sync.Interval, "sync.interval"); err != nil {
		return err
	}
	if err := validateDuration(c.Sync.RunTimeout, "sync.runTimeout"); err != nil {
		return err
	}

	if c.Notify != nil && c.Notify.Kafka != nil {
		if len(c.Notify.Kafka.Brokers) == 0 {
			return fmt.Errorf("notify.kafka.brokers is required")
		}
		if c.Notify.Kafka.Topic == "" {
			return fmt.Errorf("notify.kafka.topic is required")
		}
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

// validateCatalog validates the catalog section
func validateCatalog(catalog *CatalogConfig) error {
	if catalog.Server == "" {
		return fmt.Errorf("catalog.server is required")
	}

	u, err := url.Parse(catalog.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("catalog.server must be an absolute http(s) URL, got %q", catalog.Server)
	}

	if catalog.PageSize < 0 {
		return fmt.Errorf("catalog.pageSize must not be negative")
	}

	return validateDuration(catalog.Timeout, "catalog.timeout")
}

// validateStore validates the store section
func validateStore(store *StoreConfig) error {
	switch store.GetType() {
	case StoreTypeMongo:
		if store.URL == "" {
			return fmt.Errorf("store.url is required for store type %s", StoreTypeMongo)
		}
		if store.Database == "" {
			return fmt.Errorf("store.database is required for store type %s", StoreTypeMongo)
		}
	case StoreTypePostgres:
		if store.Postgres == nil {
			return fmt.Errorf("store.postgres is required for store type %s", StoreTypePostgres)
		}
		if store.Postgres.Host == "" || store.Postgres.Database == "" || store.Postgres.User == "" {
			return fmt.Errorf("store.postgres: host, user and database are required")
		}
	default:
		return fmt.Errorf("store.type must be %s or %s, got %s", StoreTypeMongo, StoreTypePostgres, store.Type)
	}

	return nil
}

// validateDuration accepts an empty value or anything time.ParseDuration understands
func validateDuration(value, field string) error {
	if value == "" {
		return nil
	}
	if _, err := time.ParseDuration(value); err != nil {
		return fmt.Errorf("%s must be a valid duration (e.g., '30s', '1h'): %w", field, err)
	}
	return nil
}

// parseDurationOr parses value, falling back to def when empty or invalid
func parseDurationOr(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}

// GetType returns the store type, defaulting to mongo
func (s *StoreConfig) GetType() string {
	if s.Type == "" {
		return StoreTypeMongo
	}
	return s.Type
}

// GetMainCollection returns the main collection name, defaulting to "items"
func (s *StoreConfig) GetMainCollection() string {
	if s.MainCollection == "" {
		return defaultMainCollection
	}
	return s.MainCollection
}

// GetPageSize returns the export page size
func (c *CatalogConfig) GetPageSize() int {
	if c.PageSize == 0 {
		return defaultPageSize
	}
	return c.PageSize
}

// GetTimeout returns the per-request catalog timeout
func (c *CatalogConfig) GetTimeout() time.Duration {
	return parseDurationOr(c.Timeout, defaultCatalogTimeout)
}

// GetMaxRetries returns the number of attempts per catalog request
func (c *CatalogConfig) GetMaxRetries() uint {
	if c.MaxRetries == 0 {
		return defaultCatalogRetries
	}
	return c.MaxRetries
}

// GetTimeout returns the per-download timeout
func (r *ResourcesConfig) GetTimeout() time.Duration {
	if r == nil {
		return defaultResourceTimeout
	}
	return parseDurationOr(r.Timeout, defaultResourceTimeout)
}

// GetBreakerTimeout returns how long the breaker stays open
func (r *ResourcesConfig) GetBreakerTimeout() time.Duration {
	if r == nil {
		return time.Minute
	}
	return parseDurationOr(r.BreakerTimeout, time.Minute)
}

// GetInterval returns the watch mode interval, zero when unset
func (s *SyncConfig) GetInterval() time.Duration {
	return parseDurationOr(s.Interval, 0)
}

// GetRunTimeout returns the per-run deadline, zero when unset
func (s *SyncConfig) GetRunTimeout() time.Duration {
	return parseDurationOr(s.RunTimeout, 0)
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from CATALOG_SYNC_DATABASE_PASSWORD environment variable
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}

		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(EnvPrefix + "_DATABASE_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s_DATABASE_PASSWORD environment variable", EnvPrefix,
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	port := d.Port
	if port == 0 {
		port = 5432
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		url.QueryEscape(password),
		d.Host,
		port,
		d.Database,
		sslMode,
	), nil
}
