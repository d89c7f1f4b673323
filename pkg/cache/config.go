package cache

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// ErrInvalidConfig is returned by New when the configuration cannot produce
// a working cache. It is the only error surfaced synchronously; everything
// at runtime fails open as a miss.
var ErrInvalidConfig = errors.New("invalid cache configuration")

// Config represents the complete cache engine configuration.
type Config struct {
	// HotMaxEntries bounds the in-memory tier by entry count.
	HotMaxEntries int `yaml:"hot_max_entries"`

	// WarmMaxSizeBytes and ColdMaxSizeBytes bound the durable tiers by
	// total physical size. Budgets may be exceeded transiently right
	// after an insert; the following eviction pass corrects it.
	WarmMaxSizeBytes int64 `yaml:"warm_max_size_bytes"`
	ColdMaxSizeBytes int64 `yaml:"cold_max_size_bytes"`

	// DefaultTTL applies to Set calls without a per-entry override.
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// CompressionThresholdBytes is the minimum logical size before an
	// entry demoted to cold is compressed.
	CompressionThresholdBytes int64 `yaml:"compression_threshold_bytes"`
	CompressionLevel          int   `yaml:"compression_level"`
	EnableCompression         bool  `yaml:"enable_compression"`

	// SimilarityThreshold is the minimum Jaccard score (0.0-1.0) for a
	// miss to resolve through a near-duplicate tracked query.
	SimilarityThreshold      float64 `yaml:"similarity_threshold"`
	MaxTrackedQueries        int     `yaml:"max_tracked_queries"`
	EnableSimilarityMatching bool    `yaml:"enable_similarity_matching"`

	// PersistToDisk stores warm/cold payloads and manifests under
	// StorageRoot. When false the same tiers run purely in memory.
	PersistToDisk bool   `yaml:"persist_to_disk"`
	StorageRoot   string `yaml:"storage_root"`

	MaintenanceInterval  time.Duration `yaml:"maintenance_interval"`
	WarmCacheConcurrency int           `yaml:"warm_cache_concurrency"`
	MetricsNamespace     string        `yaml:"metrics_namespace"`

	// Logger receives soft-failure warnings. Defaults to log.Default().
	Logger *log.Logger `yaml:"-"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		HotMaxEntries:             1000,
		WarmMaxSizeBytes:          64 * 1024 * 1024,  // 64MB
		ColdMaxSizeBytes:          256 * 1024 * 1024, // 256MB
		DefaultTTL:                time.Hour,
		CompressionThresholdBytes: 4 * 1024, // 4KB
		CompressionLevel:          6,
		EnableCompression:         true,
		SimilarityThreshold:       0.85,
		MaxTrackedQueries:         10000,
		EnableSimilarityMatching:  true,
		PersistToDisk:             false,
		StorageRoot:               "",
		MaintenanceInterval:       5 * time.Minute,
		WarmCacheConcurrency:      4,
		MetricsNamespace:          "tiercache",
	}
}

// LoadFromFile loads configuration from a YAML file over the current values.
func (c *Config) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// LoadFromEnv applies TIERCACHE_* environment overrides.
func (c *Config) LoadFromEnv() {
	if val := os.Getenv("TIERCACHE_STORAGE_ROOT"); val != "" {
		c.StorageRoot = val
	}
	if val := os.Getenv("TIERCACHE_PERSIST_TO_DISK"); val != "" {
		c.PersistToDisk = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("TIERCACHE_HOT_MAX_ENTRIES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.HotMaxEntries = n
		}
	}
	if val := os.Getenv("TIERCACHE_DEFAULT_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.DefaultTTL = d
		}
	}
	if val := os.Getenv("TIERCACHE_MAINTENANCE_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.MaintenanceInterval = d
		}
	}
	if val := os.Getenv("TIERCACHE_SIMILARITY_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.SimilarityThreshold = f
		}
	}
}

// Validate checks the configuration at construction time.
func (c *Config) Validate() error {
	if c.HotMaxEntries <= 0 {
		return fmt.Errorf("%w: hot_max_entries must be greater than 0", ErrInvalidConfig)
	}
	if c.WarmMaxSizeBytes <= 0 {
		return fmt.Errorf("%w: warm_max_size_bytes must be greater than 0", ErrInvalidConfig)
	}
	if c.ColdMaxSizeBytes <= 0 {
		return fmt.Errorf("%w: cold_max_size_bytes must be greater than 0", ErrInvalidConfig)
	}
	if c.DefaultTTL < 0 {
		return fmt.Errorf("%w: default_ttl must not be negative", ErrInvalidConfig)
	}
	if c.CompressionThresholdBytes < 0 {
		return fmt.Errorf("%w: compression_threshold_bytes must not be negative", ErrInvalidConfig)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity_threshold must be within [0.0, 1.0]", ErrInvalidConfig)
	}
	if c.MaxTrackedQueries <= 0 {
		return fmt.Errorf("%w: max_tracked_queries must be greater than 0", ErrInvalidConfig)
	}
	if c.MaintenanceInterval <= 0 {
		return fmt.Errorf("%w: maintenance_interval must be greater than 0", ErrInvalidConfig)
	}
	if c.PersistToDisk && c.StorageRoot == "" {
		return fmt.Errorf("%w: storage_root is required when persist_to_disk is enabled", ErrInvalidConfig)
	}
	if c.WarmCacheConcurrency <= 0 {
		return fmt.Errorf("%w: warm_cache_concurrency must be greater than 0", ErrInvalidConfig)
	}
	return nil
}
