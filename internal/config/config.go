package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Cache backends
const (
	CacheBackendMemory = "memory"
	CacheBackendSQLite = "sqlite"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

// Audit sinks
const (
	AuditSinkLog    = "log"
	AuditSinkSQLite = "sqlite"
	AuditSinkMemory = "memory"
)

// Config represents the toolhub configuration
type Config struct {
	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	Registry RegistryConfig `json:"registry" mapstructure:"registry"`
	Cache    CacheConfig    `json:"cache" mapstructure:"cache"`
	Audit    AuditConfig    `json:"audit" mapstructure:"audit"`
	Storage  StorageConfig  `json:"storage" mapstructure:"storage"`
	Tools    ToolsConfig    `json:"tools" mapstructure:"tools"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
	Tracing  TracingConfig  `json:"tracing" mapstructure:"tracing"`
	Metrics  MetricsConfig  `json:"metrics" mapstructure:"metrics"`
}

// RegistryConfig controls execution behavior of the tool registry
type RegistryConfig struct {
	CacheEnabled    bool          `json:"cache_enabled" mapstructure:"cache_enabled"`
	DefaultCacheTTL time.Duration `json:"default_cache_ttl" mapstructure:"default_cache_ttl"`
	MaxParallel     int           `json:"max_parallel" mapstructure:"max_parallel"` // 0 = unbounded
}

// CacheConfig selects the result cache backend
type CacheConfig struct {
	Backend string      `json:"backend" mapstructure:"backend"` // memory, sqlite, redis, none
	Redis   RedisConfig `json:"redis" mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `json:"addr" mapstructure:"addr"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`
	Prefix   string `json:"prefix" mapstructure:"prefix"`
}

// AuditConfig lists the audit sinks records are written to
type AuditConfig struct {
	Sinks []string `json:"sinks" mapstructure:"sinks"` // log, sqlite, memory
	File  string   `json:"file" mapstructure:"file"`   // log sink destination
}

// StorageConfig holds the SQLite database location
type StorageConfig struct {
	SQLitePath string `json:"sqlite_path" mapstructure:"sqlite_path"`
}

// ToolsConfig controls the built-in tools
type ToolsConfig struct {
	Builtins      bool   `json:"builtins" mapstructure:"builtins"`
	WorkspaceRoot string `json:"workspace_root" mapstructure:"workspace_root"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"service_name" mapstructure:"service_name"`
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	// Textfile, when set, receives the metrics in text exposition format
	// on exit, for the node_exporter textfile collector.
	Textfile string `json:"textfile" mapstructure:"textfile"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			CacheEnabled:    true,
			DefaultCacheTTL: 5 * time.Minute,
			MaxParallel:     8,
		},
		Cache: CacheConfig{
			Backend: CacheBackendSQLite,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "toolhub",
			},
		},
		Audit: AuditConfig{
			Sinks: []string{AuditSinkSQLite},
		},
		Tools: ToolsConfig{
			Builtins: true,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			Redaction: true,
		},
		Tracing: TracingConfig{
			ServiceName: "toolhub",
		},
	}
}

// String returns a JSON representation of the config with secrets masked
func (c *Config) String() string {
	masked := *c
	if masked.Cache.Redis.Password != "" {
		masked.Cache.Redis.Password = "********"
	}
	data, _ := json.MarshalIndent(&masked, "", "  ")
	return string(data)
}

// NeedsSQLite reports whether any configured component stores data in SQLite
func (c *Config) NeedsSQLite() bool {
	if c.Cache.Backend == CacheBackendSQLite {
		return true
	}
	for _, s := range c.Audit.Sinks {
		if s == AuditSinkSQLite {
			return true
		}
	}
	return false
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if errs := NewValidator().ValidateConfig(c); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errs[0])
	}
	return nil
}
