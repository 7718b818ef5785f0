package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.DataDir = "/tmp/toolhub"
	cfg.Storage.SQLitePath = "/tmp/toolhub/toolhub.db"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Registry.CacheEnabled)
	assert.Equal(t, 5*time.Minute, cfg.Registry.DefaultCacheTTL)
	assert.Equal(t, 8, cfg.Registry.MaxParallel)
	assert.Equal(t, CacheBackendSQLite, cfg.Cache.Backend)
	assert.Equal(t, []string{AuditSinkSQLite}, cfg.Audit.Sinks)
	assert.True(t, cfg.Tools.Builtins)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "toolhub", cfg.Tracing.ServiceName)
}

func TestConfigString(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Redis.Password = "hunter2"

	s := cfg.String()
	assert.Contains(t, s, `"backend": "sqlite"`)
	assert.NotContains(t, s, "hunter2")
	assert.Equal(t, "hunter2", cfg.Cache.Redis.Password, "String must not modify the config")
}

func TestNeedsSQLite(t *testing.T) {
	cfg := validConfig()
	assert.True(t, cfg.NeedsSQLite())

	cfg.Cache.Backend = CacheBackendMemory
	assert.True(t, cfg.NeedsSQLite(), "audit sink still uses sqlite")

	cfg.Audit.Sinks = []string{AuditSinkLog}
	assert.False(t, cfg.NeedsSQLite())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid defaults", mutate: func(*Config) {}},
		{
			name:    "negative ttl",
			mutate:  func(c *Config) { c.Registry.DefaultCacheTTL = -time.Second },
			wantErr: "default_cache_ttl",
		},
		{
			name:    "negative max parallel",
			mutate:  func(c *Config) { c.Registry.MaxParallel = -1 },
			wantErr: "max_parallel",
		},
		{
			name:    "unknown cache backend",
			mutate:  func(c *Config) { c.Cache.Backend = "memcached" },
			wantErr: "cache backend",
		},
		{
			name: "redis without addr",
			mutate: func(c *Config) {
				c.Cache.Backend = CacheBackendRedis
				c.Cache.Redis.Addr = ""
			},
			wantErr: "redis addr is required",
		},
		{
			name: "redis with bad addr",
			mutate: func(c *Config) {
				c.Cache.Backend = CacheBackendRedis
				c.Cache.Redis.Addr = "localhost"
			},
			wantErr: "invalid redis addr",
		},
		{
			name:    "unknown audit sink",
			mutate:  func(c *Config) { c.Audit.Sinks = []string{"kafka"} },
			wantErr: "audit sink",
		},
		{
			name:    "duplicate audit sink",
			mutate:  func(c *Config) { c.Audit.Sinks = []string{AuditSinkLog, AuditSinkLog} },
			wantErr: "duplicate audit sink",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Storage.SQLitePath = "" },
			wantErr: "sqlite_path",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "log level",
		},
		{
			name: "tracing without service name",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.ServiceName = " "
			},
			wantErr: "service_name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "got %q", err.Error())
		})
	}
}

func TestValidateConfigCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Backend = "bogus"
	cfg.Logging.Level = "bogus"
	cfg.Registry.MaxParallel = -2

	errs := NewValidator().ValidateConfig(cfg)
	assert.Len(t, errs, 3)
}
