package config

import (
	"fmt"
	"net"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateCacheBackend validates the cache backend name
func (v *Validator) ValidateCacheBackend(backend string) error {
	return oneOf("cache backend", backend,
		CacheBackendMemory, CacheBackendSQLite, CacheBackendRedis, CacheBackendNone)
}

// ValidateAuditSinks validates audit sink names
func (v *Validator) ValidateAuditSinks(sinks []string) error {
	seen := make(map[string]bool, len(sinks))
	for _, s := range sinks {
		if err := oneOf("audit sink", s, AuditSinkLog, AuditSinkSQLite, AuditSinkMemory); err != nil {
			return err
		}
		if seen[s] {
			return fmt.Errorf("duplicate audit sink: %s", s)
		}
		seen[s] = true
	}
	return nil
}

// ValidateRedisAddr validates a host:port address
func (v *Validator) ValidateRedisAddr(addr string) error {
	if addr == "" {
		return fmt.Errorf("redis addr is required when cache backend is redis")
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid redis addr %q: %w", addr, err)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	return oneOf("log level", level, "debug", "info", "warn", "error")
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errs []error

	if cfg.Registry.DefaultCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("registry.default_cache_ttl must be >= 0"))
	}
	if cfg.Registry.MaxParallel < 0 {
		errs = append(errs, fmt.Errorf("registry.max_parallel must be >= 0"))
	}

	if err := v.ValidateCacheBackend(cfg.Cache.Backend); err != nil {
		errs = append(errs, err)
	}
	if cfg.Cache.Backend == CacheBackendRedis {
		if err := v.ValidateRedisAddr(cfg.Cache.Redis.Addr); err != nil {
			errs = append(errs, err)
		}
		if cfg.Cache.Redis.DB < 0 {
			errs = append(errs, fmt.Errorf("cache.redis.db must be >= 0"))
		}
	}

	if err := v.ValidateAuditSinks(cfg.Audit.Sinks); err != nil {
		errs = append(errs, err)
	}

	if cfg.NeedsSQLite() && cfg.Storage.SQLitePath == "" {
		errs = append(errs, fmt.Errorf("storage.sqlite_path is required by the sqlite cache or audit sink"))
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	if cfg.Tracing.Enabled && strings.TrimSpace(cfg.Tracing.ServiceName) == "" {
		errs = append(errs, fmt.Errorf("tracing.service_name is required when tracing is enabled"))
	}

	return errs
}

func oneOf(what, value string, valid ...string) error {
	for _, v := range valid {
		if value == v {
			return nil
		}
	}
	return fmt.Errorf("invalid %s: %q (must be one of: %s)", what, value, strings.Join(valid, ", "))
}
