package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/harun/toolhub/internal/config"
	"github.com/harun/toolhub/internal/logger"
	"github.com/harun/toolhub/internal/metrics"
	"github.com/harun/toolhub/internal/tracing"
	"github.com/harun/toolhub/pkg/audit"
	"github.com/harun/toolhub/pkg/coretools"
	"github.com/harun/toolhub/pkg/storage"
	"github.com/harun/toolhub/pkg/toolcache"
	"github.com/harun/toolhub/pkg/toolregistry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// runtime holds everything a command needs to execute tools. It is built
// from the loaded config and torn down by Close.
type runtime struct {
	cfg      *config.Config
	logger   *logger.Logger
	log      zerolog.Logger
	db       *sql.DB
	redis    *redis.Client
	cache    toolcache.Cache
	sinks    []audit.Sink
	metrics  *metrics.Metrics
	registry *toolregistry.Registry

	closers []func() error
}

// loadConfig reads the config named by --config and validates it
func loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openRuntime loads the config and builds the runtime for cmd
func openRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newRuntime(cfg, cmd.ErrOrStderr())
}

func newRuntime(cfg *config.Config, stderr io.Writer) (rt *runtime, err error) {
	rt = &runtime{cfg: cfg}
	defer func() {
		if err != nil {
			rt.Close()
			rt = nil
		}
	}()

	rt.logger, err = logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console || verbose,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		Output:    stderr,
	})
	if err != nil {
		return rt, err
	}
	rt.closers = append(rt.closers, rt.logger.Close)
	rt.log = rt.logger.Component("cli")

	if cfg.Tracing.Enabled {
		if err = tracing.InitOpenTelemetry(cfg.Tracing.ServiceName); err != nil {
			return rt, err
		}
		rt.closers = append(rt.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return tracing.ShutdownOpenTelemetry(ctx)
		})
	}

	if cfg.NeedsSQLite() {
		rt.db, err = storage.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return rt, err
		}
		rt.closers = append(rt.closers, rt.db.Close)
	}

	if err = rt.openCache(); err != nil {
		return rt, err
	}
	if err = rt.openSinks(); err != nil {
		return rt, err
	}

	rt.metrics = metrics.NewMetrics()
	if cfg.Metrics.Textfile != "" {
		path := cfg.Metrics.Textfile
		rt.closers = append(rt.closers, func() error {
			return prometheus.WriteToTextfile(path, rt.metrics.Registry())
		})
	}

	opts := []toolregistry.Option{
		toolregistry.WithCacheEnabled(cfg.Registry.CacheEnabled),
		toolregistry.WithDefaultCacheTTL(cfg.Registry.DefaultCacheTTL),
		toolregistry.WithMaxParallel(cfg.Registry.MaxParallel),
		toolregistry.WithMetrics(rt.metrics),
	}
	if rt.cache != nil {
		opts = append(opts, toolregistry.WithCache(rt.cache))
	}
	if len(rt.sinks) > 0 {
		opts = append(opts, toolregistry.WithAudit(audit.Multi(rt.sinks)))
	}
	if cfg.Tools.Builtins {
		opts = append(opts, toolregistry.WithBuiltins(coretools.Provider(coretools.Options{
			WorkspaceRoot: cfg.Tools.WorkspaceRoot,
		})))
	}
	rt.registry = toolregistry.New(opts...)

	rt.log.Debug().
		Str("cache", cfg.Cache.Backend).
		Strs("audit", cfg.Audit.Sinks).
		Bool("tracing", cfg.Tracing.Enabled).
		Msg("Runtime ready")

	return rt, nil
}

func (rt *runtime) openCache() error {
	switch rt.cfg.Cache.Backend {
	case config.CacheBackendMemory:
		rt.cache = toolcache.NewMemoryCache()
	case config.CacheBackendSQLite:
		rt.cache = toolcache.NewSQLiteCache(rt.db)
	case config.CacheBackendRedis:
		rc := rt.cfg.Cache.Redis
		rt.redis = redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		rt.closers = append(rt.closers, rt.redis.Close)
		rt.cache = toolcache.NewRedisCache(rt.redis, rc.Prefix)
	case config.CacheBackendNone, "":
	default:
		return fmt.Errorf("unknown cache backend: %s", rt.cfg.Cache.Backend)
	}
	return nil
}

func (rt *runtime) openSinks() error {
	for _, name := range rt.cfg.Audit.Sinks {
		switch name {
		case config.AuditSinkLog:
			if err := os.MkdirAll(filepath.Dir(rt.cfg.Audit.File), 0755); err != nil {
				return fmt.Errorf("failed to create audit log directory: %w", err)
			}
			sink, err := audit.OpenLogSink(rt.cfg.Audit.File)
			if err != nil {
				return err
			}
			rt.closers = append(rt.closers, sink.Close)
			rt.sinks = append(rt.sinks, sink)
		case config.AuditSinkSQLite:
			rt.sinks = append(rt.sinks, audit.NewSQLiteSink(rt.db))
		case config.AuditSinkMemory:
			rt.sinks = append(rt.sinks, audit.NewMemorySink())
		default:
			return fmt.Errorf("unknown audit sink: %s", name)
		}
	}
	return nil
}

// lister returns the first configured sink that can list records
func (rt *runtime) lister() (audit.Lister, bool) {
	for _, sink := range rt.sinks {
		if l, ok := sink.(audit.Lister); ok {
			return l, true
		}
	}
	return nil, false
}

// Close releases resources in reverse order of acquisition
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.log.Warn().Err(err).Msg("Failed to release resource")
		}
	}
	rt.closers = nil
}
