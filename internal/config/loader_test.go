package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/config.json", loader.GetConfigPath())
}

func TestLoaderLoad(t *testing.T) {
	t.Run("defaults when file doesn't exist", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("HOME", dir)

		cfg, err := NewLoader(filepath.Join(dir, "nonexistent.json")).Load()
		require.NoError(t, err)

		assert.Equal(t, CacheBackendSQLite, cfg.Cache.Backend)
		assert.Equal(t, 5*time.Minute, cfg.Registry.DefaultCacheTTL)
		assert.Equal(t, filepath.Join(dir, ".toolhub"), cfg.DataDir)
		assert.Equal(t, filepath.Join(dir, ".toolhub", "toolhub.db"), cfg.Storage.SQLitePath)
		assert.Equal(t, filepath.Join(dir, ".toolhub", "workspace"), cfg.Tools.WorkspaceRoot)
		assert.Equal(t, filepath.Join(dir, ".toolhub", "audit.log"), cfg.Audit.File)
		assert.Empty(t, cfg.Metrics.Textfile)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("json file", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "config.json")

		testConfig := `{
			"data_dir": "` + dir + `",
			"registry": {"default_cache_ttl": "90s", "max_parallel": 2},
			"cache": {"backend": "redis", "redis": {"addr": "cache:6379", "db": 3}},
			"audit": {"sinks": ["log", "memory"]}
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)

		assert.Equal(t, 90*time.Second, cfg.Registry.DefaultCacheTTL)
		assert.Equal(t, 2, cfg.Registry.MaxParallel)
		assert.True(t, cfg.Registry.CacheEnabled, "unset keys keep their defaults")
		assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
		assert.Equal(t, "cache:6379", cfg.Cache.Redis.Addr)
		assert.Equal(t, 3, cfg.Cache.Redis.DB)
		assert.Equal(t, "toolhub", cfg.Cache.Redis.Prefix)
		assert.Equal(t, []string{AuditSinkLog, AuditSinkMemory}, cfg.Audit.Sinks)
		assert.Equal(t, filepath.Join(dir, "toolhub.db"), cfg.Storage.SQLitePath)
	})

	t.Run("yaml file", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "config.yaml")

		testConfig := "data_dir: " + dir + "\ncache:\n  backend: memory\ntools:\n  builtins: false\n"
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)
		assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
		assert.False(t, cfg.Tools.Builtins)
	})

	t.Run("environment overrides", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("TOOLHUB_DATA_DIR", dir)
		t.Setenv("TOOLHUB_CACHE_BACKEND", "none")
		t.Setenv("TOOLHUB_REGISTRY_MAX_PARALLEL", "16")
		t.Setenv("TOOLHUB_LOGGING_LEVEL", "debug")

		cfg, err := NewLoader(filepath.Join(dir, "missing.json")).Load()
		require.NoError(t, err)
		assert.Equal(t, dir, cfg.DataDir)
		assert.Equal(t, CacheBackendNone, cfg.Cache.Backend)
		assert.Equal(t, 16, cfg.Registry.MaxParallel)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("malformed file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0644))

		_, err := NewLoader(configPath).Load()
		assert.Error(t, err)
	})
}

func TestLoaderSave(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "nested", "toolhub.json")

	cfg := DefaultConfig()
	cfg.DataDir = dir
	cfg.Registry.DefaultCacheTTL = 2 * time.Minute
	cfg.Cache.Backend = CacheBackendMemory
	cfg.Audit.Sinks = []string{AuditSinkLog}

	loader := NewLoader(configPath)
	require.NoError(t, loader.Save(cfg))

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, dir, loaded.DataDir)
	assert.Equal(t, 2*time.Minute, loaded.Registry.DefaultCacheTTL)
	assert.Equal(t, CacheBackendMemory, loaded.Cache.Backend)
	assert.Equal(t, []string{AuditSinkLog}, loaded.Audit.Sinks)
}

func TestConfigType(t *testing.T) {
	assert.Equal(t, "json", configType("a.json"))
	assert.Equal(t, "yaml", configType("a.YAML"))
	assert.Equal(t, "yaml", configType("a.yml"))
	assert.Equal(t, "toml", configType("a.toml"))
	assert.Equal(t, "json", configType("noext"))
}
