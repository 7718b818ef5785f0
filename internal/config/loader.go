package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix of environment overrides, e.g. TOOLHUB_CACHE_BACKEND
	EnvPrefix = "TOOLHUB"

	defaultDirName  = ".toolhub"
	defaultFileName = "toolhub.json"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load reads the config file, applies environment overrides and fills in
// paths derived from the data directory. A missing file yields defaults.
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.resolvePath()
	if err != nil {
		return nil, err
	}

	v := l.newViper(configPath)
	setDefaults(v, DefaultConfig())

	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DataDir == "" {
		if cfg.DataDir, err = defaultDataDir(); err != nil {
			return nil, err
		}
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = filepath.Join(cfg.DataDir, "toolhub.db")
	}
	if cfg.Audit.File == "" {
		cfg.Audit.File = filepath.Join(cfg.DataDir, "audit.log")
	}
	if cfg.Tools.WorkspaceRoot == "" {
		cfg.Tools.WorkspaceRoot = filepath.Join(cfg.DataDir, "workspace")
	}

	return cfg, nil
}

// Save writes the configuration to the loader's path
func (l *Loader) Save(cfg *Config) error {
	configPath, err := l.resolvePath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := l.newViper(configPath)
	for key, value := range settings(cfg) {
		v.Set(key, value)
	}
	v.Set("registry.default_cache_ttl", cfg.Registry.DefaultCacheTTL.String())

	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	p, err := l.resolvePath()
	if err != nil {
		return ""
	}
	return p
}

func (l *Loader) resolvePath() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}
	dir, err := defaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultFileName), nil
}

func (l *Loader) newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType(configType(configPath))
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults registers every key so AutomaticEnv can override it during Unmarshal
func setDefaults(v *viper.Viper, cfg *Config) {
	for key, value := range settings(cfg) {
		v.SetDefault(key, value)
	}
}

func settings(cfg *Config) map[string]interface{} {
	return map[string]interface{}{
		"data_dir":                   cfg.DataDir,
		"registry.cache_enabled":     cfg.Registry.CacheEnabled,
		"registry.default_cache_ttl": cfg.Registry.DefaultCacheTTL,
		"registry.max_parallel":      cfg.Registry.MaxParallel,
		"cache.backend":              cfg.Cache.Backend,
		"cache.redis.addr":           cfg.Cache.Redis.Addr,
		"cache.redis.password":       cfg.Cache.Redis.Password,
		"cache.redis.db":             cfg.Cache.Redis.DB,
		"cache.redis.prefix":         cfg.Cache.Redis.Prefix,
		"audit.sinks":                cfg.Audit.Sinks,
		"audit.file":                 cfg.Audit.File,
		"storage.sqlite_path":        cfg.Storage.SQLitePath,
		"tools.builtins":             cfg.Tools.Builtins,
		"tools.workspace_root":       cfg.Tools.WorkspaceRoot,
		"logging.level":              cfg.Logging.Level,
		"logging.file":               cfg.Logging.File,
		"logging.console":            cfg.Logging.Console,
		"logging.pretty":             cfg.Logging.Pretty,
		"logging.redaction":          cfg.Logging.Redaction,
		"tracing.enabled":            cfg.Tracing.Enabled,
		"tracing.service_name":       cfg.Tracing.ServiceName,
		"metrics.textfile":           cfg.Metrics.Textfile,
	}
}

func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return "json"
	}
}

func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, defaultDirName), nil
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
