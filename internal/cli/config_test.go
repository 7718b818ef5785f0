package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCommands(t *testing.T) {
	t.Run("init writes defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conf", "toolhub.json")

		out, err := runCLI(t, "--config", path, "config", "init")
		require.NoError(t, err)
		assert.Contains(t, out, path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var doc map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.Contains(t, doc, "registry")
		assert.Contains(t, doc, "cache")

		_, err = runCLI(t, "--config", path, "config", "init")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")

		_, err = runCLI(t, "--config", path, "config", "init", "--force")
		require.NoError(t, err)
	})

	t.Run("show masks secrets", func(t *testing.T) {
		path := writeTestConfig(t, map[string]interface{}{
			"cache": map[string]interface{}{
				"backend": "redis",
				"redis":   map[string]interface{}{"addr": "cache:6379", "password": "hunter2"},
			},
		})

		out, err := runCLI(t, "--config", path, "config", "show")
		require.NoError(t, err)
		assert.Contains(t, out, "cache:6379")
		assert.Contains(t, out, "********")
		assert.NotContains(t, out, "hunter2")
	})

	t.Run("show applies environment overrides", func(t *testing.T) {
		path := writeTestConfig(t, nil)
		t.Setenv("TOOLHUB_REGISTRY_MAX_PARALLEL", "3")

		out, err := runCLI(t, "--config", path, "config", "show")
		require.NoError(t, err)

		var cfg map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(out), &cfg))
		registry := cfg["registry"].(map[string]interface{})
		assert.Equal(t, float64(3), registry["max_parallel"])
	})
}

func TestCachePurgeCommand(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		path := writeTestConfig(t, nil)
		out, err := runCLI(t, "--config", path, "cache", "purge")
		require.NoError(t, err)
		assert.Contains(t, out, "Purged 0 expired entries")
	})

	t.Run("disabled", func(t *testing.T) {
		path := writeTestConfig(t, map[string]interface{}{
			"cache": map[string]interface{}{"backend": "none"},
		})
		out, err := runCLI(t, "--config", path, "cache", "purge")
		require.NoError(t, err)
		assert.Contains(t, out, "Cache disabled")
	})

	t.Run("redis expires on its own", func(t *testing.T) {
		path := writeTestConfig(t, map[string]interface{}{
			"cache": map[string]interface{}{"backend": "redis"},
		})
		out, err := runCLI(t, "--config", path, "cache", "purge")
		require.NoError(t, err)
		assert.Contains(t, out, "expires entries itself")
	})
}
