package cli

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harun/toolhub/pkg/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditListCommand(t *testing.T) {
	path := writeTestConfig(t, nil)

	_, err := runCLI(t, "--config", path, "exec", "echo", "--args", `{"msg":"a"}`, "--org", "acme", "--run", "r1")
	require.NoError(t, err)
	_, err = runCLI(t, "--config", path, "exec", "echo", "--args", `{"msg":"b"}`, "--org", "other")
	require.NoError(t, err)
	_, err = runCLI(t, "--config", path, "exec", "echo", "--args", `{"msg":5}`, "--org", "acme")
	require.Error(t, err, "validation failures are not audited")

	t.Run("json", func(t *testing.T) {
		out, err := runCLI(t, "--config", path, "audit", "list", "--json")
		require.NoError(t, err)

		var records []audit.Record
		require.NoError(t, json.Unmarshal([]byte(out), &records))
		require.Len(t, records, 2)
		assert.Equal(t, "other", records[0].OrgID)
		assert.Equal(t, "echo", records[0].ResourceID)
		assert.Equal(t, audit.ActionToolExecute, records[0].Action)
	})

	t.Run("filtered", func(t *testing.T) {
		out, err := runCLI(t, "--config", path, "audit", "list", "--json", "--org", "acme")
		require.NoError(t, err)

		var records []audit.Record
		require.NoError(t, json.Unmarshal([]byte(out), &records))
		require.Len(t, records, 1)
		assert.Equal(t, "r1", records[0].Metadata["runId"])
		assert.Equal(t, map[string]interface{}{"msg": "a"}, records[0].Metadata["arguments"])
	})

	t.Run("table", func(t *testing.T) {
		out, err := runCLI(t, "--config", path, "audit", "list", "-n", "1")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "TOOL")
		assert.Contains(t, lines[1], "other")
	})

	t.Run("log sink mirrors the records", func(t *testing.T) {
		f, err := os.Open(filepath.Join(filepath.Dir(path), "audit.log"))
		require.NoError(t, err)
		defer f.Close()

		count := 0
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var line map[string]interface{}
			require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
			assert.Equal(t, "tool_execute", line["action"])
			count++
		}
		assert.Equal(t, 2, count)
	})

	t.Run("needs a queryable sink", func(t *testing.T) {
		logOnly := writeTestConfig(t, map[string]interface{}{
			"audit": map[string]interface{}{"sinks": []string{"log"}},
		})
		_, err := runCLI(t, "--config", logOnly, "audit", "list")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no queryable audit sink")
	})
}
