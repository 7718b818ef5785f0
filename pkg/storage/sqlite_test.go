package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite(t *testing.T) {
	t.Run("creates directory and schema", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "toolhub.db")
		db, err := OpenSQLite(path)
		require.NoError(t, err)
		defer db.Close()

		for _, table := range []string{"tool_cache", "audit_logs"} {
			var name string
			err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
			require.NoError(t, err, table)
			assert.Equal(t, table, name)
		}

		var mode string
		require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
		assert.Equal(t, "wal", mode)
	})

	t.Run("reopen keeps data", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "toolhub.db")
		db, err := OpenSQLite(path)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO audit_logs (id, org_id, action, resource_type, resource_id, created_at) VALUES ('a', 'o', 'x', 'tool', 'echo', 1)`)
		require.NoError(t, err)
		require.NoError(t, db.Close())

		db, err = OpenSQLite(path)
		require.NoError(t, err)
		defer db.Close()

		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM audit_logs`).Scan(&n))
		assert.Equal(t, 1, n)
	})

	t.Run("in memory", func(t *testing.T) {
		db, err := OpenSQLite(":memory:")
		require.NoError(t, err)
		defer db.Close()

		_, err = db.Exec(`DELETE FROM tool_cache`)
		assert.NoError(t, err)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := OpenSQLite("")
		assert.Error(t, err)
	})
}
