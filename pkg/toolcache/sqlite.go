package toolcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/harun/toolhub/pkg/tool"
)

// SQLiteCache stores entries in the tool_cache table.
// Expired rows are ignored on read and removed by Purge.
type SQLiteCache struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteCache creates a cache on a database opened with storage.OpenSQLite
func NewSQLiteCache(db *sql.DB) *SQLiteCache {
	return &SQLiteCache{
		db:  db,
		now: time.Now,
	}
}

// Find returns the live entry for the call
func (c *SQLiteCache) Find(ctx context.Context, toolName string, args map[string]interface{}, runID, orgID string) (*Entry, error) {
	fp, err := Fingerprint(toolName, args, runID, orgID)
	if err != nil {
		return nil, err
	}

	var (
		entry     Entry
		success   int
		output    sql.NullString
		errMsg    sql.NullString
		resources sql.NullString
		createdAt int64
		expiresAt int64
	)
	row := c.db.QueryRowContext(ctx, `
		SELECT fingerprint, tool_name, org_id, run_id, success, output, error, resources_created, created_at, expires_at
		FROM tool_cache
		WHERE fingerprint = ? AND expires_at > ?`,
		fp, c.now().UnixMilli(),
	)
	err = row.Scan(&entry.Fingerprint, &entry.ToolName, &entry.OrgID, &entry.RunID,
		&success, &output, &errMsg, &resources, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to query cache entry")
	}

	entry.Success = success == 1
	entry.Error = errMsg.String
	entry.CreatedAt = time.UnixMilli(createdAt)
	entry.ExpiresAt = time.UnixMilli(expiresAt)
	if output.Valid && output.String != "" {
		entry.Output = json.RawMessage(output.String)
	}
	if resources.Valid && resources.String != "" {
		if err := json.Unmarshal([]byte(resources.String), &entry.ResourcesCreated); err != nil {
			return nil, errors.Wrap(err, "failed to decode cached resources")
		}
	}

	return &entry, nil
}

// Store writes the result under the call fingerprint, replacing any previous row
func (c *SQLiteCache) Store(ctx context.Context, toolName string, args map[string]interface{}, result tool.ToolResult, runID, orgID string, ttl time.Duration) error {
	entry, err := newEntry(toolName, args, result, runID, orgID, ttl, c.now())
	if err != nil {
		return err
	}

	var resources []byte
	if len(entry.ResourcesCreated) > 0 {
		resources, err = json.Marshal(entry.ResourcesCreated)
		if err != nil {
			return errors.Wrap(err, "failed to encode resources")
		}
	}

	success := 0
	if entry.Success {
		success = 1
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO tool_cache
			(fingerprint, tool_name, org_id, run_id, success, output, error, resources_created, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Fingerprint, entry.ToolName, entry.OrgID, entry.RunID, success,
		nullString(string(entry.Output)), nullString(entry.Error), nullString(string(resources)),
		entry.CreatedAt.UnixMilli(), entry.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to store cache entry")
	}
	return nil
}

// Purge deletes expired rows
func (c *SQLiteCache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM tool_cache WHERE expires_at <= ?`, c.now().UnixMilli())
	if err != nil {
		return 0, errors.Wrap(err, "failed to purge cache")
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
