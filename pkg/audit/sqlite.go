package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// SQLiteSink appends records to the audit_logs table
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink creates a sink on a database opened with storage.OpenSQLite
func NewSQLiteSink(db *sql.DB) *SQLiteSink {
	return &SQLiteSink{db: db}
}

// Create inserts the record
func (s *SQLiteSink) Create(ctx context.Context, record Record) error {
	var metadata []byte
	if record.Metadata != nil {
		var err error
		metadata, err = json.Marshal(record.Metadata)
		if err != nil {
			return errors.Wrap(err, "failed to marshal audit metadata")
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, org_id, user_id, action, resource_type, resource_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.OrgID, record.UserID, record.Action,
		record.ResourceType, record.ResourceID, string(metadata), record.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert audit record")
	}
	return nil
}

// List returns matching records, newest first
func (s *SQLiteSink) List(ctx context.Context, q Query) ([]Record, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.OrgID != "" {
		where = append(where, "org_id = ?")
		args = append(args, q.OrgID)
	}
	if q.ResourceID != "" {
		where = append(where, "resource_id = ?")
		args = append(args, q.ResourceID)
	}

	query := `SELECT id, org_id, user_id, action, resource_type, resource_id, metadata, created_at FROM audit_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query audit records")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r         Record
			userID    sql.NullString
			metadata  sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&r.ID, &r.OrgID, &userID, &r.Action, &r.ResourceType, &r.ResourceID, &metadata, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan audit record")
		}
		r.UserID = userID.String
		r.CreatedAt = time.UnixMilli(createdAt).UTC()
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal audit metadata")
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate audit records")
	}
	return records, nil
}
