package toolcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/harun/toolhub/pkg/tool"
)

// Cache maps a call fingerprint to a previously computed result.
// Expiry is enforced by the implementation.
type Cache interface {
	// Find returns the live entry for the call, or nil on a miss.
	Find(ctx context.Context, toolName string, args map[string]interface{}, runID, orgID string) (*Entry, error)
	Store(ctx context.Context, toolName string, args map[string]interface{}, result tool.ToolResult, runID, orgID string, ttl time.Duration) error
}

// Purger is implemented by caches that can drop expired entries on demand.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// Entry is a cached tool result
type Entry struct {
	Fingerprint      string             `json:"fingerprint"`
	ToolName         string             `json:"tool_name"`
	OrgID            string             `json:"org_id"`
	RunID            string             `json:"run_id"`
	Success          bool               `json:"success"`
	Output           json.RawMessage    `json:"output,omitempty"`
	Error            string             `json:"error,omitempty"`
	ResourcesCreated []tool.ResourceRef `json:"resources_created,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	ExpiresAt        time.Time          `json:"expires_at"`
}

// Expired reports whether the entry is dead at now
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// Result reconstructs the tool result held by the entry.
// The registry is responsible for flagging it as cached.
func (e *Entry) Result() (tool.ToolResult, error) {
	res := tool.ToolResult{
		Success: e.Success,
		Error:   e.Error,
		Metadata: tool.ResultMetadata{
			ResourcesCreated: e.ResourcesCreated,
		},
	}
	if len(e.Output) > 0 && !bytes.Equal(e.Output, []byte("null")) {
		if err := json.Unmarshal(e.Output, &res.Data); err != nil {
			return tool.ToolResult{}, errors.Wrap(err, "failed to decode cached output")
		}
	}
	return res, nil
}

// newEntry builds an entry for a fresh result
func newEntry(toolName string, args map[string]interface{}, result tool.ToolResult, runID, orgID string, ttl time.Duration, now time.Time) (*Entry, error) {
	fp, err := Fingerprint(toolName, args, runID, orgID)
	if err != nil {
		return nil, err
	}

	var output json.RawMessage
	if result.Data != nil {
		output, err = json.Marshal(result.Data)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode tool output")
		}
	}

	return &Entry{
		Fingerprint:      fp,
		ToolName:         toolName,
		OrgID:            orgID,
		RunID:            runID,
		Success:          result.Success,
		Output:           output,
		Error:            result.Error,
		ResourcesCreated: result.Metadata.ResourcesCreated,
		CreatedAt:        now,
		ExpiresAt:        now.Add(ttl),
	}, nil
}

// Fingerprint derives the cache key of a call. Arguments are canonicalized
// so that calls differing only in key order collide.
func Fingerprint(toolName string, args map[string]interface{}, runID, orgID string) (string, error) {
	canonical, err := CanonicalJSON(args)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(toolName))
	h.Write([]byte{0})
	h.Write(canonical)
	h.Write([]byte{0})
	h.Write([]byte(runID))
	h.Write([]byte{0})
	h.Write([]byte(orgID))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CanonicalJSON encodes v with sorted object keys and normalized numbers.
func CanonicalJSON(v interface{}) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode arguments")
	}

	// round-trip through generic values so struct fields and nested maps
	// are emitted in sorted key order
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, errors.Wrap(err, "failed to decode arguments")
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode canonical arguments")
	}
	return out, nil
}
