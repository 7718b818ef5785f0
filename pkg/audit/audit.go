package audit

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Record field values written for tool executions
const (
	ActionToolExecute = "tool_execute"
	ResourceTypeTool  = "tool"
)

// Record is a single append-only audit log entry
type Record struct {
	ID           string                 `json:"id"`
	OrgID        string                 `json:"org_id"`
	UserID       string                 `json:"user_id,omitempty"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// Sink persists audit records
type Sink interface {
	Create(ctx context.Context, record Record) error
}

// Query filters records returned by sinks that support listing
type Query struct {
	OrgID      string
	ResourceID string
	Limit      int
}

// Lister is implemented by sinks that can read records back
type Lister interface {
	List(ctx context.Context, q Query) ([]Record, error)
}

// ToolExecution describes one real tool execution attempt
type ToolExecution struct {
	OrgID           string
	UserID          string
	ToolName        string
	Arguments       map[string]interface{}
	Success         bool
	ExecutionTimeMs int64
	AgentID         string
	WorkflowID      string
	RunID           string
	ResourceIDs     []string
	Error           string
}

// NewToolRecord builds the audit record for a tool execution
func NewToolRecord(exec ToolExecution) (Record, error) {
	id, err := gonanoid.New()
	if err != nil {
		return Record{}, errors.Wrap(err, "failed to generate audit record id")
	}

	metadata := map[string]interface{}{
		"arguments":       exec.Arguments,
		"success":         exec.Success,
		"executionTimeMs": exec.ExecutionTimeMs,
	}
	if exec.AgentID != "" {
		metadata["agentId"] = exec.AgentID
	}
	if exec.WorkflowID != "" {
		metadata["workflowId"] = exec.WorkflowID
	}
	if exec.RunID != "" {
		metadata["runId"] = exec.RunID
	}
	if len(exec.ResourceIDs) > 0 {
		metadata["resourcesCreated"] = exec.ResourceIDs
	}
	if exec.Error != "" {
		metadata["error"] = exec.Error
	}

	return Record{
		ID:           id,
		OrgID:        exec.OrgID,
		UserID:       exec.UserID,
		Action:       ActionToolExecute,
		ResourceType: ResourceTypeTool,
		ResourceID:   exec.ToolName,
		Metadata:     metadata,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Multi fans a record out to several sinks. Every sink is attempted; the
// returned error joins the individual failures.
type Multi []Sink

// Create writes the record to every sink
func (m Multi) Create(ctx context.Context, record Record) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Create(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
