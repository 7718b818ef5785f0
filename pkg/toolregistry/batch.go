package toolregistry

import (
	"context"
	"fmt"
	"time"

	"github.com/harun/toolhub/internal/tracing"
	"github.com/harun/toolhub/pkg/template"
	"github.com/harun/toolhub/pkg/tool"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

// Batch modes, used as metric labels
const (
	ModeSequential = "sequential"
	ModeParallel   = "parallel"
)

// Call is one tool invocation inside a batch. ID names the step for
// templates in later calls and defaults to "step<N>", 1-based.
type Call struct {
	ID        string                 `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string                 `json:"name" yaml:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

// CallRecord traces one executed call of a batch
type CallRecord struct {
	ID         string                 `json:"id"`
	ToolName   string                 `json:"toolName"`
	Arguments  map[string]interface{} `json:"arguments"`
	Result     tool.ToolResult        `json:"result"`
	StartedAt  time.Time              `json:"startedAt"`
	EndedAt    time.Time              `json:"endedAt"`
	AgentID    string                 `json:"agentId,omitempty"`
	WorkflowID string                 `json:"workflowId,omitempty"`
	RunID      string                 `json:"runId,omitempty"`
}

// StepID returns the id a call is known by in the batch scope
func StepID(call Call, index int) string {
	if call.ID != "" {
		return call.ID
	}
	return fmt.Sprintf("step%d", index+1)
}

// ExecuteSequentially runs calls in order. Before each call, {{path}}
// placeholders in its arguments are resolved against the data of earlier
// steps. The batch stops after the first failed call, so the returned slice
// only holds the calls that were attempted.
func (r *Registry) ExecuteSequentially(ctx context.Context, calls []Call, execCtx tool.ExecutionContext) []CallRecord {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, tracerName, "tool.batch",
		tracing.AttrBatchMode.String(ModeSequential),
		tracing.AttrBatchCalls.Int(len(calls)),
	)

	scope := template.NewScope()
	records := make([]CallRecord, 0, len(calls))
	failed := ""

	for i, call := range calls {
		id := StepID(call, i)
		rec := r.executeCall(ctx, id, call.Name, scope.Resolve(call.Arguments), execCtx)
		records = append(records, rec)

		if !rec.Result.Success {
			failed = fmt.Sprintf("step %s (%s) failed: %s", id, call.Name, rec.Result.Error)
			log.Debug().
				Str("step", id).
				Str("tool", call.Name).
				Int("skipped", len(calls)-i-1).
				Msg("Sequential batch stopped at failed step")
			break
		}

		if err := scope.Set(id, rec.Result.Data); err != nil {
			log.Warn().Err(err).Str("step", id).Msg("Step output not available to templates")
		}
	}

	r.metrics.RecordBatch(ModeSequential, time.Since(start), failed == "")
	tracing.EndSpan(span, failed)
	return records
}

// ExecuteInParallel runs all calls concurrently and waits for every one of
// them. A failed call does not affect its siblings. Records are returned in
// input order.
func (r *Registry) ExecuteInParallel(ctx context.Context, calls []Call, execCtx tool.ExecutionContext) []CallRecord {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, tracerName, "tool.batch",
		tracing.AttrBatchMode.String(ModeParallel),
		tracing.AttrBatchCalls.Int(len(calls)),
	)

	records := make([]CallRecord, len(calls))

	p := pool.New()
	if r.maxParallel > 0 {
		p = p.WithMaxGoroutines(r.maxParallel)
	}
	for i, call := range calls {
		p.Go(func() {
			records[i] = r.executeCall(ctx, StepID(call, i), call.Name, call.Arguments, execCtx)
		})
	}
	p.Wait()

	failures := 0
	for _, rec := range records {
		if !rec.Result.Success {
			failures++
		}
	}

	msg := ""
	if failures > 0 {
		msg = fmt.Sprintf("%d of %d calls failed", failures, len(calls))
	}
	r.metrics.RecordBatch(ModeParallel, time.Since(start), failures == 0)
	tracing.EndSpan(span, msg)
	return records
}

func (r *Registry) executeCall(ctx context.Context, id, name string, args map[string]interface{}, execCtx tool.ExecutionContext) CallRecord {
	rec := CallRecord{
		ID:         id,
		ToolName:   name,
		Arguments:  args,
		AgentID:    execCtx.AgentID,
		WorkflowID: execCtx.WorkflowID,
		RunID:      execCtx.RunID,
		StartedAt:  time.Now(),
	}
	rec.Result = r.Execute(tracing.WithCallID(ctx, id), name, args, execCtx)
	rec.EndedAt = time.Now()
	return rec
}

// GetResourcesCreated flattens the resources created across a batch, in order
func GetResourcesCreated(records []CallRecord) []tool.ResourceRef {
	var refs []tool.ResourceRef
	for _, rec := range records {
		refs = append(refs, rec.Result.Metadata.ResourcesCreated...)
	}
	return refs
}

// GetResourcesCreated flattens the resources created across a batch, in order
func (r *Registry) GetResourcesCreated(records []CallRecord) []tool.ResourceRef {
	return GetResourcesCreated(records)
}
