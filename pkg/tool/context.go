package tool

import "context"

// ExecutionContext scopes a call for caching and audit
type ExecutionContext struct {
	OrgID      string `json:"orgId"`
	UserID     string `json:"userId,omitempty"`
	AgentID    string `json:"agentId,omitempty"`
	WorkflowID string `json:"workflowId,omitempty"`
	RunID      string `json:"runId,omitempty"`
}

type execContextKey struct{}

// ContextWithExecContext attaches the execution context to a context.Context for tool bodies.
func ContextWithExecContext(ctx context.Context, execCtx ExecutionContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, execContextKey{}, execCtx)
}

// ExecContextFromContext extracts the execution context from a context.Context.
func ExecContextFromContext(ctx context.Context) (ExecutionContext, bool) {
	if ctx == nil {
		return ExecutionContext{}, false
	}
	execCtx, ok := ctx.Value(execContextKey{}).(ExecutionContext)
	return execCtx, ok
}
