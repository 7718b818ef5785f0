package tool

import (
	"context"
	"time"
)

// Tool is a named capability with a declared parameter schema and an
// executable body.
type Tool interface {
	Name() string
	Description() string
	Schema() ParameterSchema
	// Execute runs the tool body. A returned error is treated as an
	// unexpected failure; expected failures are reported through the result.
	Execute(ctx context.Context, args map[string]interface{}, execCtx ExecutionContext) (ToolResult, error)
}

// CacheTTLProvider is implemented by tools that declare their own cache TTL.
type CacheTTLProvider interface {
	CacheTTL() time.Duration
}

// Uncacheable is implemented by tools whose results must never be served
// from the result cache, such as tools with side effects.
type Uncacheable interface {
	NoCache() bool
}

// Handler is the function signature for tool bodies built with New
type Handler func(ctx context.Context, args map[string]interface{}, execCtx ExecutionContext) (ToolResult, error)

// Option configures a tool built with New
type Option func(*funcTool)

// WithCacheTTL sets the tool-defined cache TTL
func WithCacheTTL(ttl time.Duration) Option {
	return func(t *funcTool) {
		t.cacheTTL = ttl
	}
}

// NoCache marks the tool as uncacheable
func NoCache() Option {
	return func(t *funcTool) {
		t.noCache = true
	}
}

type funcTool struct {
	name        string
	description string
	schema      ParameterSchema
	handler     Handler
	cacheTTL    time.Duration
	noCache     bool
}

// New creates a Tool from a handler function
func New(name, description string, schema ParameterSchema, handler Handler, opts ...Option) Tool {
	t := &funcTool{
		name:        name,
		description: description,
		schema:      schema,
		handler:     handler,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *funcTool) Name() string            { return t.name }
func (t *funcTool) Description() string     { return t.description }
func (t *funcTool) Schema() ParameterSchema { return t.schema }
func (t *funcTool) CacheTTL() time.Duration { return t.cacheTTL }
func (t *funcTool) NoCache() bool           { return t.noCache }

func (t *funcTool) Execute(ctx context.Context, args map[string]interface{}, execCtx ExecutionContext) (ToolResult, error) {
	return t.handler(ctx, args, execCtx)
}
