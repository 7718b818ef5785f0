package toolregistry

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/harun/toolhub/internal/metrics"
	"github.com/harun/toolhub/internal/tracing"
	"github.com/harun/toolhub/pkg/audit"
	"github.com/harun/toolhub/pkg/tool"
	"github.com/harun/toolhub/pkg/toolcache"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type execOptions struct {
	useCache bool
	ttl      time.Duration
}

// ExecOption configures a single Execute call
type ExecOption func(*execOptions)

// WithoutCache skips both the cache lookup and the cache write
func WithoutCache() ExecOption {
	return func(o *execOptions) {
		o.useCache = false
	}
}

// WithCacheTTL overrides the TTL of the cache entry written by this call
func WithCacheTTL(ttl time.Duration) ExecOption {
	return func(o *execOptions) {
		o.ttl = ttl
	}
}

// PanicError is reported when a tool body panics
type PanicError struct {
	Tool  string
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("tool %s panicked: %v", e.Tool, e.Value)
}

// Execute runs the named tool. Unknown tools, invalid arguments and body
// failures are all reported through the returned result.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}, execCtx tool.ExecutionContext, opts ...ExecOption) tool.ToolResult {
	start := time.Now()

	o := execOptions{useCache: true}
	for _, opt := range opts {
		opt(&o)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	t, ok := r.GetTool(name)
	if !ok {
		log.Warn().Str("tool", name).Str("org_id", execCtx.OrgID).Msg("Tool not found")
		r.metrics.RecordToolError(name, metrics.ErrorNotFound)
		return tool.Failure("Tool not found: %s", name)
	}

	if execCtx.RunID != "" {
		ctx = tracing.WithRunID(ctx, execCtx.RunID)
	}
	ctx, span := tracing.StartSpan(ctx, tracerName, "tool.execute",
		tracing.AttrToolName.String(name),
		tracing.AttrOrgID.String(execCtx.OrgID),
		tracing.AttrRunID.String(execCtx.RunID),
	)
	ctx = tool.ContextWithExecContext(ctx, execCtx)

	logger := tracing.LoggerFromContext(ctx, log.Logger).With().
		Str("tool", name).
		Str("org_id", execCtx.OrgID).
		Logger()

	if err := tool.Validate(t.Schema(), args); err != nil {
		logger.Debug().Err(err).Msg("Parameter validation failed")
		r.metrics.RecordToolError(name, metrics.ErrorValidation)
		tracing.EndSpan(span, err.Error())

		res := tool.Failure("%s", err.Error())
		res.Metadata.ExecutionTimeMs = time.Since(start).Milliseconds()
		return res
	}

	useCache := o.useCache && r.cacheEnabled && r.cache != nil && execCtx.RunID != "" && cacheable(t)

	var (
		res    tool.ToolResult
		cached bool
	)
	if useCache {
		res, cached = r.executeCached(ctx, logger, t, args, execCtx, o.ttl)
	} else {
		res = r.executeFresh(ctx, logger, t, args, execCtx, false, 0)
	}

	span.SetAttributes(tracing.AttrCached.Bool(cached), tracing.AttrSuccess.Bool(res.Success))
	tracing.EndSpan(span, res.Error)
	return res
}

type flightResult struct {
	res    tool.ToolResult
	cached bool
}

// executeCached serves the call from the cache or runs it once for every
// concurrent caller with the same fingerprint. Callers that joined another
// caller's flight receive its result marked as cached.
func (r *Registry) executeCached(ctx context.Context, logger zerolog.Logger, t tool.Tool, args map[string]interface{}, execCtx tool.ExecutionContext, ttl time.Duration) (tool.ToolResult, bool) {
	name := t.Name()
	key, err := toolcache.Fingerprint(name, args, execCtx.RunID, execCtx.OrgID)
	if err != nil {
		logger.Warn().Err(err).Msg("Arguments cannot be fingerprinted, skipping cache")
		r.metrics.RecordCacheLookup(name, metrics.CacheError)
		return r.executeFresh(ctx, logger, t, args, execCtx, false, 0), false
	}

	led := false
	v, _, _ := r.flight.Do(key, func() (interface{}, error) {
		led = true
		if res, hit := r.lookupCache(ctx, logger, name, args, execCtx); hit {
			return flightResult{res: res, cached: true}, nil
		}
		return flightResult{res: r.executeFresh(ctx, logger, t, args, execCtx, true, ttl)}, nil
	})

	out := v.(flightResult)
	if led {
		return out.res, out.cached
	}

	res := out.res
	res.Metadata.Cached = true
	res.Metadata.ExecutionTimeMs = 0
	r.metrics.RecordCacheLookup(name, metrics.CacheHit)
	logger.Debug().Msg("Joined in-flight execution")
	return res, true
}

// executeFresh runs the tool body, records the outcome and writes the audit
// record. With store set, results the body returned are written to the cache.
func (r *Registry) executeFresh(ctx context.Context, logger zerolog.Logger, t tool.Tool, args map[string]interface{}, execCtx tool.ExecutionContext, store bool, ttl time.Duration) tool.ToolResult {
	name := t.Name()

	bodyStart := time.Now()
	res, execErr := invoke(ctx, t, args, execCtx)
	elapsed := time.Since(bodyStart)

	if execErr != nil {
		kind := metrics.ErrorExecution
		if _, isPanic := execErr.(*PanicError); isPanic {
			kind = metrics.ErrorPanic
		}
		logger.Error().Err(execErr).Dur("duration", elapsed).Msg("Tool execution failed")
		r.metrics.RecordToolError(name, kind)
		res = tool.Failure("%s", execErr.Error())
	} else if !res.Success {
		logger.Debug().Str("error", res.Error).Dur("duration", elapsed).Msg("Tool reported failure")
		r.metrics.RecordToolError(name, metrics.ErrorExecution)
	} else {
		logger.Debug().Dur("duration", elapsed).Msg("Tool execution completed")
	}

	res.Metadata.Cached = false
	res.Metadata.ExecutionTimeMs = elapsed.Milliseconds()
	r.metrics.RecordToolExecution(name, elapsed, res.Success)

	// Thrown errors are never cached, returned failures are.
	if store && execErr == nil {
		r.storeCache(ctx, logger, t, args, res, execCtx, ttl)
	}

	r.writeAudit(ctx, logger, name, args, execCtx, res)
	return res
}

func cacheable(t tool.Tool) bool {
	u, ok := t.(tool.Uncacheable)
	return !ok || !u.NoCache()
}

// invoke runs the tool body, converting a panic into a PanicError
func invoke(ctx context.Context, t tool.Tool, args map[string]interface{}, execCtx tool.ExecutionContext) (res tool.ToolResult, err error) {
	defer func() {
		if v := recover(); v != nil {
			log.Error().
				Str("tool", t.Name()).
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Msg("Recovered panic in tool body")
			res = tool.ToolResult{}
			err = &PanicError{Tool: t.Name(), Value: v}
		}
	}()
	return t.Execute(ctx, args, execCtx)
}

func (r *Registry) lookupCache(ctx context.Context, logger zerolog.Logger, name string, args map[string]interface{}, execCtx tool.ExecutionContext) (tool.ToolResult, bool) {
	entry, err := r.cache.Find(ctx, name, args, execCtx.RunID, execCtx.OrgID)
	if err != nil {
		logger.Warn().Err(err).Msg("Cache lookup failed")
		r.metrics.RecordCacheLookup(name, metrics.CacheError)
		return tool.ToolResult{}, false
	}
	if entry == nil {
		r.metrics.RecordCacheLookup(name, metrics.CacheMiss)
		return tool.ToolResult{}, false
	}

	res, err := entry.Result()
	if err != nil {
		logger.Warn().Err(err).Msg("Cached result unreadable")
		r.metrics.RecordCacheLookup(name, metrics.CacheError)
		return tool.ToolResult{}, false
	}

	res.Metadata.Cached = true
	res.Metadata.ExecutionTimeMs = 0
	r.metrics.RecordCacheLookup(name, metrics.CacheHit)
	logger.Debug().Msg("Served from cache")
	return res, true
}

func (r *Registry) storeCache(ctx context.Context, logger zerolog.Logger, t tool.Tool, args map[string]interface{}, res tool.ToolResult, execCtx tool.ExecutionContext, override time.Duration) {
	ttl := r.cacheTTL(t, override)
	err := r.cache.Store(ctx, t.Name(), args, res, execCtx.RunID, execCtx.OrgID, ttl)
	r.metrics.RecordCacheWrite(t.Name(), err == nil)
	if err != nil {
		logger.Warn().Err(err).Msg("Cache write failed")
	}
}

// writeAudit records the attempt. Errors stop here.
func (r *Registry) writeAudit(ctx context.Context, logger zerolog.Logger, name string, args map[string]interface{}, execCtx tool.ExecutionContext, res tool.ToolResult) {
	if r.sink == nil {
		return
	}

	record, err := audit.NewToolRecord(audit.ToolExecution{
		OrgID:           execCtx.OrgID,
		UserID:          execCtx.UserID,
		ToolName:        name,
		Arguments:       args,
		Success:         res.Success,
		ExecutionTimeMs: res.Metadata.ExecutionTimeMs,
		AgentID:         execCtx.AgentID,
		WorkflowID:      execCtx.WorkflowID,
		RunID:           execCtx.RunID,
		ResourceIDs:     res.ResourceIDs(),
		Error:           res.Error,
	})
	if err == nil {
		err = r.sink.Create(ctx, record)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to write audit record")
		r.metrics.RecordAuditError()
	}
}
