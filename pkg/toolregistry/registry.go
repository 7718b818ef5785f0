package toolregistry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/harun/toolhub/internal/metrics"
	"github.com/harun/toolhub/pkg/audit"
	"github.com/harun/toolhub/pkg/tool"
	"github.com/harun/toolhub/pkg/toolcache"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL applies when neither the call nor the tool sets a TTL
const DefaultCacheTTL = 5 * time.Minute

const tracerName = "github.com/harun/toolhub/pkg/toolregistry"

// Registry manages and executes tools
type Registry struct {
	mu    sync.RWMutex
	tools map[string]tool.Tool

	builtins     func() []tool.Tool
	builtinsOnce sync.Once

	cache        toolcache.Cache
	cacheEnabled bool
	defaultTTL   time.Duration
	sink         audit.Sink
	metrics      *metrics.Metrics
	maxParallel  int

	// flight collapses concurrent cached calls with the same fingerprint
	flight singleflight.Group
}

// Option configures a Registry
type Option func(*Registry)

// WithCache sets the result cache
func WithCache(c toolcache.Cache) Option {
	return func(r *Registry) {
		r.cache = c
	}
}

// WithCacheEnabled switches result caching on or off for every call
func WithCacheEnabled(enabled bool) Option {
	return func(r *Registry) {
		r.cacheEnabled = enabled
	}
}

// WithDefaultCacheTTL sets the registry-wide cache TTL
func WithDefaultCacheTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.defaultTTL = ttl
		}
	}
}

// WithAudit sets the audit sink
func WithAudit(s audit.Sink) Option {
	return func(r *Registry) {
		r.sink = s
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithMaxParallel bounds the goroutines used by ExecuteInParallel.
// Zero runs every call of a batch on its own goroutine.
func WithMaxParallel(n int) Option {
	return func(r *Registry) {
		if n >= 0 {
			r.maxParallel = n
		}
	}
}

// WithBuiltins sets the provider of the built-in tool set. It is invoked
// once, on the first lookup.
func WithBuiltins(provider func() []tool.Tool) Option {
	return func(r *Registry) {
		r.builtins = provider
	}
}

// New creates a new Registry
func New(opts ...Option) *Registry {
	r := &Registry{
		tools:        make(map[string]tool.Tool),
		cacheEnabled: true,
		defaultTTL:   DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(r)
	}

	log.Debug().
		Bool("cache", r.cache != nil && r.cacheEnabled).
		Bool("audit", r.sink != nil).
		Dur("default_ttl", r.defaultTTL).
		Msg("Tool registry initialized")

	return r
}

// Register inserts t, replacing any tool already registered under its name.
// Only the declared schema is checked; the body is never inspected.
func (r *Registry) Register(t tool.Tool) error {
	return r.register(t, true)
}

func (r *Registry) register(t tool.Tool, override bool) error {
	if t == nil {
		return fmt.Errorf("invalid tool: nil")
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("invalid tool: name is required")
	}
	if _, err := compileSchema(t.Schema()); err != nil {
		return fmt.Errorf("invalid schema for tool %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		if !override {
			return nil
		}
		log.Debug().Str("tool", name).Msg("Tool registration replaced")
	}
	r.tools[name] = t

	log.Debug().Str("tool", name).Msg("Tool registered")
	return nil
}

func compileSchema(schema tool.ParameterSchema) (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema.JSONSchema()))
}

// ensureBuiltins installs the built-in tools once. Names registered
// explicitly before that moment are kept.
func (r *Registry) ensureBuiltins() {
	if r.builtins == nil {
		return
	}
	r.builtinsOnce.Do(func() {
		for _, t := range r.builtins() {
			if err := r.register(t, false); err != nil {
				log.Error().Err(err).Msg("Failed to register built-in tool")
			}
		}
	})
}

// GetTool returns the tool registered under name
func (r *Registry) GetTool(name string) (tool.Tool, bool) {
	r.ensureBuiltins()

	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	return t, ok
}

// GetAllTools returns every registered tool sorted by name
func (r *Registry) GetAllTools() []tool.Tool {
	r.ensureBuiltins()

	r.mu.RLock()
	tools := make([]tool.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	r.mu.RUnlock()

	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name() < tools[j].Name()
	})
	return tools
}

// GetToolSchemas returns function-calling schemas for the named tools, in
// the order given, skipping unknown names. With no names it describes every
// tool.
func (r *Registry) GetToolSchemas(names ...string) []tool.FunctionSchema {
	var tools []tool.Tool
	if len(names) == 0 {
		tools = r.GetAllTools()
	} else {
		for _, name := range names {
			if t, ok := r.GetTool(name); ok {
				tools = append(tools, t)
			}
		}
	}

	schemas := make([]tool.FunctionSchema, 0, len(tools))
	for _, t := range tools {
		schemas = append(schemas, tool.FunctionSchemaOf(t))
	}
	return schemas
}

// Cache returns the configured result cache, or nil
func (r *Registry) Cache() toolcache.Cache {
	return r.cache
}

func (r *Registry) cacheTTL(t tool.Tool, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	if p, ok := t.(tool.CacheTTLProvider); ok && p.CacheTTL() > 0 {
		return p.CacheTTL()
	}
	return r.defaultTTL
}
