// Package toolregistry owns the set of tools and drives every call through
// validation, the result cache, execution and the audit sink.
//
// Invariants:
// - Execute never returns an error or panics; failures travel in the result.
// - Cache hits are neither executed nor audited.
// - Every real execution attempt is audited, audit failures are only logged.
// - ExecuteSequentially stops after the first failed call.
// - ExecuteInParallel returns one record per call, in input order.
//
// Usage:
//
//	reg := toolregistry.New(
//		toolregistry.WithCache(toolcache.NewMemoryCache()),
//		toolregistry.WithAudit(audit.NewMemorySink()),
//	)
//	_ = reg.Register(echoTool)
//	res := reg.Execute(ctx, "echo", map[string]interface{}{"msg": "hi"},
//		tool.ExecutionContext{OrgID: "org1", RunID: "run1"})
package toolregistry
