// Package tool defines the contract shared by tool implementations and the
// registry that runs them.
//
// Invariants:
// - A result's Cached flag is only ever set by the registry.
// - Validate is pure; it never mutates the arguments it inspects.
//
// Usage:
//
//	echo := tool.New("echo", "Echo a message",
//		tool.ParameterSchema{
//			Properties: map[string]tool.Property{"msg": {Type: tool.TypeString}},
//			Required:   []string{"msg"},
//		},
//		func(ctx context.Context, args map[string]interface{}, execCtx tool.ExecutionContext) (tool.ToolResult, error) {
//			return tool.Success(map[string]interface{}{"msg": args["msg"]}), nil
//		})
package tool
