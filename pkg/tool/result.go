package tool

import "fmt"

// ResourceRef identifies durable state created by a tool
type ResourceRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// ResultMetadata carries execution details of a result
type ResultMetadata struct {
	ExecutionTimeMs  int64         `json:"executionTimeMs"`
	Cached           bool          `json:"cached"`
	ResourcesCreated []ResourceRef `json:"resourcesCreated,omitempty"`
}

// ToolResult is the uniform envelope returned for every execution
type ToolResult struct {
	Success bool `json:"success"`
	// Data is whatever the tool returned. When Metadata.Cached is set it
	// may have been decoded from JSON (maps, slices, float64), so callers
	// should not type-assert it to the tool's own Go types.
	Data     interface{}    `json:"data,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata ResultMetadata `json:"metadata"`
}

// Success returns a successful result with data
func Success(data interface{}, resources ...ResourceRef) ToolResult {
	return ToolResult{
		Success: true,
		Data:    data,
		Metadata: ResultMetadata{
			ResourcesCreated: resources,
		},
	}
}

// Failure returns a failed result with a formatted error message
func Failure(format string, args ...interface{}) ToolResult {
	return ToolResult{
		Success: false,
		Error:   fmt.Sprintf(format, args...),
	}
}

// ResourceIDs returns the ids of the resources created by r
func (r ToolResult) ResourceIDs() []string {
	if len(r.Metadata.ResourcesCreated) == 0 {
		return nil
	}
	ids := make([]string, len(r.Metadata.ResourcesCreated))
	for i, ref := range r.Metadata.ResourcesCreated {
		ids[i] = ref.ID
	}
	return ids
}
