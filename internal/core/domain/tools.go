package domain

import (
	"context"
	"fmt"
	"sort"
)

// Tool is an executable capability exposed to the model.
type Tool struct {
	Name        string
	Description string
	Parameters  ToolParameters
	Execute     ToolExecutor
}

// ToolParameters is the JSON schema of a tool's arguments.
type ToolParameters struct {
	Type       string                 `json:"type"` // always "object"
	Properties map[string]interface{} `json:"properties"`
	Required   []string               `json:"required,omitempty"`
}

// ToolExecutor runs a tool with decoded arguments and returns the observation
// text. Errors are rendered into the observation by the registry; they never
// reach the reasoning loop.
type ToolExecutor func(ctx context.Context, params map[string]interface{}) (string, error)

// ToolRegistry is the name -> (schema, handler) dispatch table, built once at
// startup and read-only afterwards, so it is safe to share across queries.
type ToolRegistry struct {
	tools map[string]*Tool
	names []string // registration order, for stable schema listing
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Duplicate or empty names are rejected.
func (r *ToolRegistry) Register(tool *Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool already registered: %s", tool.Name)
	}
	r.tools[tool.Name] = tool
	r.names = append(r.names, tool.Name)
	return nil
}

// Get returns a tool by name.
func (r *ToolRegistry) Get(name string) (*Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools in registration order.
func (r *ToolRegistry) List() []*Tool {
	out := make([]*Tool, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the registered tool names, sorted.
func (r *ToolRegistry) Names() []string {
	out := append([]string(nil), r.names...)
	sort.Strings(out)
	return out
}

// Run executes the requested call and always returns observation text.
// Unknown tools, malformed arguments, and executor failures all render as
// "Error ..." strings: failures are data for the model, not loop faults.
func (r *ToolRegistry) Run(ctx context.Context, call ToolCall) string {
	tool, ok := r.tools[call.Name]
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", call.Name)
	}
	result, err := tool.Execute(ctx, call.ArgumentsMap())
	if err != nil {
		return fmt.Sprintf("Error executing %s: %v", call.Name, err)
	}
	return result
}
