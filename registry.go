package mymcp

import (
	"context"
	"encoding/json"
	"fmt"
)

// HandlerFunc consumes raw tool arguments and returns a result payload or a
// taxonomy error.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

// InputSchema is the JSON schema advertised for a tool's arguments.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Property describes a single argument.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Tool is a single tool descriptor as advertised by tools/list.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// Registry maps tool names to handlers. Built once at startup, read-only
// afterwards; registration order is preserved for tools/list.
type Registry struct {
	tools    []Tool
	handlers map[string]HandlerFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register adds a tool. Registering a duplicate name is a startup-time
// configuration error and panics.
func (r *Registry) Register(tool Tool, handler HandlerFunc) {
	if tool.Name == "" {
		panic("registry: tool name must be non-empty")
	}
	if handler == nil {
		panic(fmt.Sprintf("registry: tool %q has nil handler", tool.Name))
	}
	if _, ok := r.handlers[tool.Name]; ok {
		panic(fmt.Sprintf("registry: tool %q registered twice", tool.Name))
	}
	r.tools = append(r.tools, tool)
	r.handlers[tool.Name] = handler
}

// List returns the descriptors in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Resolve returns the handler for name, or false when unknown.
func (r *Registry) Resolve(name string) (HandlerFunc, bool) {
	h, ok := r.handlers[name]
	return h, ok
}
