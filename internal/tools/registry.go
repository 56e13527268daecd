package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"shipsense/internal/logging"
)

// Registry holds all available tools and provides lookup and execution.
// It is thread-safe and supports registration at runtime.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool to the registry.
// Returns an error if a tool with the same name already exists.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}

	r.tools[tool.Name] = tool
	logging.ToolsDebug("Registered tool: %s", tool.Name)
	return nil
}

// MustRegister registers a tool and panics on error.
// Use this for static tool registration at startup.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has returns true if a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// All returns all registered tools.
func (r *Registry) All() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	return result
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute runs a tool by name with the given arguments.
// Returns ErrToolNotFound if the tool doesn't exist.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	tool := r.Get(name)
	if tool == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return r.ExecuteTool(ctx, tool, args)
}

// ExecuteTool runs a specific tool with the given arguments.
// The returned ToolResult always carries the call record and duration,
// even on failure.
func (r *Registry) ExecuteTool(ctx context.Context, tool *Tool, args map[string]any) (*ToolResult, error) {
	start := time.Now()
	call := ToolCall{
		ID:        uuid.NewString(),
		Tool:      tool.Name,
		Args:      args,
		InvokedAt: start,
	}

	if err := r.validateArgs(tool, args); err != nil {
		return failedResult(call, err, start), err
	}

	logging.ToolsDebug("Executing tool: %s", tool.Name)
	payload, err := tool.Execute(ctx, args)

	duration := time.Since(start)
	logging.ToolsDebug("Tool %s completed in %v (success=%v)", tool.Name, duration, err == nil)

	if err != nil {
		return failedResult(call, err, start), err
	}
	return &ToolResult{
		Call:       call,
		Payload:    payload,
		DurationMs: duration.Milliseconds(),
	}, nil
}

func failedResult(call ToolCall, err error, start time.Time) *ToolResult {
	return &ToolResult{
		Call:       call,
		Error:      err,
		ErrMessage: err.Error(),
		DurationMs: time.Since(start).Milliseconds(),
	}
}

// validateArgs checks that all required arguments are present.
func (r *Registry) validateArgs(tool *Tool, args map[string]any) error {
	for _, required := range tool.Schema.Required {
		if _, ok := args[required]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingRequiredArg, required)
		}
	}
	return nil
}
