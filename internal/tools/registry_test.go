package tools

import (
	"context"
	"errors"
	"testing"
)

func noopTool(name string) *Tool {
	return &Tool{
		Name:        name,
		Description: "test tool",
		Execute: func(ctx context.Context, args map[string]any) (*Payload, error) {
			return &Payload{}, nil
		},
		Schema: ToolSchema{Properties: map[string]Property{}},
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(noopTool("alpha")); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if !r.Has("alpha") {
		t.Error("registered tool should be present")
	}
	if r.Count() != 1 {
		t.Errorf("count = %d, want 1", r.Count())
	}
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(noopTool("alpha"))
	err := r.Register(noopTool("alpha"))
	if !errors.Is(err, ErrToolAlreadyRegistered) {
		t.Errorf("expected ErrToolAlreadyRegistered, got %v", err)
	}
}

func TestRegistryRejectsInvalidTool(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&Tool{Name: ""}); err == nil {
		t.Error("expected error for empty tool name")
	}
	if err := r.Register(&Tool{Name: "broken"}); err == nil {
		t.Error("expected error for nil execute")
	}
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), "missing", nil)
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
}

func TestRegistryExecuteValidatesRequired(t *testing.T) {
	r := NewRegistry()
	tool := noopTool("strict")
	tool.Schema.Required = []string{"vessel"}
	r.MustRegister(tool)

	result, err := r.Execute(context.Background(), "strict", map[string]any{})
	if !errors.Is(err, ErrMissingRequiredArg) {
		t.Fatalf("expected ErrMissingRequiredArg, got %v", err)
	}
	if result == nil || result.OK() {
		t.Error("failed execution should yield a non-OK result")
	}
	if result.ErrMessage == "" {
		t.Error("failed result should carry the error message")
	}
}

func TestRegistryExecuteRecordsCall(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(noopTool("alpha"))

	result, err := r.Execute(context.Background(), "alpha", map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !result.OK() {
		t.Error("result should be OK")
	}
	if result.Call.Tool != "alpha" {
		t.Errorf("call tool = %q, want alpha", result.Call.Tool)
	}
	if result.Call.ID == "" {
		t.Error("call should be assigned an ID")
	}
	if result.Call.InvokedAt.IsZero() {
		t.Error("call should record invocation time")
	}
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(noopTool("zeta"))
	r.MustRegister(noopTool("alpha"))
	names := r.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("names should be sorted, got %v", names)
	}
}
