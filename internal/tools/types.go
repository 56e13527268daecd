// Package tools provides the executable actions behind the assistant.
//
// Each tool is a standalone unit registered in a Registry. The
// orchestrator plans a sequence of tool calls for an interpreted
// utterance and executes them through Registry.Execute; tools never
// talk to each other directly.
package tools

import (
	"context"
	"time"

	"shipsense/internal/fleet"
)

// Property describes a single argument in a tool schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`

	// ContextSlot marks arguments that may be filled from the active
	// conversation context when the utterance leaves them out.
	ContextSlot bool `json:"context_slot,omitempty"`
}

// ToolSchema defines the expected arguments for a tool.
type ToolSchema struct {
	Required   []string            `json:"required"`
	Properties map[string]Property `json:"properties"`
}

// Payload is a typed tool output. Exactly one field group is set:
// Series for data fetches and comparisons, Summary for aggregations,
// Listing for fleet queries.
type Payload struct {
	Series  []fleet.MetricSeries `json:"series,omitempty"`
	Summary *Summary             `json:"summary,omitempty"`
	Listing *Listing             `json:"listing,omitempty"`
}

// Summary is an aggregate view over one metric series.
type Summary struct {
	Title string        `json:"title"`
	Unit  string        `json:"unit"`
	Items []SummaryItem `json:"items"`
}

// SummaryItem is one labelled aggregate value.
type SummaryItem struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Listing is the fleet inventory output.
type Listing struct {
	Vessels []fleet.Vessel `json:"vessels"`
}

// ExecuteFunc is the signature for tool execution.
type ExecuteFunc func(ctx context.Context, args map[string]any) (*Payload, error)

// Tool is one executable action with a declared argument schema.
type Tool struct {
	Name        string
	Description string
	Execute     ExecuteFunc
	Schema      ToolSchema
}

// Validate checks the tool definition.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// ToolCall records one invocation request against a tool.
type ToolCall struct {
	ID        string         `json:"id"`
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args"`
	InvokedAt time.Time      `json:"invoked_at"`
}

// ToolResult wraps one execution outcome with metadata.
type ToolResult struct {
	Call       ToolCall `json:"call"`
	Payload    *Payload `json:"payload,omitempty"`
	Error      error    `json:"-"`
	ErrMessage string   `json:"error,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

// OK reports whether the call succeeded.
func (r *ToolResult) OK() bool {
	return r.Error == nil
}
