package domain

import "time"

// TraceID uniquely identifies a trace (one per agent query).
type TraceID string

// SpanID uniquely identifies a span within a trace.
type SpanID string

// SpanKind classifies the type of operation a span represents.
type SpanKind string

const (
	SpanKindAgent      SpanKind = "agent"      // Top-level agent invocation
	SpanKindGeneration SpanKind = "generation" // LLM call
	SpanKindTool       SpanKind = "tool"       // Tool execution
	SpanKindSpan       SpanKind = "span"       // Generic named span
)

// SpanStatus indicates completion state of a span.
type SpanStatus string

const (
	SpanStatusRunning SpanStatus = "running"
	SpanStatusOK      SpanStatus = "ok"
	SpanStatusError   SpanStatus = "error"
)

// Span represents a single unit of work within a trace.
// Spans form a tree: an agent span contains generation + tool child spans.
type Span struct {
	ID         SpanID                 `json:"id"`
	ParentID   SpanID                 `json:"parent_id,omitempty"` // empty = root
	TraceID    TraceID                `json:"trace_id"`
	Name       string                 `json:"name"` // e.g., "llm.generate", "tool.exec"
	Kind       SpanKind               `json:"kind"`
	Status     SpanStatus             `json:"status"`
	Input      string                 `json:"input,omitempty"`  // truncated input
	Output     string                 `json:"output,omitempty"` // truncated output
	Error      string                 `json:"error,omitempty"`
	Model      string                 `json:"model,omitempty"` // for generation spans
	StartTime  time.Time              `json:"start_time"`
	EndTime    *time.Time             `json:"end_time,omitempty"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Children   []SpanID               `json:"children,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Trace groups all spans of a single agent query.
type Trace struct {
	ID         TraceID    `json:"id"`
	RootSpanID SpanID     `json:"root_span_id"`
	Name       string     `json:"name"` // e.g., "query: what is AMZN trading at"
	Status     SpanStatus `json:"status"`
	UserID     string     `json:"user_id,omitempty"`
	SessionID  string     `json:"session_id,omitempty"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	DurationMs int64      `json:"duration_ms,omitempty"`
	SpanCount  int        `json:"span_count"`
	Spans      []Span     `json:"spans,omitempty"` // populated only on detail view
}

// TraceSummary is a lightweight view for listing traces.
type TraceSummary struct {
	ID         TraceID    `json:"id"`
	Name       string     `json:"name"`
	Status     SpanStatus `json:"status"`
	UserID     string     `json:"user_id,omitempty"`
	StartTime  time.Time  `json:"start_time"`
	DurationMs int64      `json:"duration_ms"`
	SpanCount  int        `json:"span_count"`
}
