package observability

import (
	"context"
	"time"

	"github.com/marketmind/marketmind/internal/core/domain"
	"github.com/marketmind/marketmind/internal/core/ports"
)

// Noop satisfies the observability port while recording nothing. Selecting it
// disables tracing without any branching in the loop.
type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) CreateTrace(context.Context, string, string, string, map[string]interface{}) domain.TraceID {
	return ""
}

func (Noop) LogLLMGeneration(context.Context, domain.TraceID, string, interface{}, interface{}, time.Time, time.Time, map[string]interface{}) {
}

func (Noop) LogToolExecution(context.Context, domain.TraceID, string, interface{}, interface{}, time.Time, time.Time, bool) {
}

func (Noop) LogSpan(context.Context, domain.TraceID, string, interface{}, interface{}, time.Time, time.Time, map[string]interface{}) {
}

func (Noop) CompleteTrace(context.Context, domain.TraceID, interface{}, bool) {}

func (Noop) TraceURL(domain.TraceID) string { return "" }

func (Noop) Flush(context.Context) {}

var _ ports.Observability = Noop{}
