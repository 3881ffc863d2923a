package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marketmind/marketmind/internal/core/domain"
	"github.com/marketmind/marketmind/internal/core/ports"
)

const (
	maxTraces        = 500  // ring buffer size
	maxInputOutput   = 2000 // truncate recorded input/output at 2KB
	storeReadTimeout = 5 * time.Second
)

// Local keeps recent traces in an in-memory ring buffer and optionally
// persists completed ones through a TraceStore. It backs the /v1/traces
// inspection endpoints for deployments without an external tracing backend.
type Local struct {
	logger *slog.Logger
	store  ports.TraceStore // optional

	mu         sync.RWMutex
	traces     map[domain.TraceID]*domain.Trace
	spans      map[domain.SpanID]*domain.Span
	traceOrder []domain.TraceID // for eviction

	wg sync.WaitGroup // outstanding persistence writes
}

// NewLocal creates the collector. store may be nil; when set, completed
// traces are saved asynchronously and awaited by Flush.
func NewLocal(logger *slog.Logger, store ports.TraceStore) *Local {
	return &Local{
		logger: logger,
		store:  store,
		traces: make(map[domain.TraceID]*domain.Trace, maxTraces),
		spans:  make(map[domain.SpanID]*domain.Span, maxTraces*8),
	}
}

func (l *Local) CreateTrace(_ context.Context, name, userID, sessionID string, _ map[string]interface{}) domain.TraceID {
	traceID := domain.TraceID(uuid.New().String())
	rootSpanID := domain.SpanID(uuid.New().String())
	now := time.Now()

	root := &domain.Span{
		ID:        rootSpanID,
		TraceID:   traceID,
		Name:      name,
		Kind:      domain.SpanKindAgent,
		Status:    domain.SpanStatusRunning,
		StartTime: now,
	}
	trace := &domain.Trace{
		ID:         traceID,
		RootSpanID: rootSpanID,
		Name:       name,
		Status:     domain.SpanStatusRunning,
		UserID:     userID,
		SessionID:  sessionID,
		StartTime:  now,
		SpanCount:  1,
	}

	l.mu.Lock()
	l.evictIfNeeded()
	l.traces[traceID] = trace
	l.spans[rootSpanID] = root
	l.traceOrder = append(l.traceOrder, traceID)
	l.mu.Unlock()

	l.logger.Debug("trace started", "trace_id", string(traceID), "name", name)
	return traceID
}

func (l *Local) addSpan(traceID domain.TraceID, name string, kind domain.SpanKind, input, output interface{}, start, end time.Time, status domain.SpanStatus, model string) {
	if traceID == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	trace, ok := l.traces[traceID]
	if !ok {
		return
	}

	spanID := domain.SpanID(uuid.New().String())
	endCopy := end
	span := &domain.Span{
		ID:         spanID,
		ParentID:   trace.RootSpanID,
		TraceID:    traceID,
		Name:       name,
		Kind:       kind,
		Status:     status,
		Input:      truncate(stringify(input), maxInputOutput),
		Output:     truncate(stringify(output), maxInputOutput),
		Model:      model,
		StartTime:  start,
		EndTime:    &endCopy,
		DurationMs: end.Sub(start).Milliseconds(),
	}

	l.spans[spanID] = span
	if root, ok := l.spans[trace.RootSpanID]; ok {
		root.Children = append(root.Children, spanID)
	}
	trace.SpanCount++
}

func (l *Local) LogLLMGeneration(_ context.Context, traceID domain.TraceID, model string, input, output interface{}, startTime, endTime time.Time, _ map[string]interface{}) {
	l.addSpan(traceID, "llm.generate", domain.SpanKindGeneration, input, output, startTime, endTime, domain.SpanStatusOK, model)
}

func (l *Local) LogToolExecution(_ context.Context, traceID domain.TraceID, toolName string, input, output interface{}, startTime, endTime time.Time, success bool) {
	status := domain.SpanStatusOK
	if !success {
		status = domain.SpanStatusError
	}
	l.addSpan(traceID, "tool."+toolName, domain.SpanKindTool, input, output, startTime, endTime, status, "")
}

func (l *Local) LogSpan(_ context.Context, traceID domain.TraceID, name string, input, output interface{}, startTime, endTime time.Time, _ map[string]interface{}) {
	l.addSpan(traceID, name, domain.SpanKindSpan, input, output, startTime, endTime, domain.SpanStatusOK, "")
}

func (l *Local) CompleteTrace(_ context.Context, traceID domain.TraceID, output interface{}, success bool) {
	if traceID == "" {
		return
	}

	l.mu.Lock()
	trace, ok := l.traces[traceID]
	if !ok {
		l.mu.Unlock()
		return
	}

	now := time.Now()
	status := domain.SpanStatusOK
	if !success {
		status = domain.SpanStatusError
	}
	trace.Status = status
	trace.EndTime = &now
	trace.DurationMs = now.Sub(trace.StartTime).Milliseconds()

	if root, ok := l.spans[trace.RootSpanID]; ok {
		root.Status = status
		root.Output = truncate(stringify(output), maxInputOutput)
		root.EndTime = &now
		root.DurationMs = now.Sub(root.StartTime).Milliseconds()
	}

	var persistCopy *domain.Trace
	if l.store != nil {
		cp := *trace
		for _, span := range l.spans {
			if span.TraceID == traceID {
				cp.Spans = append(cp.Spans, *span)
			}
		}
		persistCopy = &cp
	}
	l.mu.Unlock()

	if persistCopy != nil {
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := l.store.SaveTrace(ctx, *persistCopy); err != nil {
				l.logger.Warn("failed to persist trace", "trace_id", traceID, "error", err)
			}
		}()
	}
}

func (l *Local) TraceURL(traceID domain.TraceID) string {
	if traceID == "" {
		return ""
	}
	return "/v1/traces/" + string(traceID)
}

// Flush waits for outstanding persistence writes.
func (l *Local) Flush(context.Context) {
	l.wg.Wait()
}

// ListTraces returns summaries of recent traces, newest first. When the ring
// buffer is empty (fresh process) it falls back to the persisted store.
func (l *Local) ListTraces(limit int) []domain.TraceSummary {
	l.mu.RLock()
	n := limit
	if n <= 0 || n > len(l.traceOrder) {
		n = len(l.traceOrder)
	}
	result := make([]domain.TraceSummary, 0, n)
	for i := len(l.traceOrder) - 1; i >= 0 && len(result) < n; i-- {
		if trace, ok := l.traces[l.traceOrder[i]]; ok {
			result = append(result, domain.TraceSummary{
				ID:         trace.ID,
				Name:       trace.Name,
				Status:     trace.Status,
				UserID:     trace.UserID,
				StartTime:  trace.StartTime,
				DurationMs: trace.DurationMs,
				SpanCount:  trace.SpanCount,
			})
		}
	}
	l.mu.RUnlock()

	if len(result) == 0 && l.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeReadTimeout)
		defer cancel()
		stored, err := l.store.ListTraces(ctx, limit)
		if err != nil {
			l.logger.Warn("failed to list persisted traces", "error", err)
			return result
		}
		return stored
	}
	return result
}

// GetTrace returns a full trace with all spans. Traces evicted from the ring
// buffer or recorded by an earlier process are looked up in the store.
func (l *Local) GetTrace(traceID domain.TraceID) (domain.Trace, error) {
	l.mu.RLock()
	trace, ok := l.traces[traceID]
	if ok {
		result := *trace
		for _, span := range l.spans {
			if span.TraceID == traceID {
				result.Spans = append(result.Spans, *span)
			}
		}
		l.mu.RUnlock()
		return result, nil
	}
	l.mu.RUnlock()

	if l.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeReadTimeout)
		defer cancel()
		return l.store.GetTrace(ctx, traceID)
	}
	return domain.Trace{}, fmt.Errorf("trace not found: %s", traceID)
}

func (l *Local) evictIfNeeded() {
	for len(l.traceOrder) >= maxTraces {
		oldID := l.traceOrder[0]
		l.traceOrder = l.traceOrder[1:]

		for sid, span := range l.spans {
			if span.TraceID == oldID {
				delete(l.spans, sid)
			}
		}
		delete(l.traces, oldID)
	}
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "...[truncated]"
}

var _ ports.Observability = (*Local)(nil)
