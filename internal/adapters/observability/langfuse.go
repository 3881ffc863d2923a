package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marketmind/marketmind/internal/core/domain"
	"github.com/marketmind/marketmind/internal/core/ports"
)

const ingestionPath = "/api/public/ingestion"

// Langfuse buffers trace events in memory and ships them to the Langfuse
// batch ingestion API on Flush. Export failures are logged and dropped; the
// sink must never fail a query.
type Langfuse struct {
	host      string
	publicKey string
	secretKey string
	client    *http.Client
	logger    *slog.Logger

	mu     sync.Mutex
	buffer []ingestionEvent
}

type ingestionEvent struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Type      string                 `json:"type"`
	Body      map[string]interface{} `json:"body"`
}

func NewLangfuse(host, publicKey, secretKey string, logger *slog.Logger) *Langfuse {
	return &Langfuse{
		host:      host,
		publicKey: publicKey,
		secretKey: secretKey,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

func (l *Langfuse) enqueue(eventType string, body map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buffer = append(l.buffer, ingestionEvent{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Body:      body,
	})
}

func (l *Langfuse) CreateTrace(_ context.Context, name, userID, sessionID string, metadata map[string]interface{}) domain.TraceID {
	traceID := domain.TraceID(uuid.New().String())
	body := map[string]interface{}{
		"id":        string(traceID),
		"name":      name,
		"timestamp": time.Now().UTC(),
		"metadata":  metadata,
	}
	if userID != "" {
		body["userId"] = userID
	}
	if sessionID != "" {
		body["sessionId"] = sessionID
	}
	l.enqueue("trace-create", body)
	return traceID
}

func (l *Langfuse) LogLLMGeneration(_ context.Context, traceID domain.TraceID, model string, input, output interface{}, startTime, endTime time.Time, metadata map[string]interface{}) {
	l.enqueue("generation-create", map[string]interface{}{
		"id":        uuid.New().String(),
		"traceId":   string(traceID),
		"name":      "llm.generate",
		"model":     model,
		"input":     input,
		"output":    output,
		"startTime": startTime.UTC(),
		"endTime":   endTime.UTC(),
		"metadata":  metadata,
	})
}

func (l *Langfuse) LogToolExecution(_ context.Context, traceID domain.TraceID, toolName string, input, output interface{}, startTime, endTime time.Time, success bool) {
	body := map[string]interface{}{
		"id":        uuid.New().String(),
		"traceId":   string(traceID),
		"name":      "tool_" + toolName,
		"input":     input,
		"output":    output,
		"startTime": startTime.UTC(),
		"endTime":   endTime.UTC(),
	}
	if !success {
		body["level"] = "ERROR"
	}
	l.enqueue("span-create", body)
}

func (l *Langfuse) LogSpan(_ context.Context, traceID domain.TraceID, name string, input, output interface{}, startTime, endTime time.Time, metadata map[string]interface{}) {
	l.enqueue("span-create", map[string]interface{}{
		"id":        uuid.New().String(),
		"traceId":   string(traceID),
		"name":      name,
		"input":     input,
		"output":    output,
		"startTime": startTime.UTC(),
		"endTime":   endTime.UTC(),
		"metadata":  metadata,
	})
}

func (l *Langfuse) CompleteTrace(_ context.Context, traceID domain.TraceID, output interface{}, success bool) {
	// trace-create upserts by ID, which is how completion data lands on the
	// trace opened by CreateTrace.
	body := map[string]interface{}{
		"id":     string(traceID),
		"output": output,
	}
	if !success {
		body["tags"] = []string{"error"}
	}
	l.enqueue("trace-create", body)
}

func (l *Langfuse) TraceURL(traceID domain.TraceID) string {
	if traceID == "" {
		return ""
	}
	return fmt.Sprintf("%s/trace/%s", l.host, traceID)
}

// Flush posts the buffered batch. The buffer is cleared even on failure so a
// broken backend cannot grow memory without bound.
func (l *Langfuse) Flush(ctx context.Context) {
	l.mu.Lock()
	batch := l.buffer
	l.buffer = nil
	l.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{"batch": batch})
	if err != nil {
		l.logger.Warn("langfuse batch marshal failed", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.host+ingestionPath, bytes.NewReader(payload))
	if err != nil {
		l.logger.Warn("langfuse request build failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(l.publicKey, l.secretKey)

	resp, err := l.client.Do(req)
	if err != nil {
		l.logger.Warn("langfuse export failed", "error", err, "events", len(batch))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		l.logger.Warn("langfuse export rejected", "status", resp.StatusCode, "events", len(batch))
		return
	}
	l.logger.Debug("langfuse batch exported", "events", len(batch))
}

var _ ports.Observability = (*Langfuse)(nil)
