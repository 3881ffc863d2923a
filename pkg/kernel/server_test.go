package kernel

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketmind/marketmind/internal/core/domain"
)

type fakeOrchestrator struct {
	result     domain.QueryResult
	events     []domain.StreamEvent
	err        error
	lastQuery  string
	lastUserID string
}

func (f *fakeOrchestrator) ProcessQuery(_ context.Context, query, userID, _ string) (domain.QueryResult, error) {
	f.lastQuery = query
	f.lastUserID = userID
	if f.err != nil {
		return domain.QueryResult{}, f.err
	}
	return f.result, nil
}

func (f *fakeOrchestrator) ProcessQueryStream(_ context.Context, query, userID, _ string) (<-chan domain.StreamEvent, error) {
	f.lastQuery = query
	f.lastUserID = userID
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan domain.StreamEvent, len(f.events))
	for _, ev := range f.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

type fakeAuthenticator struct {
	claims   map[string]interface{}
	tokens   domain.AuthTokens
	verifyOK bool
	loginOK  bool
}

func (f *fakeAuthenticator) VerifyToken(_ context.Context, token string) (map[string]interface{}, error) {
	if !f.verifyOK || token == "" {
		return nil, domain.ErrInvalidToken
	}
	return f.claims, nil
}

func (f *fakeAuthenticator) Login(_ context.Context, username, password string) (domain.AuthTokens, error) {
	if !f.loginOK {
		return domain.AuthTokens{}, errors.New("not authorized")
	}
	return f.tokens, nil
}

type fakeTraceReader struct {
	summaries []domain.TraceSummary
	trace     domain.Trace
	found     bool
}

func (f *fakeTraceReader) ListTraces(limit int) []domain.TraceSummary {
	if limit < len(f.summaries) {
		return f.summaries[:limit]
	}
	return f.summaries
}

func (f *fakeTraceReader) GetTrace(traceID domain.TraceID) (domain.Trace, error) {
	if !f.found {
		return domain.Trace{}, errors.New("trace not found: " + string(traceID))
	}
	return f.trace, nil
}

func newTestServer(t *testing.T, orch *fakeOrchestrator, auth *fakeAuthenticator, traces TraceReader) *Server {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	srv, err := NewServer(logger, orch, auth, traces, false)
	require.NoError(t, err)
	return srv
}

func validAuth() *fakeAuthenticator {
	return &fakeAuthenticator{
		verifyOK: true,
		claims:   map[string]interface{}{"sub": "user-123"},
	}
}

func postJSON(handler http.Handler, path, token string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestQueryBlocking(t *testing.T) {
	orch := &fakeOrchestrator{
		result: domain.QueryResult{
			Query:  "What is the AMZN price?",
			Answer: "Amazon trades at $185.42.",
			ReasoningSteps: []domain.AgentStep{
				{StepNumber: 1, Action: "retrieve_realtime_stock_price", ActionInput: map[string]interface{}{"symbol": "AMZN"}, Observation: "Stock: AMZN", Timestamp: time.Now()},
			},
			Sources:         []string{},
			ExecutionTimeMs: 123.4,
			Timestamp:       time.Now(),
			TraceID:         "trace-1",
		},
	}
	srv := newTestServer(t, orch, validAuth(), nil)

	stream := false
	rec := postJSON(srv.Handler(), "/agent/query", "good-token", QueryRequest{Query: "What is the AMZN price?", Stream: &stream})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Amazon trades at $185.42.", resp.Answer)
	assert.Len(t, resp.ReasoningSteps, 1)
	assert.Equal(t, "retrieve_realtime_stock_price", resp.ReasoningSteps[0].Action)
	assert.Equal(t, "trace-1", resp.TraceID)
	assert.Equal(t, "user-123", orch.lastUserID)
}

func TestQueryStreamingDefault(t *testing.T) {
	orch := &fakeOrchestrator{
		events: []domain.StreamEvent{
			domain.NewStreamEvent(domain.StreamEventAgentStep, map[string]interface{}{"node": "agent"}),
			domain.NewStreamEvent(domain.StreamEventFinalAnswer, map[string]interface{}{"answer": "done"}),
		},
	}
	srv := newTestServer(t, orch, validAuth(), nil)

	// No stream flag: SSE is the default.
	rec := postJSON(srv.Handler(), "/agent/query", "good-token", QueryRequest{Query: "hello"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	frames := parseSSEFrames(t, rec.Body)
	require.Len(t, frames, 3)
	assert.Equal(t, "agent_step", frames[0]["event_type"])
	assert.Equal(t, "final_answer", frames[1]["event_type"])
	assert.Equal(t, "done", frames[2]["event_type"])
}

func TestQueryEmptyAfterTrim(t *testing.T) {
	orch := &fakeOrchestrator{err: domain.ErrEmptyQuery}
	srv := newTestServer(t, orch, validAuth(), nil)

	rec := postJSON(srv.Handler(), "/agent/query", "good-token", QueryRequest{Query: "   "})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Validation Error", resp.Error)
}

func TestQueryContractRejectsMissingQuery(t *testing.T) {
	orch := &fakeOrchestrator{}
	srv := newTestServer(t, orch, validAuth(), nil)

	rec := postJSON(srv.Handler(), "/agent/query", "good-token", map[string]interface{}{"stream": false})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	// The contract rejected the request before it reached the orchestrator.
	assert.Empty(t, orch.lastQuery)
}

func TestQueryProcessingFailure(t *testing.T) {
	orch := &fakeOrchestrator{err: &domain.ProcessingError{Query: "q", Err: errors.New("model unavailable")}}
	srv := newTestServer(t, orch, validAuth(), nil)

	stream := false
	rec := postJSON(srv.Handler(), "/agent/query", "good-token", QueryRequest{Query: "q", Stream: &stream})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Detail, "model unavailable")
}

func TestQueryUnauthorized(t *testing.T) {
	srv := newTestServer(t, &fakeOrchestrator{}, validAuth(), nil)

	t.Run("missing token", func(t *testing.T) {
		rec := postJSON(srv.Handler(), "/agent/query", "", QueryRequest{Query: "q"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("rejected token", func(t *testing.T) {
		auth := &fakeAuthenticator{verifyOK: false}
		srv := newTestServer(t, &fakeOrchestrator{}, auth, nil)
		rec := postJSON(srv.Handler(), "/agent/query", "bad-token", QueryRequest{Query: "q"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token without sub claim", func(t *testing.T) {
		auth := &fakeAuthenticator{verifyOK: true, claims: map[string]interface{}{}}
		srv := newTestServer(t, &fakeOrchestrator{}, auth, nil)
		rec := postJSON(srv.Handler(), "/agent/query", "good-token", QueryRequest{Query: "q"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestQueryAuthDisabled(t *testing.T) {
	orch := &fakeOrchestrator{result: domain.QueryResult{
		Query: "q", Answer: "a", ReasoningSteps: []domain.AgentStep{}, Sources: []string{}, Timestamp: time.Now(),
	}}
	logger := slog.New(slog.DiscardHandler)
	srv, err := NewServer(logger, orch, nil, nil, true)
	require.NoError(t, err)

	stream := false
	rec := postJSON(srv.Handler(), "/agent/query", "", QueryRequest{Query: "q", Stream: &stream})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "anonymous", orch.lastUserID)
}

func TestLogin(t *testing.T) {
	auth := &fakeAuthenticator{
		loginOK: true,
		tokens: domain.AuthTokens{
			AccessToken:  "access",
			IDToken:      "id",
			RefreshToken: "refresh",
			ExpiresIn:    1800,
		},
	}
	srv := newTestServer(t, &fakeOrchestrator{}, auth, nil)

	rec := postJSON(srv.Handler(), "/auth/login", "", AuthRequest{Username: "alice", Password: "correct-horse"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "access", resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int32(1800), resp.ExpiresIn)
}

func TestLoginFailure(t *testing.T) {
	auth := &fakeAuthenticator{loginOK: false}
	srv := newTestServer(t, &fakeOrchestrator{}, auth, nil)

	rec := postJSON(srv.Handler(), "/auth/login", "", AuthRequest{Username: "alice", Password: "wrong-password"})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Authentication Failed", resp.Error)
}

func TestLoginContractRejectsShortPassword(t *testing.T) {
	auth := &fakeAuthenticator{loginOK: true}
	srv := newTestServer(t, &fakeOrchestrator{}, auth, nil)

	rec := postJSON(srv.Handler(), "/auth/login", "", AuthRequest{Username: "alice", Password: "short"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndRoot(t *testing.T) {
	srv := newTestServer(t, &fakeOrchestrator{}, validAuth(), nil)
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, apiVersion, health.Version)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "MarketMind API", info["name"])
}

func TestTracesEndpoints(t *testing.T) {
	traces := &fakeTraceReader{
		summaries: []domain.TraceSummary{
			{ID: "t2", Name: "query: second"},
			{ID: "t1", Name: "query: first"},
		},
		trace: domain.Trace{ID: "t2", Name: "query: second"},
		found: true,
	}
	srv := newTestServer(t, &fakeOrchestrator{}, validAuth(), traces)
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/traces?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var list struct {
		Traces []domain.TraceSummary `json:"traces"`
		Count  int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, domain.TraceID("t2"), list.Traces[0].ID)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/traces/t2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	traces.found = false
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/traces/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTracesNotMountedWithoutLocalBackend(t *testing.T) {
	srv := newTestServer(t, &fakeOrchestrator{}, validAuth(), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/traces", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// parseSSEFrames decodes every `data:` line of an SSE body into JSON objects.
func parseSSEFrames(t *testing.T, body io.Reader) []map[string]interface{} {
	t.Helper()
	var frames []map[string]interface{}
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var frame map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame))
		frames = append(frames, frame)
	}
	require.NoError(t, scanner.Err())
	return frames
}
