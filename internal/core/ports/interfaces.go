package ports

import (
	"context"
	"time"

	"github.com/marketmind/marketmind/internal/core/domain"
)

// ChatModel abstracts the LLM provider (OpenAI, Anthropic).
// Invoke sends the full message history plus tool schemas and returns the
// assistant message, which carries either final text or tool calls.
type ChatModel interface {
	Invoke(ctx context.Context, messages []domain.Message, tools []*domain.Tool) (domain.Message, error)

	// ModelID returns the provider model identifier, for trace metadata.
	ModelID() string
}

// StockRepository abstracts the market data provider.
type StockRepository interface {
	// GetRealtimePrice returns the latest quote for a ticker symbol.
	GetRealtimePrice(ctx context.Context, symbol string) (domain.StockPrice, error)

	// GetHistoricalPrices returns closing prices between start and end,
	// sampled at the given period (1d, 1wk, 1mo).
	GetHistoricalPrices(ctx context.Context, symbol string, start, end time.Time, period string) (domain.HistoricalPrices, error)
}

// DocumentRepository abstracts the knowledge base used for document search.
type DocumentRepository interface {
	// Search runs a semantic retrieval and returns chunks filtered by
	// relevance, best first.
	Search(ctx context.Context, query string, maxResults int, minScore float64) ([]domain.DocumentChunk, error)
}

// Authenticator abstracts the identity provider.
type Authenticator interface {
	// VerifyToken validates a bearer token and returns its claims.
	VerifyToken(ctx context.Context, token string) (map[string]interface{}, error)

	// Login exchanges user credentials for tokens.
	Login(ctx context.Context, username, password string) (domain.AuthTokens, error)
}

// Observability receives the lifecycle events of a query. Implementations
// must never fail the query: errors are logged and swallowed.
type Observability interface {
	// CreateTrace opens a trace for one query and returns its ID.
	CreateTrace(ctx context.Context, name, userID, sessionID string, metadata map[string]interface{}) domain.TraceID

	// LogLLMGeneration records a model call under the trace.
	LogLLMGeneration(ctx context.Context, traceID domain.TraceID, model string, input, output interface{}, startTime, endTime time.Time, metadata map[string]interface{})

	// LogToolExecution records a tool run under the trace.
	LogToolExecution(ctx context.Context, traceID domain.TraceID, toolName string, input, output interface{}, startTime, endTime time.Time, success bool)

	// LogSpan records a generic named span under the trace.
	LogSpan(ctx context.Context, traceID domain.TraceID, name string, input, output interface{}, startTime, endTime time.Time, metadata map[string]interface{})

	// CompleteTrace closes the trace with its final output.
	CompleteTrace(ctx context.Context, traceID domain.TraceID, output interface{}, success bool)

	// TraceURL returns a link to the trace in the backend's UI, or "".
	TraceURL(traceID domain.TraceID) string

	// Flush blocks until buffered events are exported, bounded by ctx.
	Flush(ctx context.Context)
}

// TraceStore persists completed traces for the local observability backend.
type TraceStore interface {
	SaveTrace(ctx context.Context, trace domain.Trace) error
	GetTrace(ctx context.Context, id domain.TraceID) (domain.Trace, error)
	ListTraces(ctx context.Context, limit int) ([]domain.TraceSummary, error)
}

// AgentOrchestrator is the inbound port the HTTP layer drives.
type AgentOrchestrator interface {
	// ProcessQuery runs the reasoning loop to completion.
	ProcessQuery(ctx context.Context, query, userID, sessionID string) (domain.QueryResult, error)

	// ProcessQueryStream runs the loop emitting events as they happen.
	// The channel is closed after the terminal event.
	ProcessQueryStream(ctx context.Context, query, userID, sessionID string) (<-chan domain.StreamEvent, error)
}
