package kernel

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/marketmind/marketmind/internal/core/domain"
	"github.com/marketmind/marketmind/internal/core/ports"
	"github.com/getkin/kin-openapi/routers"
)

const apiVersion = "1.0.0"

// TraceReader exposes the local observability buffer to the tracing API.
// Only the local backend implements it; with any other backend the trace
// endpoints are not mounted.
type TraceReader interface {
	ListTraces(limit int) []domain.TraceSummary
	GetTrace(traceID domain.TraceID) (domain.Trace, error)
}

type Server struct {
	logger       *slog.Logger
	orchestrator ports.AgentOrchestrator
	auth         ports.Authenticator
	traces       TraceReader
	contract     routers.Router
	authDisabled bool
}

// NewServer wires the HTTP layer. traces may be nil; auth may be nil only
// when authDisabled is set.
func NewServer(logger *slog.Logger, orchestrator ports.AgentOrchestrator, auth ports.Authenticator, traces TraceReader, authDisabled bool) (*Server, error) {
	contract, err := loadContract()
	if err != nil {
		return nil, err
	}
	return &Server{
		logger:       logger,
		orchestrator: orchestrator,
		auth:         auth,
		traces:       traces,
		contract:     contract,
		authDisabled: authDisabled,
	}, nil
}

// Handler returns the root http.Handler: contract validation in front of the
// mux, auth on the agent endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /agent/query", s.requireAuth(s.handleQuery))
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	if s.traces != nil {
		mux.HandleFunc("GET /v1/traces", s.handleListTraces)
		mux.HandleFunc("GET /v1/traces/{id}", s.handleGetTrace)
	}

	return s.validateRequests(mux)
}

// handleQuery runs one agent query, streamed as SSE unless the request asks
// for a blocking answer. POST /agent/query
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation Error", err.Error())
		return
	}

	userID := userIDFrom(r.Context())
	sessionID := uuid.New().String()

	// Streaming is the documented default.
	if req.Stream == nil || *req.Stream {
		events, err := s.orchestrator.ProcessQueryStream(r.Context(), req.Query, userID, sessionID)
		if err != nil {
			s.writeQueryError(w, err)
			return
		}
		s.streamEvents(w, r, events)
		return
	}

	result, err := s.orchestrator.ProcessQuery(r.Context(), req.Query, userID, sessionID)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQueryResponse(result))
}

func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrEmptyQuery) {
		writeError(w, http.StatusBadRequest, "Validation Error", err.Error())
		return
	}
	s.logger.Error("query processing failed", "error", err)
	writeError(w, http.StatusInternalServerError, "Internal Server Error", err.Error())
}

// handleLogin exchanges credentials for Cognito tokens. POST /auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeError(w, http.StatusServiceUnavailable, "Service Unavailable", "authentication is not configured")
		return
	}

	var req AuthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation Error", err.Error())
		return
	}

	tokens, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.logger.Warn("login failed", "username", req.Username, "error", err)
		writeError(w, http.StatusUnauthorized, "Authentication Failed", "invalid credentials")
		return
	}

	expiresIn := tokens.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}
	writeJSON(w, http.StatusOK, AuthResponse{
		AccessToken:  tokens.AccessToken,
		IDToken:      tokens.IDToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	})
}

// handleHealth reports liveness. GET /health
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   apiVersion,
	})
}

// handleRoot describes the API. GET /
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":        "MarketMind API",
		"version":     apiVersion,
		"description": "AI agent for stock prices and financial document queries",
		"health":      "/health",
	})
}

// handleListTraces returns recent traces. GET /v1/traces?limit=50
func (s *Server) handleListTraces(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Validation Error", "limit must be a positive integer")
			return
		}
		limit = min(n, 500)
	}

	traces := s.traces.ListTraces(limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"traces": traces,
		"count":  len(traces),
	})
}

// handleGetTrace returns a single trace with all spans. GET /v1/traces/{id}
func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	trace, err := s.traces.GetTrace(domain.TraceID(id))
	if err != nil {
		writeError(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, trace)
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}
