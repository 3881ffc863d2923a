package kernel

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/marketmind/marketmind/internal/core/domain"
)

// QueryRequest is the body of POST /agent/query. Stream is a pointer so an
// absent field keeps the documented default (true) instead of Go's zero value.
type QueryRequest struct {
	Query  string `json:"query"`
	Stream *bool  `json:"stream,omitempty"`
}

// AuthRequest is the body of POST /auth/login.
type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AgentStepResponse mirrors domain.AgentStep on the wire.
type AgentStepResponse struct {
	StepNumber  int                    `json:"step_number"`
	Action      string                 `json:"action"`
	ActionInput map[string]interface{} `json:"action_input"`
	Observation string                 `json:"observation"`
	Timestamp   time.Time              `json:"timestamp"`
}

// QueryResponse is the non-streaming answer payload.
type QueryResponse struct {
	Query           string              `json:"query"`
	Answer          string              `json:"answer"`
	ReasoningSteps  []AgentStepResponse `json:"reasoning_steps"`
	Sources         []string            `json:"sources"`
	ExecutionTimeMs float64             `json:"execution_time_ms"`
	Timestamp       time.Time           `json:"timestamp"`
	TraceID         string              `json:"trace_id,omitempty"`
	TraceURL        string              `json:"trace_url,omitempty"`
}

// AuthResponse carries the Cognito token set.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int32  `json:"expires_in"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// ErrorResponse is the uniform error body across all endpoints.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func toQueryResponse(result domain.QueryResult) QueryResponse {
	steps := make([]AgentStepResponse, 0, len(result.ReasoningSteps))
	for _, step := range result.ReasoningSteps {
		steps = append(steps, AgentStepResponse{
			StepNumber:  step.StepNumber,
			Action:      step.Action,
			ActionInput: step.ActionInput,
			Observation: step.Observation,
			Timestamp:   step.Timestamp,
		})
	}
	sources := result.Sources
	if sources == nil {
		sources = []string{}
	}
	return QueryResponse{
		Query:           result.Query,
		Answer:          result.Answer,
		ReasoningSteps:  steps,
		Sources:         sources,
		ExecutionTimeMs: result.ExecutionTimeMs,
		Timestamp:       result.Timestamp,
		TraceID:         result.TraceID,
		TraceURL:        result.TraceURL,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	writeJSON(w, status, ErrorResponse{
		Error:     message,
		Detail:    detail,
		Timestamp: time.Now(),
	})
}
