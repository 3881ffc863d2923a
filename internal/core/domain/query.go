package domain

import (
	"fmt"
	"time"
)

// ReasoningStep is the raw record appended whenever the model requests a tool
// call. Step numbers are assigned later, at finalize time.
type ReasoningStep struct {
	Action      string                 `json:"action"`
	ActionInput map[string]interface{} `json:"action_input"`
	Timestamp   time.Time              `json:"timestamp"`
}

// AgentState threads through one query's reasoning loop. It is owned
// exclusively by that execution and discarded afterwards — no cross-query
// state survives.
type AgentState struct {
	Messages       []Message
	ReasoningSteps []ReasoningStep
	FinalAnswer    string
}

// NewAgentState seeds the state with the system prompt and the user query,
// so Messages is never empty.
func NewAgentState(systemPrompt, query string) *AgentState {
	return &AgentState{
		Messages: []Message{
			NewSystemMessage(systemPrompt),
			NewUserMessage(query),
		},
	}
}

// Append adds a message to the history.
func (s *AgentState) Append(msg Message) {
	s.Messages = append(s.Messages, msg)
}

// RecordStep logs one requested tool call as a reasoning step.
func (s *AgentState) RecordStep(action string, input map[string]interface{}, ts time.Time) {
	s.ReasoningSteps = append(s.ReasoningSteps, ReasoningStep{
		Action:      action,
		ActionInput: input,
		Timestamp:   ts,
	})
}

// LastMessage returns the most recent message in the history.
func (s *AgentState) LastMessage() Message {
	return s.Messages[len(s.Messages)-1]
}

// AgentStep is one finalized entry of a QueryResult's reasoning trace.
type AgentStep struct {
	StepNumber  int                    `json:"step_number"`
	Action      string                 `json:"action"`
	ActionInput map[string]interface{} `json:"action_input"`
	Observation string                 `json:"observation"`
	Timestamp   time.Time              `json:"timestamp"`
}

// NewAgentStep validates and builds a reasoning step.
func NewAgentStep(number int, action string, input map[string]interface{}, observation string, ts time.Time) (AgentStep, error) {
	if number < 1 {
		return AgentStep{}, fmt.Errorf("step number must be positive, got %d", number)
	}
	if action == "" {
		return AgentStep{}, fmt.Errorf("step action cannot be empty")
	}
	if input == nil {
		input = map[string]interface{}{}
	}
	return AgentStep{
		StepNumber:  number,
		Action:      action,
		ActionInput: input,
		Observation: observation,
		Timestamp:   ts,
	}, nil
}

// QueryResult is the immutable outcome of a blocking agent query.
type QueryResult struct {
	Query           string                 `json:"query"`
	Answer          string                 `json:"answer"`
	ReasoningSteps  []AgentStep            `json:"reasoning_steps"`
	Sources         []string               `json:"sources"`
	ExecutionTimeMs float64                `json:"execution_time_ms"`
	Timestamp       time.Time              `json:"timestamp"`
	TraceID         string                 `json:"trace_id,omitempty"`
	TraceURL        string                 `json:"trace_url,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// NewQueryResult validates and builds a query result.
func NewQueryResult(query, answer string, steps []AgentStep, sources []string, execMs float64, ts time.Time) (*QueryResult, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if answer == "" {
		return nil, fmt.Errorf("answer cannot be empty")
	}
	if execMs < 0 {
		return nil, fmt.Errorf("execution time cannot be negative")
	}
	if steps == nil {
		steps = []AgentStep{}
	}
	if sources == nil {
		sources = []string{}
	}
	return &QueryResult{
		Query:           query,
		Answer:          answer,
		ReasoningSteps:  steps,
		Sources:         sources,
		ExecutionTimeMs: execMs,
		Timestamp:       ts,
	}, nil
}

// StreamEvent event types emitted during incremental query execution.
const (
	StreamEventAgentStep     = "agent_step"
	StreamEventToolCall      = "tool_call"
	StreamEventToolExecution = "tool_execution"
	StreamEventFinalAnswer   = "final_answer"
	StreamEventError         = "error"
)

// StreamEvent is one progress tick of a streamed query execution.
type StreamEvent struct {
	EventType string                 `json:"event_type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewStreamEvent builds a stream event; Data is never nil.
func NewStreamEvent(eventType string, data map[string]interface{}) StreamEvent {
	if data == nil {
		data = map[string]interface{}{}
	}
	return StreamEvent{
		EventType: eventType,
		Data:      data,
		Timestamp: time.Now(),
	}
}
