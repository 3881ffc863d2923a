package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/marketmind/marketmind/internal/core/domain"
	"github.com/marketmind/marketmind/internal/core/ports"
)

const systemPrompt = `You are a helpful financial AI agent specialized in stock market analysis and Amazon's financial information.

You have access to the following tools:
1. retrieve_realtime_stock_price: Get current stock price for any ticker symbol
2. retrieve_historical_stock_price: Get historical price data over a date range
3. search_financial_documents: Search Amazon's financial documents (annual reports, quarterly earnings)

When answering questions:
- Use tools to gather factual, up-to-date information
- Provide clear, concise answers based on the retrieved data
- When comparing data, use the appropriate tools to get both pieces of information
- If you need historical data, remember that Q4 spans October-December
- Always cite your sources when using information from financial documents

Think step by step and use the tools methodically to answer user queries accurately.`

// degradedAnswer is returned when the iteration cap is hit before the model
// stops requesting tools.
const degradedAnswer = "I was unable to complete the analysis within the allowed number of reasoning steps. Here is what I gathered so far; please narrow the question and try again."

// DefaultMaxIterations caps the AGENT/TOOLS cycle per query.
const DefaultMaxIterations = 10

// AgentOrchestrator runs the reasoning loop: ask the model what to do next,
// execute the tools it asked for, repeat until it answers without tool calls.
type AgentOrchestrator struct {
	model         ports.ChatModel
	registry      *domain.ToolRegistry
	observability ports.Observability
	maxIterations int
	logger        *slog.Logger
}

// NewAgentOrchestrator wires the loop. A nil observability sink disables
// tracing without changing loop behavior; maxIterations <= 0 falls back to
// DefaultMaxIterations.
func NewAgentOrchestrator(model ports.ChatModel, registry *domain.ToolRegistry, observability ports.Observability, maxIterations int, logger *slog.Logger) *AgentOrchestrator {
	if observability == nil {
		observability = noopSink{}
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &AgentOrchestrator{
		model:         model,
		registry:      registry,
		observability: observability,
		maxIterations: maxIterations,
		logger:        logger,
	}
}

// ProcessQuery runs the loop to completion and assembles the result.
// Loop-level faults are wrapped in a ProcessingError; tool failures never
// surface here, they are rendered into observations for the model.
func (o *AgentOrchestrator) ProcessQuery(ctx context.Context, query, userID, sessionID string) (domain.QueryResult, error) {
	result, err := o.run(ctx, query, userID, sessionID, nil)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyQuery) {
			return domain.QueryResult{}, err
		}
		return domain.QueryResult{}, &domain.ProcessingError{Query: query, Err: err}
	}
	return *result, nil
}

// ProcessQueryStream runs the loop emitting progress events. Empty queries
// fail synchronously before the stream starts; every other fault becomes a
// single terminal error event on the channel.
func (o *AgentOrchestrator) ProcessQueryStream(ctx context.Context, query, userID, sessionID string) (<-chan domain.StreamEvent, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	events := make(chan domain.StreamEvent, 16)
	go func() {
		defer close(events)

		emit := func(ev domain.StreamEvent) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}

		result, err := o.run(ctx, query, userID, sessionID, emit)
		if err != nil {
			emit(domain.NewStreamEvent(domain.StreamEventError, map[string]interface{}{
				"error": err.Error(),
			}))
			return
		}
		emit(domain.NewStreamEvent(domain.StreamEventFinalAnswer, map[string]interface{}{
			"answer": result.Answer,
		}))
	}()
	return events, nil
}

// run drives the state machine. emit is nil in blocking mode.
func (o *AgentOrchestrator) run(ctx context.Context, query, userID, sessionID string, emit func(domain.StreamEvent)) (*domain.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if emit == nil {
		emit = func(domain.StreamEvent) {}
	}

	o.logger.Info("processing agent query", "query", query, "user_id", userID)
	start := time.Now()

	traceName := "query: " + truncate(query, 80)
	traceID := o.observability.CreateTrace(ctx, traceName, userID, sessionID, map[string]interface{}{
		"tags": []string{"agent_query"},
	})
	defer o.observability.Flush(ctx)

	state := domain.NewAgentState(systemPrompt, query)
	tools := o.registry.List()

	var answer string
	for iteration := 0; ; iteration++ {
		if iteration >= o.maxIterations {
			o.logger.Warn("iteration cap reached, forcing final answer",
				"max_iterations", o.maxIterations, "user_id", userID)
			answer = degradedAnswer
			break
		}

		llmStart := time.Now()
		response, err := o.model.Invoke(ctx, state.Messages, tools)
		llmEnd := time.Now()
		o.observability.LogLLMGeneration(ctx, traceID, o.model.ModelID(), state.Messages, response, llmStart, llmEnd, map[string]interface{}{
			"iteration": iteration,
		})
		if err != nil {
			o.observability.CompleteTrace(ctx, traceID, nil, false)
			return nil, fmt.Errorf("model invocation: %w", err)
		}

		state.Append(response)
		emit(domain.NewStreamEvent(domain.StreamEventAgentStep, map[string]interface{}{
			"node":  "agent",
			"state": "reasoning",
		}))

		if !response.HasToolCalls() {
			answer = response.Content
			break
		}

		now := time.Now()
		for _, call := range response.ToolCalls {
			state.RecordStep(call.Name, call.ArgumentsMap(), now)
			emit(domain.NewStreamEvent(domain.StreamEventToolCall, map[string]interface{}{
				"tool": call.Name,
				"args": call.ArgumentsMap(),
			}))
		}

		results := o.executeTools(ctx, traceID, response.ToolCalls)
		for _, result := range results {
			state.Append(domain.NewToolResultMessage(result))
		}
		emit(domain.NewStreamEvent(domain.StreamEventToolExecution, map[string]interface{}{
			"node": "tools",
		}))
	}

	if answer == "" {
		answer = "I could not produce an answer for this query."
	}

	steps := make([]domain.AgentStep, 0, len(state.ReasoningSteps))
	for i, step := range state.ReasoningSteps {
		agentStep, err := domain.NewAgentStep(i+1, step.Action, step.ActionInput, "", step.Timestamp)
		if err != nil {
			o.observability.CompleteTrace(ctx, traceID, nil, false)
			return nil, fmt.Errorf("finalizing step %d: %w", i+1, err)
		}
		steps = append(steps, agentStep)
	}

	execMs := float64(time.Since(start).Microseconds()) / 1000.0
	result, err := domain.NewQueryResult(query, answer, steps, []string{}, execMs, time.Now())
	if err != nil {
		o.observability.CompleteTrace(ctx, traceID, nil, false)
		return nil, fmt.Errorf("assembling result: %w", err)
	}
	result.TraceID = string(traceID)
	result.TraceURL = o.observability.TraceURL(traceID)

	o.observability.CompleteTrace(ctx, traceID, answer, true)
	o.logger.Info("agent query completed",
		"execution_time_ms", execMs,
		"reasoning_steps", len(steps),
		"user_id", userID)
	return result, nil
}

// executeTools runs every requested call concurrently and returns results in
// request order, so tool-result messages stay paired 1:1 with their calls.
func (o *AgentOrchestrator) executeTools(ctx context.Context, traceID domain.TraceID, calls []domain.ToolCall) []domain.ToolResult {
	results := make([]domain.ToolResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			toolStart := time.Now()
			observation := o.registry.Run(gctx, call)
			toolEnd := time.Now()

			isError := strings.HasPrefix(observation, "Error")
			o.observability.LogToolExecution(gctx, traceID, call.Name, call.ArgumentsMap(), observation, toolStart, toolEnd, !isError)
			results[i] = domain.ToolResult{
				ToolCallID: call.ID,
				Content:    observation,
				IsError:    isError,
			}
			return nil
		})
	}
	// Registry.Run never returns an error; the group only orders completion.
	_ = g.Wait()
	return results
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back up to a rune boundary so multi-byte queries are not split mid-rune.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// noopSink keeps the loop free of nil checks when tracing is disabled.
type noopSink struct{}

func (noopSink) CreateTrace(context.Context, string, string, string, map[string]interface{}) domain.TraceID {
	return ""
}
func (noopSink) LogLLMGeneration(context.Context, domain.TraceID, string, interface{}, interface{}, time.Time, time.Time, map[string]interface{}) {
}
func (noopSink) LogToolExecution(context.Context, domain.TraceID, string, interface{}, interface{}, time.Time, time.Time, bool) {
}
func (noopSink) LogSpan(context.Context, domain.TraceID, string, interface{}, interface{}, time.Time, time.Time, map[string]interface{}) {
}
func (noopSink) CompleteTrace(context.Context, domain.TraceID, interface{}, bool) {}
func (noopSink) TraceURL(domain.TraceID) string                                   { return "" }
func (noopSink) Flush(context.Context)                                            {}
