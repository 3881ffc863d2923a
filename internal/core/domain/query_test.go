package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAgentState_SeedsHistory(t *testing.T) {
	state := NewAgentState("you are helpful", "what is AMZN at?")

	require.Len(t, state.Messages, 2)
	assert.Equal(t, RoleSystem, state.Messages[0].Role)
	assert.Equal(t, RoleUser, state.Messages[1].Role)
	assert.Equal(t, "what is AMZN at?", state.Messages[1].Content)
	assert.Empty(t, state.ReasoningSteps)
	assert.Empty(t, state.FinalAnswer)
}

func TestAgentState_RecordStep(t *testing.T) {
	state := NewAgentState("sys", "q")
	ts := time.Now()
	state.RecordStep("retrieve_realtime_stock_price", map[string]interface{}{"symbol": "AMZN"}, ts)

	require.Len(t, state.ReasoningSteps, 1)
	assert.Equal(t, "retrieve_realtime_stock_price", state.ReasoningSteps[0].Action)
	assert.Equal(t, ts, state.ReasoningSteps[0].Timestamp)
}

func TestNewAgentStep_Validation(t *testing.T) {
	_, err := NewAgentStep(0, "act", nil, "", time.Now())
	assert.Error(t, err)

	_, err = NewAgentStep(1, "", nil, "", time.Now())
	assert.Error(t, err)

	step, err := NewAgentStep(1, "act", nil, "obs", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, step.StepNumber)
	assert.NotNil(t, step.ActionInput)
}

func TestNewQueryResult_Validation(t *testing.T) {
	now := time.Now()

	_, err := NewQueryResult("", "answer", nil, nil, 1, now)
	assert.Error(t, err)

	_, err = NewQueryResult("q", "", nil, nil, 1, now)
	assert.Error(t, err)

	_, err = NewQueryResult("q", "a", nil, nil, -1, now)
	assert.Error(t, err)

	result, err := NewQueryResult("q", "a", nil, nil, 12.5, now)
	require.NoError(t, err)
	assert.NotNil(t, result.ReasoningSteps)
	assert.NotNil(t, result.Sources)
	assert.Equal(t, 12.5, result.ExecutionTimeMs)
}

func TestNewStreamEvent_DataNeverNil(t *testing.T) {
	ev := NewStreamEvent(StreamEventAgentStep, nil)
	assert.Equal(t, StreamEventAgentStep, ev.EventType)
	assert.NotNil(t, ev.Data)
	assert.False(t, ev.Timestamp.IsZero())
}
