package duckdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketmind/marketmind/internal/core/domain"
)

func TestTraceStore_SaveGetList(t *testing.T) {
	store, err := NewTraceStore(t.TempDir() + "/traces.db")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	end := now.Add(2 * time.Second)

	traceID := domain.TraceID("trace-1")
	rootID := domain.SpanID("span-root")
	trace := domain.Trace{
		ID:         traceID,
		RootSpanID: rootID,
		Name:       "query: AMZN stock price",
		Status:     domain.SpanStatusOK,
		UserID:     "user-1",
		SessionID:  "sess-1",
		StartTime:  now,
		EndTime:    &end,
		DurationMs: 2000,
		SpanCount:  2,
		Spans: []domain.Span{
			{
				ID:        rootID,
				TraceID:   traceID,
				Name:      "query: AMZN stock price",
				Kind:      domain.SpanKindAgent,
				Status:    domain.SpanStatusOK,
				Output:    "final answer",
				StartTime: now,
				EndTime:   &end,
			},
			{
				ID:        domain.SpanID("span-tool"),
				ParentID:  rootID,
				TraceID:   traceID,
				Name:      "tool.retrieve_realtime_stock_price",
				Kind:      domain.SpanKindTool,
				Status:    domain.SpanStatusOK,
				Input:     `{"symbol":"AMZN"}`,
				Output:    "Stock: AMZN",
				StartTime: now,
				EndTime:   &end,
			},
		},
	}

	require.NoError(t, store.SaveTrace(ctx, trace))

	fetched, err := store.GetTrace(ctx, traceID)
	require.NoError(t, err)
	assert.Equal(t, traceID, fetched.ID)
	assert.Equal(t, domain.SpanStatusOK, fetched.Status)
	assert.Equal(t, "user-1", fetched.UserID)
	assert.Equal(t, rootID, fetched.RootSpanID)
	require.Len(t, fetched.Spans, 2)

	var tool *domain.Span
	for i := range fetched.Spans {
		if fetched.Spans[i].Kind == domain.SpanKindTool {
			tool = &fetched.Spans[i]
		}
	}
	require.NotNil(t, tool)
	assert.Equal(t, rootID, tool.ParentID)
	assert.Equal(t, `{"symbol":"AMZN"}`, tool.Input)

	// Saving again upserts instead of failing on the primary keys.
	trace.Status = domain.SpanStatusError
	require.NoError(t, store.SaveTrace(ctx, trace))

	fetched, err = store.GetTrace(ctx, traceID)
	require.NoError(t, err)
	assert.Equal(t, domain.SpanStatusError, fetched.Status)

	summaries, err := store.ListTraces(ctx, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, traceID, summaries[0].ID)
	assert.Equal(t, 2, summaries[0].SpanCount)
}

func TestTraceStore_GetMissing(t *testing.T) {
	store, err := NewTraceStore(t.TempDir() + "/empty.db")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.GetTrace(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trace not found")
}
