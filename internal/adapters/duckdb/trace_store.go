package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/marketmind/marketmind/internal/core/domain"
	"github.com/marketmind/marketmind/internal/core/ports"
)

// TraceStore persists completed query traces to an embedded DuckDB file.
type TraceStore struct {
	db *sql.DB
}

// NewTraceStore opens (or creates) the database at path and ensures the
// schema exists. An empty path uses an in-memory database.
func NewTraceStore(path string) (*TraceStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}

	store := &TraceStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *TraceStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS traces (
			id           VARCHAR PRIMARY KEY,
			name         VARCHAR NOT NULL,
			status       VARCHAR NOT NULL,
			user_id      VARCHAR,
			session_id   VARCHAR,
			root_span_id VARCHAR,
			start_time   TIMESTAMP NOT NULL,
			end_time     TIMESTAMP,
			duration_ms  BIGINT,
			span_count   INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS spans (
			id          VARCHAR PRIMARY KEY,
			trace_id    VARCHAR NOT NULL,
			parent_id   VARCHAR,
			name        VARCHAR NOT NULL,
			kind        VARCHAR NOT NULL,
			status      VARCHAR NOT NULL,
			input       VARCHAR,
			output      VARCHAR,
			error       VARCHAR,
			model       VARCHAR,
			start_time  TIMESTAMP NOT NULL,
			end_time    TIMESTAMP,
			duration_ms BIGINT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrating trace schema: %w", err)
		}
	}
	return nil
}

// SaveTrace upserts a trace and all its spans in one transaction.
func (s *TraceStore) SaveTrace(ctx context.Context, trace domain.Trace) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO traces (id, name, status, user_id, session_id, root_span_id,
		                    start_time, end_time, duration_ms, span_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status      = excluded.status,
			end_time    = excluded.end_time,
			duration_ms = excluded.duration_ms,
			span_count  = excluded.span_count`,
		string(trace.ID),
		trace.Name,
		string(trace.Status),
		trace.UserID,
		trace.SessionID,
		string(trace.RootSpanID),
		trace.StartTime,
		trace.EndTime,
		trace.DurationMs,
		trace.SpanCount,
	)
	if err != nil {
		return fmt.Errorf("upsert trace: %w", err)
	}

	for _, span := range trace.Spans {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO spans (id, trace_id, parent_id, name, kind, status,
			                   input, output, error, model, start_time, end_time, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				status      = excluded.status,
				output      = excluded.output,
				error       = excluded.error,
				end_time    = excluded.end_time,
				duration_ms = excluded.duration_ms`,
			string(span.ID),
			string(span.TraceID),
			string(span.ParentID),
			span.Name,
			string(span.Kind),
			string(span.Status),
			span.Input,
			span.Output,
			span.Error,
			span.Model,
			span.StartTime,
			span.EndTime,
			span.DurationMs,
		)
		if err != nil {
			return fmt.Errorf("upsert span %s: %w", span.ID, err)
		}
	}

	return tx.Commit()
}

// ListTraces returns summaries of the most recent traces, newest first.
func (s *TraceStore) ListTraces(ctx context.Context, limit int) ([]domain.TraceSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, status, user_id, start_time, duration_ms, span_count
		FROM traces
		ORDER BY start_time DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list traces: %w", err)
	}
	defer rows.Close()

	out := []domain.TraceSummary{}
	for rows.Next() {
		var summary domain.TraceSummary
		var status string
		var userID sql.NullString
		if err := rows.Scan(&summary.ID, &summary.Name, &status, &userID,
			&summary.StartTime, &summary.DurationMs, &summary.SpanCount); err != nil {
			return nil, err
		}
		summary.Status = domain.SpanStatus(status)
		summary.UserID = userID.String
		out = append(out, summary)
	}
	return out, rows.Err()
}

// GetTrace returns a full trace with all its spans.
func (s *TraceStore) GetTrace(ctx context.Context, id domain.TraceID) (domain.Trace, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, status, user_id, session_id, root_span_id,
		       start_time, end_time, duration_ms, span_count
		FROM traces WHERE id = ?`, string(id))

	var trace domain.Trace
	var status, rootSpanID string
	var userID, sessionID sql.NullString
	var endTime sql.NullTime
	err := row.Scan(&trace.ID, &trace.Name, &status, &userID, &sessionID, &rootSpanID,
		&trace.StartTime, &endTime, &trace.DurationMs, &trace.SpanCount)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Trace{}, fmt.Errorf("trace not found: %s", id)
	}
	if err != nil {
		return domain.Trace{}, fmt.Errorf("get trace: %w", err)
	}
	trace.Status = domain.SpanStatus(status)
	trace.UserID = userID.String
	trace.SessionID = sessionID.String
	trace.RootSpanID = domain.SpanID(rootSpanID)
	if endTime.Valid {
		t := endTime.Time
		trace.EndTime = &t
	}

	spans, err := s.loadSpans(ctx, id)
	if err != nil {
		return domain.Trace{}, err
	}
	trace.Spans = spans
	return trace, nil
}

func (s *TraceStore) loadSpans(ctx context.Context, traceID domain.TraceID) ([]domain.Span, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trace_id, parent_id, name, kind, status,
		       input, output, error, model, start_time, end_time, duration_ms
		FROM spans WHERE trace_id = ?
		ORDER BY start_time ASC`, string(traceID))
	if err != nil {
		return nil, fmt.Errorf("load spans: %w", err)
	}
	defer rows.Close()

	var out []domain.Span
	for rows.Next() {
		var span domain.Span
		var kind, status string
		var parentID, input, output, spanErr, model sql.NullString
		var endTime sql.NullTime
		if err := rows.Scan(&span.ID, &span.TraceID, &parentID, &span.Name, &kind, &status,
			&input, &output, &spanErr, &model, &span.StartTime, &endTime, &span.DurationMs); err != nil {
			return nil, err
		}
		span.ParentID = domain.SpanID(parentID.String)
		span.Kind = domain.SpanKind(kind)
		span.Status = domain.SpanStatus(status)
		span.Input = input.String
		span.Output = output.String
		span.Error = spanErr.String
		span.Model = model.String
		if endTime.Valid {
			t := endTime.Time
			span.EndTime = &t
		}
		out = append(out, span)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *TraceStore) Close() error {
	return s.db.Close()
}

var _ ports.TraceStore = (*TraceStore)(nil)
