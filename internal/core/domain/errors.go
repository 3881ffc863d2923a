package domain

import (
	"errors"
	"fmt"
)

// Bad-input errors: the caller supplied something unusable. These reject
// before any remote call is made.
var (
	ErrEmptyQuery       = errors.New("query cannot be empty")
	ErrInvalidSymbol    = errors.New("stock symbol must be a non-empty ticker")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidPeriod    = errors.New("period must be one of: 1d, 1wk, 1mo")
	ErrInvalidToken     = errors.New("invalid authentication token")
)

// RetrievalError signals that a remote provider failed or returned no usable
// data, as opposed to the input being bad.
type RetrievalError struct {
	Op     string // e.g. "realtime price", "historical prices", "document search"
	Target string // symbol or query the operation was for
	Err    error
}

func (e *RetrievalError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s retrieval failed for %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("%s retrieval failed: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// ProcessingError wraps any fault that escapes the reasoning loop in
// blocking mode. The original cause is preserved for the transport layer.
type ProcessingError struct {
	Query string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("failed to process query: %v", e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }
