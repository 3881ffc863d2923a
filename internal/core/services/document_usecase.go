package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/marketmind/marketmind/internal/core/domain"
	"github.com/marketmind/marketmind/internal/core/ports"
)

const (
	defaultMaxResults = 5
	maxMaxResults     = 20
	defaultMinScore   = 0.0
)

// DocumentService validates document search requests and delegates to the
// knowledge base repository.
type DocumentService struct {
	repo   ports.DocumentRepository
	logger *slog.Logger
}

func NewDocumentService(repo ports.DocumentRepository, logger *slog.Logger) *DocumentService {
	return &DocumentService{repo: repo, logger: logger}
}

// Search runs a semantic retrieval over the financial document corpus.
// maxResults is clamped to [1, 20]; zero or negative falls back to 5.
func (s *DocumentService) Search(ctx context.Context, query string, maxResults int) ([]domain.DocumentChunk, error) {
	normalized := strings.TrimSpace(query)
	if normalized == "" {
		return nil, domain.ErrEmptyQuery
	}

	if maxResults < 1 {
		maxResults = defaultMaxResults
	}
	if maxResults > maxMaxResults {
		maxResults = maxMaxResults
	}

	chunks, err := s.repo.Search(ctx, normalized, maxResults, defaultMinScore)
	if err != nil {
		return nil, &domain.RetrievalError{Op: "document search", Target: normalized, Err: err}
	}

	s.logger.Debug("document search completed", "query", normalized, "results", len(chunks))
	return chunks, nil
}
