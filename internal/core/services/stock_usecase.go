package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/marketmind/marketmind/internal/core/domain"
	"github.com/marketmind/marketmind/internal/core/ports"
)

var validPeriods = map[string]bool{"1d": true, "1wk": true, "1mo": true}

// StockService validates and normalizes stock queries before delegating to
// the market data repository. Symbols are trimmed and uppercased so "amzn "
// and "AMZN" hit the same quote.
type StockService struct {
	repo   ports.StockRepository
	logger *slog.Logger
}

func NewStockService(repo ports.StockRepository, logger *slog.Logger) *StockService {
	return &StockService{repo: repo, logger: logger}
}

// GetRealtimePrice returns the latest quote for a ticker symbol.
func (s *StockService) GetRealtimePrice(ctx context.Context, symbol string) (domain.StockPrice, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if normalized == "" {
		return domain.StockPrice{}, domain.ErrInvalidSymbol
	}

	price, err := s.repo.GetRealtimePrice(ctx, normalized)
	if err != nil {
		return domain.StockPrice{}, &domain.RetrievalError{Op: "realtime price", Target: normalized, Err: err}
	}

	s.logger.Debug("realtime price retrieved", "symbol", normalized, "price", price.Price)
	return price, nil
}

// GetHistoricalPrices returns closing prices for symbol between start and
// end, sampled at period (1d, 1wk, 1mo).
func (s *StockService) GetHistoricalPrices(ctx context.Context, symbol string, start, end time.Time, period string) (domain.HistoricalPrices, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if normalized == "" {
		return domain.HistoricalPrices{}, domain.ErrInvalidSymbol
	}
	if !start.Before(end) {
		return domain.HistoricalPrices{}, domain.ErrInvalidDateRange
	}
	if !validPeriods[period] {
		return domain.HistoricalPrices{}, domain.ErrInvalidPeriod
	}

	prices, err := s.repo.GetHistoricalPrices(ctx, normalized, start, end, period)
	if err != nil {
		return domain.HistoricalPrices{}, &domain.RetrievalError{Op: "historical prices", Target: normalized, Err: err}
	}

	s.logger.Debug("historical prices retrieved",
		"symbol", normalized,
		"period", period,
		"points", len(prices.Prices))
	return prices, nil
}
