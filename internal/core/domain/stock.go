package domain

import (
	"fmt"
	"time"
)

// StockPrice is a quote for a symbol at a point in time. Optional fields are
// pointers: the upstream provider frequently omits them outside market hours.
type StockPrice struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Currency  string    `json:"currency"`
	Volume    *int64    `json:"volume,omitempty"`
	MarketCap *float64  `json:"market_cap,omitempty"`
	DayHigh   *float64  `json:"day_high,omitempty"`
	DayLow    *float64  `json:"day_low,omitempty"`
	OpenPrice *float64  `json:"open_price,omitempty"`
	PrevClose *float64  `json:"prev_close,omitempty"`
}

// Validate checks the quote invariants.
func (p StockPrice) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("stock symbol cannot be empty")
	}
	if p.Price < 0 {
		return fmt.Errorf("stock price cannot be negative")
	}
	if p.Volume != nil && *p.Volume < 0 {
		return fmt.Errorf("volume cannot be negative")
	}
	return nil
}

// HistoricalPrices is a price series for a symbol over a date range.
type HistoricalPrices struct {
	Symbol    string       `json:"symbol"`
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
	Period    string       `json:"period"` // "1d", "1wk", "1mo"
	Prices    []StockPrice `json:"prices"`
}

// NewHistoricalPrices validates and builds a series.
func NewHistoricalPrices(symbol string, start, end time.Time, period string, prices []StockPrice) (HistoricalPrices, error) {
	if symbol == "" {
		return HistoricalPrices{}, fmt.Errorf("stock symbol cannot be empty")
	}
	if start.After(end) {
		return HistoricalPrices{}, fmt.Errorf("start date must be before end date")
	}
	if len(prices) == 0 {
		return HistoricalPrices{}, fmt.Errorf("historical prices cannot be empty")
	}
	return HistoricalPrices{
		Symbol:    symbol,
		StartDate: start,
		EndDate:   end,
		Period:    period,
		Prices:    prices,
	}, nil
}

// AveragePrice is the mean closing price over the series.
func (h HistoricalPrices) AveragePrice() float64 {
	if len(h.Prices) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range h.Prices {
		sum += p.Price
	}
	return sum / float64(len(h.Prices))
}

// HighestPrice is the maximum closing price in the series.
func (h HistoricalPrices) HighestPrice() float64 {
	max := 0.0
	for _, p := range h.Prices {
		if p.Price > max {
			max = p.Price
		}
	}
	return max
}

// LowestPrice is the minimum closing price in the series.
func (h HistoricalPrices) LowestPrice() float64 {
	if len(h.Prices) == 0 {
		return 0
	}
	min := h.Prices[0].Price
	for _, p := range h.Prices[1:] {
		if p.Price < min {
			min = p.Price
		}
	}
	return min
}
