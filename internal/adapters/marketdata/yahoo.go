package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/marketmind/marketmind/internal/core/domain"
	"github.com/marketmind/marketmind/internal/core/ports"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// YahooRepository fetches quotes from the Yahoo Finance public endpoints:
// v7 quote for realtime and v8 chart for historical series.
type YahooRepository struct {
	baseURL string
	client  *http.Client
}

func NewYahooRepository(baseURL string) *YahooRepository {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &YahooRepository{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol                     string   `json:"symbol"`
			Currency                   string   `json:"currency"`
			RegularMarketPrice         *float64 `json:"regularMarketPrice"`
			RegularMarketTime          int64    `json:"regularMarketTime"`
			RegularMarketVolume        *int64   `json:"regularMarketVolume"`
			MarketCap                  *float64 `json:"marketCap"`
			RegularMarketDayHigh       *float64 `json:"regularMarketDayHigh"`
			RegularMarketDayLow        *float64 `json:"regularMarketDayLow"`
			RegularMarketOpen          *float64 `json:"regularMarketOpen"`
			RegularMarketPreviousClose *float64 `json:"regularMarketPreviousClose"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteResponse"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Open   []*float64 `json:"open"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (r *YahooRepository) GetRealtimePrice(ctx context.Context, symbol string) (domain.StockPrice, error) {
	endpoint := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", r.baseURL, url.QueryEscape(symbol))

	var payload quoteResponse
	if err := r.getJSON(ctx, endpoint, &payload); err != nil {
		return domain.StockPrice{}, err
	}
	if payload.QuoteResponse.Error != nil {
		return domain.StockPrice{}, fmt.Errorf("quote request failed: %w", payload.QuoteResponse.Error)
	}
	if len(payload.QuoteResponse.Result) == 0 {
		return domain.StockPrice{}, fmt.Errorf("no quote data for symbol %s", symbol)
	}

	q := payload.QuoteResponse.Result[0]
	if q.RegularMarketPrice == nil {
		return domain.StockPrice{}, fmt.Errorf("no price available for symbol %s", symbol)
	}

	currency := q.Currency
	if currency == "" {
		currency = "USD"
	}
	ts := time.Now()
	if q.RegularMarketTime > 0 {
		ts = time.Unix(q.RegularMarketTime, 0).UTC()
	}

	price := domain.StockPrice{
		Symbol:    symbol,
		Price:     *q.RegularMarketPrice,
		Timestamp: ts,
		Currency:  currency,
		Volume:    q.RegularMarketVolume,
		MarketCap: q.MarketCap,
		DayHigh:   q.RegularMarketDayHigh,
		DayLow:    q.RegularMarketDayLow,
		OpenPrice: q.RegularMarketOpen,
		PrevClose: q.RegularMarketPreviousClose,
	}
	if err := price.Validate(); err != nil {
		return domain.StockPrice{}, fmt.Errorf("invalid quote for %s: %w", symbol, err)
	}
	return price, nil
}

func (r *YahooRepository) GetHistoricalPrices(ctx context.Context, symbol string, start, end time.Time, period string) (domain.HistoricalPrices, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%s&period2=%s&interval=%s",
		r.baseURL,
		url.PathEscape(symbol),
		strconv.FormatInt(start.Unix(), 10),
		strconv.FormatInt(end.Unix(), 10),
		url.QueryEscape(period),
	)

	var payload chartResponse
	if err := r.getJSON(ctx, endpoint, &payload); err != nil {
		return domain.HistoricalPrices{}, err
	}
	if payload.Chart.Error != nil {
		return domain.HistoricalPrices{}, fmt.Errorf("chart request failed: %w", payload.Chart.Error)
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return domain.HistoricalPrices{}, fmt.Errorf("no historical data for %s between %s and %s",
			symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	result := payload.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	currency := result.Meta.Currency
	if currency == "" {
		currency = "USD"
	}

	var prices []domain.StockPrice
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			// Gaps happen on holidays and delisted ranges; skip them.
			continue
		}
		p := domain.StockPrice{
			Symbol:    symbol,
			Price:     *quote.Close[i],
			Timestamp: time.Unix(ts, 0).UTC(),
			Currency:  currency,
		}
		if i < len(quote.High) {
			p.DayHigh = quote.High[i]
		}
		if i < len(quote.Low) {
			p.DayLow = quote.Low[i]
		}
		if i < len(quote.Open) {
			p.OpenPrice = quote.Open[i]
		}
		if i < len(quote.Volume) {
			p.Volume = quote.Volume[i]
		}
		prices = append(prices, p)
	}

	if len(prices) == 0 {
		return domain.HistoricalPrices{}, fmt.Errorf("no historical data for %s between %s and %s",
			symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return domain.NewHistoricalPrices(symbol, start, end, period, prices)
}

func (r *YahooRepository) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	// Yahoo rejects requests without a browser-ish user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; marketmind/1.0)")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("market data request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("market data provider returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding market data response: %w", err)
	}
	return nil
}

var _ ports.StockRepository = (*YahooRepository)(nil)
