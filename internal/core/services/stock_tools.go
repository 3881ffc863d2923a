package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/marketmind/marketmind/internal/core/domain"
)

// NewRealtimeStockPriceTool creates the realtime quote tool. Retrieval
// failures are rendered into the observation so the model can recover.
func NewRealtimeStockPriceTool(stocks *StockService) *domain.Tool {
	return &domain.Tool{
		Name:        "retrieve_realtime_stock_price",
		Description: "Get the current realtime stock price for a given ticker symbol.",
		Parameters: domain.ToolParameters{
			Type: "object",
			Properties: map[string]interface{}{
				"symbol": map[string]interface{}{
					"type":        "string",
					"description": "Stock ticker symbol (e.g., 'AMZN', 'AAPL').",
				},
			},
			Required: []string{"symbol"},
		},
		Execute: func(ctx context.Context, params map[string]interface{}) (string, error) {
			symbol, _ := params["symbol"].(string)

			price, err := stocks.GetRealtimePrice(ctx, symbol)
			if err != nil {
				return fmt.Sprintf("Error retrieving stock price for %s: %v", symbol, err), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Stock: %s\n", price.Symbol)
			fmt.Fprintf(&b, "Current Price: $%.2f %s\n", price.Price, price.Currency)
			fmt.Fprintf(&b, "Timestamp: %s\n", price.Timestamp.Format(time.RFC3339))
			fmt.Fprintf(&b, "Day High: %s\n", formatDollars(price.DayHigh))
			fmt.Fprintf(&b, "Day Low: %s\n", formatDollars(price.DayLow))
			fmt.Fprintf(&b, "Open: %s\n", formatDollars(price.OpenPrice))
			fmt.Fprintf(&b, "Volume: %s\n", formatCount(price.Volume))
			fmt.Fprintf(&b, "Market Cap: %s", formatLargeDollars(price.MarketCap))
			return b.String(), nil
		},
	}
}

// NewHistoricalStockPricesTool creates the historical price tool. Dates are
// YYYY-MM-DD; period defaults to daily.
func NewHistoricalStockPricesTool(stocks *StockService) *domain.Tool {
	return &domain.Tool{
		Name:        "retrieve_historical_stock_price",
		Description: "Get historical stock prices for a given ticker symbol over a date range.",
		Parameters: domain.ToolParameters{
			Type: "object",
			Properties: map[string]interface{}{
				"symbol": map[string]interface{}{
					"type":        "string",
					"description": "Stock ticker symbol (e.g., 'AMZN', 'AAPL').",
				},
				"start_date": map[string]interface{}{
					"type":        "string",
					"description": "Start date in YYYY-MM-DD format.",
				},
				"end_date": map[string]interface{}{
					"type":        "string",
					"description": "End date in YYYY-MM-DD format.",
				},
				"period": map[string]interface{}{
					"type":        "string",
					"description": "Data granularity: '1d' for daily, '1wk' for weekly, '1mo' for monthly.",
					"enum":        []string{"1d", "1wk", "1mo"},
				},
			},
			Required: []string{"symbol", "start_date", "end_date"},
		},
		Execute: func(ctx context.Context, params map[string]interface{}) (string, error) {
			symbol, _ := params["symbol"].(string)
			startRaw, _ := params["start_date"].(string)
			endRaw, _ := params["end_date"].(string)
			period, _ := params["period"].(string)
			if period == "" {
				period = "1d"
			}

			start, err := time.Parse("2006-01-02", startRaw)
			if err != nil {
				return fmt.Sprintf("Error retrieving historical prices for %s: invalid start_date %q, expected YYYY-MM-DD", symbol, startRaw), nil
			}
			end, err := time.Parse("2006-01-02", endRaw)
			if err != nil {
				return fmt.Sprintf("Error retrieving historical prices for %s: invalid end_date %q, expected YYYY-MM-DD", symbol, endRaw), nil
			}

			hist, err := stocks.GetHistoricalPrices(ctx, symbol, start, end, period)
			if err != nil {
				return fmt.Sprintf("Error retrieving historical prices for %s: %v", symbol, err), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Historical Stock Prices for %s\n", hist.Symbol)
			fmt.Fprintf(&b, "Period: %s to %s\n", hist.StartDate.Format("2006-01-02"), hist.EndDate.Format("2006-01-02"))
			fmt.Fprintf(&b, "Granularity: %s\n", hist.Period)
			fmt.Fprintf(&b, "Number of data points: %d\n\n", len(hist.Prices))
			fmt.Fprintf(&b, "Statistics:\n")
			fmt.Fprintf(&b, "- Average Price: $%.2f\n", hist.AveragePrice())
			fmt.Fprintf(&b, "- Highest Price: $%.2f\n", hist.HighestPrice())
			fmt.Fprintf(&b, "- Lowest Price: $%.2f\n\n", hist.LowestPrice())
			fmt.Fprintf(&b, "Recent prices:\n")

			recent := hist.Prices
			if len(recent) > 5 {
				recent = recent[len(recent)-5:]
			}
			for _, p := range recent {
				fmt.Fprintf(&b, "  %s: $%.2f\n", p.Timestamp.Format("2006-01-02"), p.Price)
			}
			return b.String(), nil
		},
	}
}

func formatDollars(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("$%.2f", *v)
}

func formatLargeDollars(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return "$" + groupThousands(strconv.FormatFloat(*v, 'f', 0, 64))
}

func formatCount(v *int64) string {
	if v == nil {
		return "N/A"
	}
	return groupThousands(strconv.FormatInt(*v, 10))
}

// groupThousands inserts commas into a plain integer string.
func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
