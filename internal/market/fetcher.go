// Package market provides live quotes and recent price history as evidence.
package market

import (
	"context"

	"FinSight/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	FetchQuote(ctx context.Context, symbol string) (model.Quote, error)
	FetchHistory(ctx context.Context, symbol, rng string) ([]model.PricePoint, error)
	Name() string
}

// rangeIntervals maps a history range to its bar interval.
var rangeIntervals = map[string]string{
	"1d":  "5m",
	"5d":  "15m",
	"1mo": "1h",
	"3mo": "1d",
	"1y":  "1d",
}

// NormalizeRange returns rng if supported, otherwise "1d".
func NormalizeRange(rng string) string {
	if _, ok := rangeIntervals[rng]; ok {
		return rng
	}
	return "1d"
}

// IntervalFor returns the bar interval used for rng.
func IntervalFor(rng string) string {
	return rangeIntervals[NormalizeRange(rng)]
}
