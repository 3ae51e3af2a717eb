package market

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"FinSight/internal/model"
)

// RESTFetcher implements Fetcher against a bearer-token quote service
// exposing /api/v1/quote and /api/v1/bars.
type RESTFetcher struct {
	client *resty.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration) *RESTFetcher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &RESTFetcher{client: client}
}

func (f *RESTFetcher) Name() string { return "rest" }

type restQuote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Currency      string  `json:"currency"`
	Price         float64 `json:"price"`
	PreviousClose float64 `json:"previous_close"`
	DayHigh       float64 `json:"day_high"`
	DayLow        float64 `json:"day_low"`
	Timestamp     int64   `json:"timestamp"`
}

// restBar is the expected JSON shape of one bar.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Close     float64 `json:"close"`
}

func (f *RESTFetcher) FetchQuote(ctx context.Context, symbol string) (model.Quote, error) {
	var q restQuote
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&q).
		Get("/api/v1/quote")
	if err != nil {
		return model.Quote{}, fmt.Errorf("fetch quote: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return model.Quote{}, fmt.Errorf("fetch quote: status %d", resp.StatusCode())
	}
	if q.Price == 0 {
		return model.Quote{}, fmt.Errorf("fetch quote: no price for %s", symbol)
	}
	return newQuote(quoteFields{
		symbol:   symbol,
		name:     q.Name,
		currency: q.Currency,
		price:    q.Price,
		prev:     q.PreviousClose,
		high:     q.DayHigh,
		low:      q.DayLow,
		asOf:     q.Timestamp,
		source:   f.Name(),
	}), nil
}

func (f *RESTFetcher) FetchHistory(ctx context.Context, symbol, rng string) ([]model.PricePoint, error) {
	rng = NormalizeRange(rng)
	var bars []restBar
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"interval": IntervalFor(rng),
			"range":    rng,
		}).
		SetResult(&bars).
		Get("/api/v1/bars")
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode(), resp.String())
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("fetch bars: no history for %s", symbol)
	}

	points := make([]model.PricePoint, len(bars))
	for i, b := range bars {
		points[i] = model.PricePoint{Time: time.Unix(b.Timestamp, 0).UTC(), Close: decimal.NewFromFloat(b.Close)}
	}
	// Ensure chronological order
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, nil
}

