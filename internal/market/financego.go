package market

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"

	"FinSight/internal/model"
)

// rangeSpan is the lookback used when a range is turned into start/end times.
var rangeSpan = map[string]time.Duration{
	"1d":  24 * time.Hour,
	"5d":  5 * 24 * time.Hour,
	"1mo": 30 * 24 * time.Hour,
	"3mo": 90 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
}

// FinanceGoFetcher implements Fetcher with the finance-go SDK. The SDK is
// blocking, so calls run in a goroutine and are abandoned on cancellation.
type FinanceGoFetcher struct {
	now func() time.Time
}

// NewFinanceGoFetcher points the SDK's Yahoo backend at an HTTP client with
// the given timeout and optional proxy. The SDK keeps one process-wide
// backend, so the last fetcher created wins.
func NewFinanceGoFetcher(proxyURL string, timeout time.Duration) *FinanceGoFetcher {
	client := resty.New().SetTimeout(timeout)
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	finance.SetBackend(finance.YFinBackend, finance.NewBackends(client.GetClient()).YFin)
	return &FinanceGoFetcher{now: time.Now}
}

func (f *FinanceGoFetcher) Name() string { return "financego" }

func (f *FinanceGoFetcher) FetchQuote(ctx context.Context, symbol string) (model.Quote, error) {
	return await(ctx, func() (model.Quote, error) {
		q, err := quote.Get(symbol)
		if err != nil {
			return model.Quote{}, fmt.Errorf("finance-go quote %s: %w", symbol, err)
		}
		if q == nil {
			return model.Quote{}, fmt.Errorf("finance-go: no quote for %s", symbol)
		}
		return newQuote(quoteFields{
			symbol: symbol,
			name:   q.ShortName,
			price:  q.RegularMarketPrice,
			prev:   q.RegularMarketPreviousClose,
			high:   q.RegularMarketDayHigh,
			low:    q.RegularMarketDayLow,
			asOf:   int64(q.RegularMarketTime),
			source: f.Name(),
		}), nil
	})
}

func (f *FinanceGoFetcher) FetchHistory(ctx context.Context, symbol, rng string) ([]model.PricePoint, error) {
	rng = NormalizeRange(rng)
	end := f.now()
	start := end.Add(-rangeSpan[rng])

	return await(ctx, func() ([]model.PricePoint, error) {
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.Interval(IntervalFor(rng)),
		}
		iter := chart.Get(params)

		var points []model.PricePoint
		for iter.Next() {
			bar := iter.Bar()
			points = append(points, model.PricePoint{
				Time:  time.Unix(int64(bar.Timestamp), 0).UTC(),
				Close: bar.Close,
			})
		}
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("finance-go history %s: %w", symbol, err)
		}
		if len(points) == 0 {
			return nil, fmt.Errorf("finance-go: no history for %s", symbol)
		}
		return points, nil
	})
}

// await runs fn in a goroutine and returns early if ctx ends first.
func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
