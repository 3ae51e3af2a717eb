package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"FinSight/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	client    *resty.Client
	BaseURL   string
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string, timeout time.Duration) *YahooFetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "Mozilla/5.0")
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &YahooFetcher{
		client:  client,
		BaseURL: yahooBaseURL,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
			"DOW":    "^DJI",
			"NASDAQ": "^IXIC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

type yahooMeta struct {
	Symbol               string  `json:"symbol"`
	Currency             string  `json:"currency"`
	ShortName            string  `json:"shortName"`
	RegularMarketPrice   float64 `json:"regularMarketPrice"`
	RegularMarketTime    int64   `json:"regularMarketTime"`
	RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
	ChartPreviousClose   float64 `json:"chartPreviousClose"`
	PreviousClose        float64 `json:"previousClose"`
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta       yahooMeta `json:"meta"`
			Timestamp  []int64   `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []interface{} `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol, interval, rng string) (yahooMeta, []model.PricePoint, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetPathParam("symbol", f.yahooSymbol(symbol)).
		SetQueryParams(map[string]string{"interval": interval, "range": rng}).
		Get(f.BaseURL + "/v8/finance/chart/{symbol}")
	if err != nil {
		return yahooMeta{}, nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return yahooMeta{}, nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode(), resp.String())
	}

	var chart yahooChart
	if err := json.Unmarshal(resp.Body(), &chart); err != nil {
		return yahooMeta{}, nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return yahooMeta{}, nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return yahooMeta{}, nil, fmt.Errorf("yahoo: no data returned")
	}

	result := chart.Chart.Result[0]
	var closes []interface{}
	if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}
	points := make([]model.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) {
			break
		}
		c := toFloat(closes[i])
		if c == 0 {
			continue // null bars (halts, holidays)
		}
		points = append(points, model.PricePoint{Time: time.Unix(ts, 0).UTC(), Close: decimal.NewFromFloat(c)})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return result.Meta, points, nil
}

// FetchQuote builds a quote from the chart metadata of the current session.
func (f *YahooFetcher) FetchQuote(ctx context.Context, symbol string) (model.Quote, error) {
	meta, points, err := f.fetchChart(ctx, symbol, "5m", "1d")
	if err != nil {
		return model.Quote{}, err
	}
	price := meta.RegularMarketPrice
	if price == 0 && len(points) > 0 {
		price = points[len(points)-1].Close.InexactFloat64()
	}
	if price == 0 {
		return model.Quote{}, fmt.Errorf("yahoo: no price for %s", symbol)
	}
	prev := meta.ChartPreviousClose
	if prev == 0 {
		prev = meta.PreviousClose
	}
	return newQuote(quoteFields{
		symbol:   symbol,
		name:     meta.ShortName,
		currency: meta.Currency,
		price:    price,
		prev:     prev,
		high:     meta.RegularMarketDayHigh,
		low:      meta.RegularMarketDayLow,
		asOf:     meta.RegularMarketTime,
		source:   f.Name(),
	}), nil
}

// FetchHistory returns closing prices over rng, oldest first.
func (f *YahooFetcher) FetchHistory(ctx context.Context, symbol, rng string) ([]model.PricePoint, error) {
	rng = NormalizeRange(rng)
	_, points, err := f.fetchChart(ctx, symbol, IntervalFor(rng), rng)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("yahoo: no history for %s", symbol)
	}
	return points, nil
}

type quoteFields struct {
	symbol, name, currency string
	price, prev, high, low float64
	asOf                   int64
	source                 string
}

func newQuote(q quoteFields) model.Quote {
	price := decimal.NewFromFloat(q.price)
	prev := decimal.NewFromFloat(q.prev)
	out := model.Quote{
		Symbol:        q.symbol,
		Name:          q.name,
		Currency:      q.currency,
		Price:         price,
		PreviousClose: prev,
		DayHigh:       decimal.NewFromFloat(q.high),
		DayLow:        decimal.NewFromFloat(q.low),
		Source:        q.source,
	}
	if q.asOf > 0 {
		out.AsOf = time.Unix(q.asOf, 0).UTC()
	}
	if !prev.IsZero() {
		out.Change = price.Sub(prev).Round(2)
		out.ChangePercent = price.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return out
}
