package market

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"FinSight/internal/analytics"
	"FinSight/internal/breaker"
	"FinSight/internal/extractor"
	"FinSight/internal/fault"
	"FinSight/internal/logger"
	"FinSight/internal/model"
)

const (
	rsiPeriod = 14
	smaPeriod = 20
)

// Indices are the symbols reported by Indices.
var Indices = []struct {
	Symbol string
	Name   string
}{
	{"^GSPC", "S&P 500"},
	{"^DJI", "Dow Jones Industrial Average"},
	{"^IXIC", "NASDAQ Composite"},
}

// Adapter is the market evidence adapter.
type Adapter struct {
	fetcher       Fetcher
	breaker       *breaker.Breaker
	ex            *extractor.Extractor
	defaultSymbol string
	historyRange  string
	log           *logrus.Entry
}

// NewAdapter wires a fetcher behind a breaker. The extractor finds the symbol
// named in a question; defaultSymbol is used when none is named.
func NewAdapter(f Fetcher, b *breaker.Breaker, ex *extractor.Extractor, defaultSymbol, historyRange string) *Adapter {
	return &Adapter{
		fetcher:       f,
		breaker:       b,
		ex:            ex,
		defaultSymbol: defaultSymbol,
		historyRange:  NormalizeRange(historyRange),
		log:           logger.WithComponent("market").WithField("provider", f.Name()),
	}
}

func (a *Adapter) Category() model.Category { return model.CategoryMarket }

// Fetch returns a snapshot for the first ticker in question.
func (a *Adapter) Fetch(ctx context.Context, question string) (model.EvidenceItem, bool) {
	symbol, ok := a.ex.Ticker(question)
	if !ok {
		symbol = a.defaultSymbol
	}
	snap, err := a.Snapshot(ctx, symbol, a.historyRange)
	if err != nil {
		a.log.WithError(err).WithField("symbol", symbol).Warn("market snapshot failed")
		return model.EvidenceItem{}, false
	}
	return model.EvidenceItem{Source: model.CategoryMarket, Payload: snap}, true
}

// Snapshot fetches the quote and recent history for symbol. The quote is
// required; missing history degrades the indicators only.
func (a *Adapter) Snapshot(ctx context.Context, symbol, rng string) (model.MarketSnapshot, error) {
	rng = NormalizeRange(rng)
	q, err := breaker.Do(a.breaker, func() (model.Quote, error) {
		return a.fetcher.FetchQuote(ctx, symbol)
	})
	if err != nil {
		return model.MarketSnapshot{}, fault.Wrap(fault.ErrAdapterUnavailable, err, "quote %s", symbol)
	}

	snap := model.MarketSnapshot{Quote: q, Range: rng, Position: 0.5, RSI: 50}
	price := q.Price.InexactFloat64()
	snap.RangeHigh, snap.RangeLow = price, price

	history, err := breaker.Do(a.breaker, func() ([]model.PricePoint, error) {
		return a.fetcher.FetchHistory(ctx, symbol, rng)
	})
	if err != nil {
		a.log.WithError(err).WithField("symbol", symbol).Warn("history unavailable, indicators use the quote only")
		return snap, nil
	}
	snap.History = history

	closes := make([]float64, len(history))
	for i, p := range history {
		closes[i] = p.Close.InexactFloat64()
	}

	if h, l, err := analytics.Range(closes, 0); err == nil {
		snap.RangeHigh, snap.RangeLow = max(h, price), min(l, price)
	}
	if pos, err := analytics.Position(price, snap.RangeHigh, snap.RangeLow); err == nil {
		snap.Position = pos
	}
	if rsi, err := analytics.RSI(closes, rsiPeriod); err == nil {
		snap.RSI = rsi
	}
	if len(closes) >= smaPeriod {
		snap.SMA, _ = analytics.SMA(closes, smaPeriod)
	}
	return snap, nil
}

// Indices fetches quotes for the major US indices concurrently. Individual
// failures are skipped; all failing is an error.
func (a *Adapter) Indices(ctx context.Context) ([]model.Quote, error) {
	quotes := make([]*model.Quote, len(Indices))
	var mu sync.Mutex
	var failures []error

	var g errgroup.Group
	for i, idx := range Indices {
		g.Go(func() error {
			q, err := breaker.Do(a.breaker, func() (model.Quote, error) {
				return a.fetcher.FetchQuote(ctx, idx.Symbol)
			})
			if err != nil {
				mu.Lock()
				failures = append(failures, fmt.Errorf("%s: %w", idx.Symbol, err))
				mu.Unlock()
				return nil
			}
			if q.Name == "" {
				q.Name = idx.Name
			}
			quotes[i] = &q
			return nil
		})
	}
	g.Wait()

	var out []model.Quote
	for _, q := range quotes {
		if q != nil {
			out = append(out, *q)
		}
	}
	if len(out) == 0 {
		return nil, fault.Wrap(fault.ErrAdapterUnavailable, errors.Join(failures...), "indices")
	}
	return out, nil
}
