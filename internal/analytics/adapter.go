// Package analytics serves structured financial time-series: the analytics
// evidence adapter and the series fetcher used by the chart pipeline.
package analytics

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"FinSight/internal/extractor"
	"FinSight/internal/fault"
	"FinSight/internal/logger"
	"FinSight/internal/model"
)

// smaWindow is the trailing window for per-series moving averages.
const smaWindow = 4

// SeriesStore is the structured store as seen by analytics.
type SeriesStore interface {
	Company(ctx context.Context, ticker string) (model.Company, error)
	FetchSeries(ctx context.Context, companyID int64, metric string, latestOnly bool) (model.MetricSeries, error)
	HasMetric(metric string) bool
}

// Adapter answers analytics questions from the structured store.
type Adapter struct {
	store    SeriesStore
	ex       *extractor.Extractor
	defaults []string
	log      *logrus.Entry
}

// NewAdapter checks that every metric the vocabulary can produce, and every
// default metric, is a column of the store.
func NewAdapter(store SeriesStore, ex *extractor.Extractor, defaultMetrics []string) (*Adapter, error) {
	for _, m := range append(ex.MetricNames(), defaultMetrics...) {
		if !store.HasMetric(m) {
			return nil, fault.Wrap(fault.ErrUnknownMetric, nil, "metric %q", m)
		}
	}
	return &Adapter{
		store:    store,
		ex:       ex,
		defaults: append([]string(nil), defaultMetrics...),
		log:      logger.WithComponent("analytics"),
	}, nil
}

func (a *Adapter) Category() model.Category { return model.CategoryAnalytics }

// Fetch runs one query per metric named in the question (or the defaults)
// for the first company named.
func (a *Adapter) Fetch(ctx context.Context, question string) (model.EvidenceItem, bool) {
	ticker, ok := a.ex.Ticker(question)
	if !ok {
		a.log.Debug("no company in question")
		return model.EvidenceItem{}, false
	}
	company, err := a.store.Company(ctx, ticker)
	if err != nil {
		a.log.WithError(err).WithField("ticker", ticker).Warn("company lookup failed")
		return model.EvidenceItem{}, false
	}

	metrics := a.ex.Metrics(question)
	if len(metrics) == 0 {
		metrics = a.defaults
	}

	result := model.AnalyticsResult{Company: company}
	for _, m := range metrics {
		series, err := a.store.FetchSeries(ctx, company.ID, m, false)
		if errors.Is(err, fault.ErrNoSeries) {
			continue
		}
		if err != nil {
			a.log.WithError(err).WithField("metric", m).Warn("series query failed")
			return model.EvidenceItem{}, false
		}
		result.Metrics = append(result.Metrics, model.MetricReport{
			Series: series,
			Stats:  Summarize(series, smaWindow),
		})
	}
	if len(result.Metrics) == 0 {
		return model.EvidenceItem{}, false
	}
	return model.EvidenceItem{Source: model.CategoryAnalytics, Payload: result}, true
}

// ResolveTicker maps a ticker to its company id.
func (a *Adapter) ResolveTicker(ctx context.Context, ticker string) (int64, error) {
	c, err := a.store.Company(ctx, ticker)
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

// FetchSeries reads one metric series for the chart pipeline.
func (a *Adapter) FetchSeries(ctx context.Context, companyID int64, metric string, latestOnly bool) (model.MetricSeries, error) {
	return a.store.FetchSeries(ctx, companyID, metric, latestOnly)
}
