// Package plot turns a narrative request into a chart of stored metric data.
package plot

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"FinSight/internal/fault"
	"FinSight/internal/logger"
	"FinSight/internal/model"
)

type Extractor interface {
	Extract(text string) (model.ExtractedPlotParams, error)
}

type Resolver interface {
	ResolveTicker(ctx context.Context, ticker string) (int64, error)
}

type SeriesFetcher interface {
	FetchSeries(ctx context.Context, companyID int64, metric string, latestOnly bool) (model.MetricSeries, error)
}

type Renderer interface {
	Render(series model.MetricSeries, companyLabel, metricLabel string) (model.ChartArtifact, error)
}

// Pipeline runs extract, resolve, fetch and render, stopping at the first
// failure.
type Pipeline struct {
	extractor Extractor
	resolver  Resolver
	fetcher   SeriesFetcher
	renderer  Renderer
	log       *logrus.Entry
}

func New(e Extractor, r Resolver, f SeriesFetcher, rd Renderer) *Pipeline {
	return &Pipeline{
		extractor: e,
		resolver:  r,
		fetcher:   f,
		renderer:  rd,
		log:       logger.WithComponent("plot"),
	}
}

// Generate charts the metric named in text. A trend request plots the full
// history; otherwise only the latest point.
func (p *Pipeline) Generate(ctx context.Context, text string) (model.PlotResult, error) {
	start := time.Now()

	params, err := p.extractor.Extract(text)
	if err != nil {
		return model.PlotResult{}, p.fail("extract", err, logrus.Fields{})
	}
	fields := logrus.Fields{"ticker": params.Ticker, "metric": params.Metric, "trend": params.IsTrend}

	companyID, err := p.resolver.ResolveTicker(ctx, params.Ticker)
	if err != nil {
		return model.PlotResult{}, p.fail("resolve", err, fields)
	}

	series, err := p.fetcher.FetchSeries(ctx, companyID, params.Metric, !params.IsTrend)
	if err != nil {
		return model.PlotResult{}, p.fail("fetch", err, fields)
	}

	art, err := p.renderer.Render(series, params.Ticker, params.Metric)
	if err != nil {
		return model.PlotResult{}, p.fail("render", err, fields)
	}

	fields["points"] = len(series.Points)
	fields["latency_ms"] = time.Since(start).Milliseconds()
	p.log.WithFields(fields).Info("chart generated")

	return model.PlotResult{
		Company:    params.Ticker,
		Metric:     params.Metric,
		DataPoints: series.Points,
		IsTrend:    params.IsTrend,
		Chart:      art,
	}, nil
}

func (p *Pipeline) fail(stage string, err error, fields logrus.Fields) error {
	entry := p.log.WithFields(fields).WithFields(logrus.Fields{
		"stage":  stage,
		"kind":   fault.KindOf(err),
		"reason": fault.Code(err),
	})
	switch fault.KindOf(err) {
	case fault.KindExtraction, fault.KindResolution, fault.KindDataNotFound:
		entry.Info("plot request rejected")
	default:
		entry.WithError(err).Error("plot request failed")
	}
	return err
}

// Response builds the wire payload for a Generate outcome.
func Response(res model.PlotResult, err error) map[string]any {
	if err != nil {
		return map[string]any{
			"error":   fault.Code(err),
			"message": fault.Message(err),
		}
	}
	return map[string]any{
		"company":     res.Company,
		"metric":      res.Metric,
		"data_points": len(res.DataPoints),
		"is_trend":    res.IsTrend,
		"image":       res.Chart.Base64(),
	}
}
