package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"FinSight/internal/analytics"
	"FinSight/internal/breaker"
	"FinSight/internal/chart"
	"FinSight/internal/classifier"
	"FinSight/internal/config"
	"FinSight/internal/document"
	"FinSight/internal/extractor"
	"FinSight/internal/market"
	"FinSight/internal/orchestrator"
	"FinSight/internal/plot"
	"FinSight/internal/store"
)

// app holds the wired components shared by every command.
type app struct {
	cfg       *config.Config
	store     *store.Store
	docs      *document.Retriever
	market    *market.Adapter
	analytics *analytics.Adapter
	insights  *analytics.Insights
	orch      *orchestrator.Orchestrator
	plot      *plot.Pipeline
}

func newFetcher(cfg *config.Config) market.Fetcher {
	timeout := cfg.Router.AdapterTimeout
	switch cfg.Market.Provider {
	case "rest":
		return market.NewRESTFetcher(cfg.Market.BaseURL, cfg.Market.APIKey, cfg.Market.Proxy, timeout)
	case "financego":
		return market.NewFinanceGoFetcher(cfg.Market.Proxy, timeout)
	default:
		return market.NewYahooFetcher(cfg.Market.Proxy, timeout)
	}
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	vocab, err := extractor.LoadVocabulary(cfg.Vocabulary.Path)
	if err != nil {
		return nil, err
	}
	ex, err := extractor.New(vocab)
	if err != nil {
		return nil, fmt.Errorf("build extractor: %w", err)
	}

	st, err := store.Open(ctx, store.Options{
		Driver:      cfg.Database.Driver,
		DSN:         cfg.Database.DSN,
		OrderColumn: cfg.Database.OrderColumn,
		Metrics:     config.KnownMetrics,
	})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: st}
	if err := st.EnsureSchema(ctx); err != nil {
		a.close()
		return nil, err
	}

	a.analytics, err = analytics.NewAdapter(st, ex, cfg.Analytics.DefaultMetrics)
	if err != nil {
		a.close()
		return nil, err
	}
	a.insights = analytics.NewInsights(st)

	index, err := document.OpenIndex(cfg.Documents.IndexPath)
	if err != nil {
		a.close()
		return nil, err
	}
	a.docs = document.NewRetriever(index, cfg.Documents.TopK)

	fetcher := newFetcher(cfg)
	br := breaker.New(cfg.Market.Breaker.FailureThreshold, cfg.Market.Breaker.SuccessThreshold, cfg.Market.Breaker.Cooldown)
	a.market = market.NewAdapter(fetcher, br, ex, cfg.Market.DefaultSymbol, cfg.Market.HistoryRange)

	cls, err := classifier.New(classifier.DefaultRules, cfg.Router.DefaultRoute)
	if err != nil {
		a.close()
		return nil, err
	}
	a.orch, err = orchestrator.New(cls, cfg.Router.AdapterTimeout, a.market, a.analytics, a.docs)
	if err != nil {
		a.close()
		return nil, err
	}

	renderer, err := chart.New(chart.Options{
		Width:     cfg.Chart.Width,
		Height:    cfg.Chart.Height,
		DPI:       cfg.Chart.DPI,
		LineColor: cfg.Chart.LineColor,
		MaxTicks:  cfg.Chart.MaxTicks,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.plot = plot.New(ex, a.analytics, a.analytics, renderer)

	docCount, err := a.docs.Count()
	if err != nil {
		logrus.WithError(err).Warn("count indexed documents")
	}
	logrus.WithFields(logrus.Fields{
		"market":          fetcher.Name(),
		"db":              cfg.Database.Driver,
		"documents":       docCount,
		"default_route":   cfg.Router.DefaultRoute,
		"adapter_timeout": cfg.Router.AdapterTimeout.String(),
	}).Info("components ready")
	return a, nil
}

func (a *app) close() {
	if a.docs != nil {
		if err := a.docs.Close(); err != nil {
			logrus.WithError(err).Warn("close document index")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logrus.WithError(err).Warn("close store")
		}
	}
}

// requestTimeout bounds one CLI request: every adapter plus the fallback.
func (a *app) requestTimeout() time.Duration {
	return 2*a.cfg.Router.AdapterTimeout + 5*time.Second
}
