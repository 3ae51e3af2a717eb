package analytics

import (
	"context"
	"errors"
	"sort"

	"FinSight/internal/fault"
	"FinSight/internal/model"
)

const summaryTopN = 10

// InsightStore is the structured store as seen by the insight reports.
type InsightStore interface {
	Company(ctx context.Context, ticker string) (model.Company, error)
	FetchSeries(ctx context.Context, companyID int64, metric string, latestOnly bool) (model.MetricSeries, error)
	Summary(ctx context.Context, limit int) (model.StoreSummary, error)
	LatestFigures(ctx context.Context, metrics ...string) ([]model.CompanyFigures, error)
	CompanyAverages(ctx context.Context) ([]model.CompanyAverages, error)
}

// Insights builds aggregate reports over every stored company.
type Insights struct {
	store InsightStore
}

func NewInsights(store InsightStore) *Insights {
	return &Insights{store: store}
}

// Summary returns store counts and the companies with the most rows.
func (in *Insights) Summary(ctx context.Context) (model.StoreSummary, error) {
	return in.store.Summary(ctx, summaryTopN)
}

// RevenueLeaders ranks companies by their latest positive revenue.
func (in *Insights) RevenueLeaders(ctx context.Context, limit int) ([]model.RevenueLeader, error) {
	figs, err := in.store.LatestFigures(ctx, "revenue")
	if err != nil {
		return nil, err
	}
	out := []model.RevenueLeader{}
	for _, f := range figs {
		if rev := f.Values["revenue"]; rev > 0 {
			out = append(out, model.RevenueLeader{Ticker: f.Ticker, Name: f.Name, Period: f.Period, Revenue: rev})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Revenue > out[j].Revenue })
	return truncate(out, limit), nil
}

// Profitability ranks companies by net margin of their latest row carrying
// both revenue and net income. Rows with non-positive revenue are skipped.
func (in *Insights) Profitability(ctx context.Context, limit int) ([]model.Profitability, error) {
	figs, err := in.store.LatestFigures(ctx, "revenue", "net_income")
	if err != nil {
		return nil, err
	}
	out := []model.Profitability{}
	for _, f := range figs {
		rev, ni := f.Values["revenue"], f.Values["net_income"]
		margin, ok := Margin(ni, rev)
		if !ok {
			continue
		}
		out = append(out, model.Profitability{
			Ticker:    f.Ticker,
			Name:      f.Name,
			Period:    f.Period,
			Revenue:   rev,
			NetIncome: ni,
			MarginPct: margin,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MarginPct > out[j].MarginPct })
	return truncate(out, limit), nil
}

// GrowthTrend returns revenue and net income history for ticker. At least
// two revenue points are required.
func (in *Insights) GrowthTrend(ctx context.Context, ticker string) (model.GrowthTrend, error) {
	c, err := in.store.Company(ctx, ticker)
	if err != nil {
		return model.GrowthTrend{}, err
	}
	trend := model.GrowthTrend{Ticker: c.Ticker}

	trend.Revenue, err = in.store.FetchSeries(ctx, c.ID, "revenue", false)
	if err != nil {
		return model.GrowthTrend{}, err
	}
	if len(trend.Revenue.Points) < 2 {
		return model.GrowthTrend{}, fault.Wrap(fault.ErrNoSeries, nil, "%s: insufficient revenue history for a trend", c.Ticker)
	}
	trend.AvgRevenueGrowth = AverageGrowth(trend.Revenue.Values())

	trend.NetIncome, err = in.store.FetchSeries(ctx, c.ID, "net_income", false)
	switch {
	case errors.Is(err, fault.ErrNoSeries):
		trend.NetIncome = model.MetricSeries{CompanyID: c.ID, Metric: "net_income", Points: []model.MetricPoint{}}
	case err != nil:
		return model.GrowthTrend{}, err
	default:
		trend.AvgIncomeGrowth = AverageGrowth(trend.NetIncome.Values())
	}
	return trend, nil
}

// Comparison lists per-company averages, highest average revenue first.
// Companies without revenue sort last.
func (in *Insights) Comparison(ctx context.Context) ([]model.CompanyAverages, error) {
	avgs, err := in.store.CompanyAverages(ctx)
	if err != nil {
		return nil, err
	}
	if avgs == nil {
		avgs = []model.CompanyAverages{}
	}
	sort.SliceStable(avgs, func(i, j int) bool {
		a, b := avgs[i].AvgRevenue, avgs[j].AvgRevenue
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return *a > *b
	})
	return avgs, nil
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
