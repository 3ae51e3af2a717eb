package report

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"FinSight/internal/fault"
	"FinSight/internal/model"
)

func TestFormatAnswer(t *testing.T) {
	ans := model.Answer{
		Route: model.RouteDecision{
			Categories: []model.Category{model.CategoryMarket, model.CategoryDocument},
			IsHybrid:   true,
			Confidence: 0.75,
		},
		Evidence: []model.EvidenceItem{
			{Source: model.CategoryMarket, Latency: 42 * time.Millisecond, Payload: model.MarketSnapshot{
				Quote: model.Quote{
					Symbol:        "AAPL",
					Name:          "Apple Inc.",
					Currency:      "USD",
					Price:         decimal.RequireFromString("189.5"),
					Change:        decimal.RequireFromString("-1.25"),
					ChangePercent: decimal.RequireFromString("-0.66"),
					Source:        "yahoo",
				},
				Range:     "1mo",
				History:   []model.PricePoint{{Close: decimal.NewFromInt(180)}},
				RangeHigh: 195, RangeLow: 170, Position: 0.78, RSI: 55.2, SMA: 184.1,
			}},
			{Source: model.CategoryDocument, Payload: []model.DocumentMatch{
				{ID: "d1", Title: "Apple Q2 call", Snippet: "Services revenue hit a record", Score: 1.5},
			}},
		},
	}
	out := FormatAnswer(ans)
	for _, want := range []string{
		"market+document", "hybrid: true", "0.75",
		"Apple Inc. (AAPL): 189.50 USD", "-1.25 (-0.66%)",
		"1mo range: 170.00 - 195.00", "RSI(14): 55.2", "SMA(20): 184.10",
		"[market] 42ms", "1. Apple Q2 call (score 1.50)", "Services revenue hit a record",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatAnswer_Analytics(t *testing.T) {
	ans := model.Answer{Evidence: []model.EvidenceItem{{
		Source: model.CategoryAnalytics,
		Payload: model.AnalyticsResult{
			Company: model.Company{Ticker: "TSLA", Name: "Tesla, Inc."},
			Metrics: []model.MetricReport{{
				Series: model.MetricSeries{Metric: "revenue", Points: []model.MetricPoint{
					{Period: "Q1 2024", Value: 21.3}, {Period: "Q2 2024", Value: 25.5},
				}},
				Stats: model.SeriesStats{Count: 2, First: 21.3, Last: 25.5, Min: 21.3, Max: 25.5, Mean: 23.4, ChangePct: 19.7},
			}},
		},
	}}}
	out := FormatAnswer(ans)
	for _, want := range []string{"Tesla, Inc. (TSLA)", "revenue: 2 periods", "+19.7%", "Q1 2024=21.30"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatPlot(t *testing.T) {
	res := model.PlotResult{
		Company:    "AAPL",
		Metric:     "revenue",
		IsTrend:    true,
		DataPoints: []model.MetricPoint{{Period: "Q1 2024", Value: 90.75}},
		Chart:      model.ChartArtifact{Image: make([]byte, 10)},
	}
	out := FormatPlot(res, "out.png")
	for _, want := range []string{"AAPL - revenue", "trend, 1 data point(s)", "90.75", "out.png (10 bytes)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatError(t *testing.T) {
	out := FormatError(fault.Wrap(fault.ErrMissingTicker, nil, "none"))
	if !strings.Contains(out, "missing_ticker") || !strings.Contains(out, "company") {
		t.Errorf("output = %s", out)
	}
}

func TestFormatHealth(t *testing.T) {
	out := FormatHealth(model.DataHealth{Companies: 3, MetricRows: 8, Coverage: []model.MetricCoverage{
		{Metric: "revenue", NonNull: 8}, {Metric: "equity", NonNull: 0},
	}})
	for _, want := range []string{"companies: 3", "metric rows: 8", "revenue", "equity"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
