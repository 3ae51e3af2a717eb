package analytics_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"FinSight/internal/analytics"
	"FinSight/internal/fault"
	"FinSight/internal/store/storetest"
)

func TestRevenueLeaders(t *testing.T) {
	in := analytics.NewInsights(storetest.Seeded(t))
	ctx := context.Background()

	leaders, err := in.RevenueLeaders(ctx, 10)
	if err != nil {
		t.Fatalf("RevenueLeaders: %v", err)
	}
	if len(leaders) != 2 || leaders[0].Ticker != "AAPL" || leaders[1].Ticker != "TSLA" {
		t.Fatalf("leaders = %+v", leaders)
	}
	if leaders[0].Revenue != 85.78 || leaders[0].Period != "Q2 2024" {
		t.Errorf("AAPL = %+v, want latest stored revenue", leaders[0])
	}

	leaders, err = in.RevenueLeaders(ctx, 1)
	if err != nil || len(leaders) != 1 {
		t.Errorf("limit 1: %+v, %v", leaders, err)
	}
}

func TestProfitability(t *testing.T) {
	got, err := analytics.NewInsights(storetest.Seeded(t)).Profitability(context.Background(), 10)
	if err != nil {
		t.Fatalf("Profitability: %v", err)
	}
	if len(got) != 1 || got[0].Ticker != "AAPL" {
		t.Fatalf("margins = %+v", got)
	}
	if want := 21.45 / 85.78 * 100; math.Abs(got[0].MarginPct-want) > 1e-9 {
		t.Errorf("margin = %v, want %v", got[0].MarginPct, want)
	}
}

func TestGrowthTrend(t *testing.T) {
	in := analytics.NewInsights(storetest.Seeded(t))
	ctx := context.Background()

	trend, err := in.GrowthTrend(ctx, "aapl")
	if err != nil {
		t.Fatalf("GrowthTrend: %v", err)
	}
	if trend.Ticker != "AAPL" || len(trend.Revenue.Points) != 4 || len(trend.NetIncome.Points) != 3 {
		t.Fatalf("trend = %+v", trend)
	}
	want := analytics.AverageGrowth([]float64{89.5, 119.58, 90.75, 85.78})
	if math.Abs(trend.AvgRevenueGrowth-want) > 1e-9 {
		t.Errorf("revenue growth = %v, want %v", trend.AvgRevenueGrowth, want)
	}

	trend, err = in.GrowthTrend(ctx, "TSLA")
	if err != nil {
		t.Fatalf("GrowthTrend TSLA: %v", err)
	}
	if len(trend.NetIncome.Points) != 0 || trend.NetIncome.Points == nil || trend.AvgIncomeGrowth != 0 {
		t.Errorf("TSLA net income = %+v", trend.NetIncome)
	}

	tests := []struct {
		ticker string
		want   error
	}{
		{"MSFT", fault.ErrNoSeries},
		{"NVDA", fault.ErrTickerNotFound},
	}
	for _, tt := range tests {
		if _, err := in.GrowthTrend(ctx, tt.ticker); !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.ticker, err, tt.want)
		}
	}
}

func TestComparison(t *testing.T) {
	avgs, err := analytics.NewInsights(storetest.Seeded(t)).Comparison(context.Background())
	if err != nil {
		t.Fatalf("Comparison: %v", err)
	}
	if len(avgs) != 2 || avgs[0].Ticker != "AAPL" || avgs[1].Ticker != "TSLA" {
		t.Fatalf("comparison = %+v", avgs)
	}
	if *avgs[0].AvgRevenue <= *avgs[1].AvgRevenue {
		t.Error("comparison is not ordered by average revenue")
	}
}

func TestSummary(t *testing.T) {
	sum, err := analytics.NewInsights(storetest.Seeded(t)).Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Companies != 3 || len(sum.TopCompanies) != 3 {
		t.Errorf("summary = %+v", sum)
	}
}
