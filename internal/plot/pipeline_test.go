package plot

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"FinSight/internal/chart"
	"FinSight/internal/extractor"
	"FinSight/internal/fault"
	"FinSight/internal/model"
	"FinSight/internal/store"
	"FinSight/internal/store/storetest"
)

// countingStore records how often the pipeline reaches the store.
type countingStore struct {
	*store.Store
	resolves int
	fetches  int
}

func (c *countingStore) ResolveTicker(ctx context.Context, ticker string) (int64, error) {
	c.resolves++
	return c.Store.ResolveTicker(ctx, ticker)
}

func (c *countingStore) FetchSeries(ctx context.Context, id int64, metric string, latestOnly bool) (model.MetricSeries, error) {
	c.fetches++
	return c.Store.FetchSeries(ctx, id, metric, latestOnly)
}

type failingRenderer struct{}

func (failingRenderer) Render(model.MetricSeries, string, string) (model.ChartArtifact, error) {
	return model.ChartArtifact{}, fault.Wrap(fault.ErrRender, errors.New("canvas"), "test")
}

func newPipeline(t *testing.T) (*Pipeline, *countingStore) {
	t.Helper()
	st := &countingStore{Store: storetest.Seeded(t)}
	r, err := chart.New(chart.Options{Width: 480, Height: 320, DPI: 96, LineColor: "#2563eb", MaxTicks: 12})
	if err != nil {
		t.Fatalf("chart.New: %v", err)
	}
	return New(extractor.Default(), st, st, r), st
}

func periods(points []model.MetricPoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.Period
	}
	return out
}

func TestGenerate_TrendPlotsFullSeries(t *testing.T) {
	p, _ := newPipeline(t)
	res, err := p.Generate(context.Background(), "Apple revenue growth over the past quarters")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Company != "AAPL" || res.Metric != "revenue" || !res.IsTrend {
		t.Fatalf("result = %s %s trend=%v", res.Company, res.Metric, res.IsTrend)
	}
	want := []string{"Q3 2023", "Q4 2023", "Q1 2024", "Q2 2024"}
	got := periods(res.DataPoints)
	if len(got) != len(want) {
		t.Fatalf("periods = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("periods = %v, want %v", got, want)
		}
	}
	if !bytes.HasPrefix(res.Chart.Image, []byte("\x89PNG")) {
		t.Error("chart is not a PNG")
	}
	if res.Chart.PointCount != len(want) {
		t.Errorf("point count = %d, want %d", res.Chart.PointCount, len(want))
	}
}

func TestGenerate_PointInTimeUsesLatest(t *testing.T) {
	p, _ := newPipeline(t)
	res, err := p.Generate(context.Background(), "Tesla's operating income in 2024")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Company != "TSLA" || res.Metric != "operating_income" || res.IsTrend {
		t.Fatalf("result = %s %s trend=%v", res.Company, res.Metric, res.IsTrend)
	}
	if len(res.DataPoints) != 1 || res.DataPoints[0].Value != 1.58 {
		t.Fatalf("points = %+v", res.DataPoints)
	}
	if res.Chart.PointCount != 1 || !bytes.HasPrefix(res.Chart.Image, []byte("\x89PNG")) {
		t.Errorf("chart = %d points, %d bytes", res.Chart.PointCount, len(res.Chart.Image))
	}
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     error
		resolves int
		fetches  int
	}{
		{"no company", "How is the weather?", fault.ErrMissingTicker, 0, 0},
		{"no metric", "Show me Apple", fault.ErrMissingMetric, 0, 0},
		{"unknown ticker", "Nvidia revenue trend", fault.ErrTickerNotFound, 1, 0},
		{"no rows", "Microsoft revenue over time", fault.ErrNoSeries, 1, 1},
		{"null column", "Tesla eps", fault.ErrNoSeries, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, st := newPipeline(t)
			res, err := p.Generate(context.Background(), tt.text)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if res.Chart.Image != nil {
				t.Error("failure produced a chart")
			}
			if st.resolves != tt.resolves || st.fetches != tt.fetches {
				t.Errorf("store calls resolve=%d fetch=%d, want %d/%d", st.resolves, st.fetches, tt.resolves, tt.fetches)
			}
		})
	}
}

func TestGenerate_RenderFailure(t *testing.T) {
	st := &countingStore{Store: storetest.Seeded(t)}
	p := New(extractor.Default(), st, st, failingRenderer{})
	_, err := p.Generate(context.Background(), "Apple revenue")
	if !errors.Is(err, fault.ErrRender) {
		t.Fatalf("err = %v", err)
	}
}

func TestResponse(t *testing.T) {
	p, _ := newPipeline(t)
	res, err := p.Generate(context.Background(), "Apple revenue trend")
	if err != nil {
		t.Fatal(err)
	}
	ok := Response(res, nil)
	if ok["company"] != "AAPL" || ok["metric"] != "revenue" || ok["data_points"] != 4 || ok["is_trend"] != true {
		t.Errorf("success payload = %v", ok)
	}
	img, err := base64.StdEncoding.DecodeString(ok["image"].(string))
	if err != nil || !bytes.Equal(img, res.Chart.Image) {
		t.Errorf("image does not round trip: %v", err)
	}
	if _, has := ok["error"]; has {
		t.Error("success payload has error")
	}

	_, err = p.Generate(context.Background(), "How is the weather?")
	bad := Response(model.PlotResult{}, err)
	if bad["error"] != "missing_ticker" || bad["message"] == "" {
		t.Errorf("failure payload = %v", bad)
	}
	if _, has := bad["image"]; has {
		t.Error("failure payload has image")
	}
}
