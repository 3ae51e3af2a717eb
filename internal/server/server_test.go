package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"FinSight/internal/fault"
	"FinSight/internal/model"
	"FinSight/internal/queue"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAsker struct {
	ans model.Answer
	err error
	got string
}

func (f *fakeAsker) Ask(_ context.Context, q string) (model.Answer, error) {
	f.got = q
	return f.ans, f.err
}

type fakePlotter struct {
	res model.PlotResult
	err error
	got string
}

func (f *fakePlotter) Generate(_ context.Context, text string) (model.PlotResult, error) {
	f.got = text
	return f.res, f.err
}

type fakeTasks struct {
	tasks map[string]model.Task
}

func (f *fakeTasks) Submit(_ context.Context, q string) (model.Task, error) {
	t := model.Task{ID: "task-1", Question: q, Status: model.TaskPending}
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeTasks) Get(_ context.Context, id string) (model.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return model.Task{}, queue.ErrTaskNotFound
	}
	return t, nil
}

func (f *fakeTasks) Stats(context.Context) (model.QueueStats, error) {
	st := model.QueueStats{Total: len(f.tasks)}
	for _, t := range f.tasks {
		if t.Status == model.TaskPending {
			st.Pending++
		}
	}
	return st, nil
}

type fakeInsights struct {
	err    error
	limit  int
	ticker string
}

func (f *fakeInsights) Summary(context.Context) (model.StoreSummary, error) {
	return model.StoreSummary{Companies: 3, MetricRows: 8}, f.err
}

func (f *fakeInsights) RevenueLeaders(_ context.Context, limit int) ([]model.RevenueLeader, error) {
	f.limit = limit
	return []model.RevenueLeader{{Ticker: "AAPL", Revenue: 85.78}, {Ticker: "TSLA", Revenue: 25.71}}, f.err
}

func (f *fakeInsights) Profitability(_ context.Context, limit int) ([]model.Profitability, error) {
	f.limit = limit
	return []model.Profitability{{Ticker: "AAPL", MarginPct: 25}}, f.err
}

func (f *fakeInsights) GrowthTrend(_ context.Context, ticker string) (model.GrowthTrend, error) {
	f.ticker = ticker
	if f.err != nil {
		return model.GrowthTrend{}, f.err
	}
	return model.GrowthTrend{Ticker: strings.ToUpper(ticker), AvgRevenueGrowth: 1.5}, nil
}

func (f *fakeInsights) Comparison(context.Context) ([]model.CompanyAverages, error) {
	return []model.CompanyAverages{{Ticker: "AAPL", DataPoints: 4}}, f.err
}

type fakeMarket struct {
	err    error
	symbol string
	rng    string
}

func (f *fakeMarket) Snapshot(_ context.Context, symbol, rng string) (model.MarketSnapshot, error) {
	f.symbol, f.rng = symbol, rng
	if f.err != nil {
		return model.MarketSnapshot{}, f.err
	}
	return model.MarketSnapshot{Quote: model.Quote{Symbol: symbol, Price: decimal.NewFromInt(100)}, Range: rng}, nil
}

func (f *fakeMarket) Indices(context.Context) ([]model.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []model.Quote{{Symbol: "^GSPC"}, {Symbol: "^DJI"}}, nil
}

type fakeHealth struct{}

func (fakeHealth) Health(context.Context) (model.DataHealth, error) {
	return model.DataHealth{Companies: 3, MetricRows: 8}, nil
}

type fixture struct {
	asker    *fakeAsker
	plotter  *fakePlotter
	tasks    *fakeTasks
	market   *fakeMarket
	insights *fakeInsights
	router   *gin.Engine
}

func newFixture() *fixture {
	f := &fixture{
		asker:    &fakeAsker{},
		plotter:  &fakePlotter{},
		tasks:    &fakeTasks{tasks: map[string]model.Task{}},
		market:   &fakeMarket{},
		insights: &fakeInsights{},
	}
	f.router = NewRouter(Deps{
		Asker:         f.asker,
		Plotter:       f.plotter,
		Tasks:         f.tasks,
		Market:        f.market,
		Data:          fakeHealth{},
		Insights:      f.insights,
		DefaultSymbol: "^GSPC",
		DefaultRange:  "1mo",
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, out
}

func TestHealth(t *testing.T) {
	f := newFixture()
	code, body := f.do(t, http.MethodGet, "/health", "")
	if code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("%d %v", code, body)
	}
	code, body = f.do(t, http.MethodGet, "/api/health/data", "")
	if code != http.StatusOK || body["companies"] != float64(3) {
		t.Fatalf("%d %v", code, body)
	}
}

func TestPlot(t *testing.T) {
	f := newFixture()
	f.plotter.res = model.PlotResult{
		Company:    "AAPL",
		Metric:     "revenue",
		IsTrend:    true,
		DataPoints: []model.MetricPoint{{Period: "Q1", Value: 1}, {Period: "Q2", Value: 2}},
		Chart:      model.ChartArtifact{Image: []byte("png")},
	}
	code, body := f.do(t, http.MethodPost, "/api/plot", `{"question":"Apple revenue trend"}`)
	if code != http.StatusOK {
		t.Fatalf("code = %d, body %v", code, body)
	}
	if f.plotter.got != "Apple revenue trend" {
		t.Errorf("plotter got %q", f.plotter.got)
	}
	if body["company"] != "AAPL" || body["data_points"] != float64(2) || body["image"] != "cG5n" {
		t.Errorf("body = %v", body)
	}
}

func TestPlot_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		code int
		want string
	}{
		{"empty", `{}`, nil, http.StatusBadRequest, "invalid_request"},
		{"not json", `nope`, nil, http.StatusBadRequest, "invalid_request"},
		{"missing ticker", `{"text":"weather"}`, fault.ErrMissingTicker, http.StatusBadRequest, "missing_ticker"},
		{"unknown ticker", `{"text":"x"}`, fault.ErrTickerNotFound, http.StatusNotFound, "ticker_not_found"},
		{"no data", `{"text":"x"}`, fault.ErrNoSeries, http.StatusNotFound, "no_series_for_metric"},
		{"store", `{"text":"x"}`, fault.ErrStore, http.StatusBadGateway, "store_failure"},
		{"render", `{"text":"x"}`, fault.ErrRender, http.StatusInternalServerError, "render_failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.plotter.err = tt.err
			code, body := f.do(t, http.MethodPost, "/api/plot", tt.body)
			if code != tt.code || body["error"] != tt.want {
				t.Fatalf("got %d %v, want %d %s", code, body, tt.code, tt.want)
			}
			if _, ok := body["image"]; ok {
				t.Error("error response carries an image")
			}
			if body["message"] == "" {
				t.Error("empty message")
			}
		})
	}
}

func TestChat(t *testing.T) {
	f := newFixture()
	f.asker.ans = model.Answer{
		Route:    model.RouteDecision{Categories: []model.Category{model.CategoryMarket}},
		Evidence: []model.EvidenceItem{{Source: model.CategoryMarket, Priority: 3, Payload: "x"}},
	}
	code, body := f.do(t, http.MethodPost, "/api/v1/chat", `{"user_id":"u1","question":"AAPL price?"}`)
	if code != http.StatusOK || f.asker.got != "AAPL price?" {
		t.Fatalf("%d %v", code, body)
	}
	ev, _ := body["evidence"].([]any)
	if len(ev) != 1 {
		t.Errorf("evidence = %v", body["evidence"])
	}
}

func TestChat_NoEvidence(t *testing.T) {
	f := newFixture()
	f.asker.ans = model.Answer{Route: model.RouteDecision{Categories: []model.Category{model.CategoryDocument}}}
	f.asker.err = fault.Wrap(fault.ErrNoEvidence, nil, "all failed")
	code, body := f.do(t, http.MethodPost, "/api/v1/chat", `{"question":"anything"}`)
	if code != http.StatusBadGateway || body["error"] != "no_evidence" {
		t.Fatalf("%d %v", code, body)
	}
	if _, ok := body["route"]; !ok {
		t.Error("route missing from failure")
	}
}

func TestChatAsyncAndTask(t *testing.T) {
	f := newFixture()
	code, body := f.do(t, http.MethodPost, "/api/v1/chat/async", `{"question":"Tesla revenue"}`)
	if code != http.StatusAccepted || body["task_id"] != "task-1" || body["status"] != "pending" {
		t.Fatalf("%d %v", code, body)
	}
	code, body = f.do(t, http.MethodGet, "/api/v1/tasks/task-1", "")
	if code != http.StatusOK || body["question"] != "Tesla revenue" {
		t.Fatalf("%d %v", code, body)
	}
	code, body = f.do(t, http.MethodGet, "/api/v1/tasks/nope", "")
	if code != http.StatusNotFound || body["error"] != "task_not_found" {
		t.Fatalf("%d %v", code, body)
	}
	code, _ = f.do(t, http.MethodPost, "/api/v1/chat/async", `{"question":"  "}`)
	if code != http.StatusBadRequest {
		t.Fatalf("blank question: %d", code)
	}
}

func TestMarket(t *testing.T) {
	f := newFixture()
	code, body := f.do(t, http.MethodGet, "/api/market/live", "")
	if code != http.StatusOK || body["success"] != true {
		t.Fatalf("%d %v", code, body)
	}
	if f.market.symbol != "^GSPC" || f.market.rng != "1mo" {
		t.Errorf("defaults = %s %s", f.market.symbol, f.market.rng)
	}
	f.do(t, http.MethodGet, "/api/market/live?symbol=aapl&range=5d", "")
	if f.market.symbol != "AAPL" || f.market.rng != "5d" {
		t.Errorf("query = %s %s", f.market.symbol, f.market.rng)
	}

	code, body = f.do(t, http.MethodGet, "/api/market/indices", "")
	if code != http.StatusOK || len(body["data"].([]any)) != 2 {
		t.Fatalf("%d %v", code, body)
	}

	f.market.err = fault.Wrap(fault.ErrAdapterUnavailable, errors.New("dial"), "yahoo")
	code, body = f.do(t, http.MethodGet, "/api/market/live", "")
	if code != http.StatusServiceUnavailable || body["error"] != "adapter_unavailable" {
		t.Fatalf("%d %v", code, body)
	}
	code, _ = f.do(t, http.MethodGet, "/api/market/indices", "")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("indices down: %d", code)
	}
}

func TestQueueStats(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodPost, "/api/v1/chat/async", `{"question":"Tesla revenue"}`)
	code, body := f.do(t, http.MethodGet, "/api/v1/queue/stats", "")
	if code != http.StatusOK || body["total"] != float64(1) || body["pending"] != float64(1) {
		t.Fatalf("%d %v", code, body)
	}
}

func TestInsights(t *testing.T) {
	f := newFixture()
	tests := []struct {
		path string
		want int
	}{
		{"/api/insights/summary", http.StatusOK},
		{"/api/insights/revenue-leaders", http.StatusOK},
		{"/api/insights/profitability?limit=3", http.StatusOK},
		{"/api/insights/trends/aapl", http.StatusOK},
		{"/api/insights/comparison", http.StatusOK},
		{"/api/insights/revenue-leaders?limit=0", http.StatusBadRequest},
		{"/api/insights/profitability?limit=x", http.StatusBadRequest},
	}
	for _, tt := range tests {
		code, body := f.do(t, http.MethodGet, tt.path, "")
		if code != tt.want {
			t.Errorf("%s: %d %v, want %d", tt.path, code, body, tt.want)
			continue
		}
		if code == http.StatusOK && (body["success"] != true || body["data"] == nil) {
			t.Errorf("%s: body = %v", tt.path, body)
		}
	}
	if f.insights.limit != 3 {
		t.Errorf("limit = %d, want 3", f.insights.limit)
	}
	if f.insights.ticker != "aapl" {
		t.Errorf("ticker = %q", f.insights.ticker)
	}

	f.do(t, http.MethodGet, "/api/insights/revenue-leaders?limit=5000", "")
	if f.insights.limit != 100 {
		t.Errorf("limit cap = %d, want 100", f.insights.limit)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/insights/summary", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if got := w.Header().Get("Cache-Control"); got != "public, max-age=600" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestInsights_Errors(t *testing.T) {
	f := newFixture()
	f.insights.err = fault.Wrap(fault.ErrTickerNotFound, nil, "ticker ZZZZ")
	code, body := f.do(t, http.MethodGet, "/api/insights/trends/zzzz", "")
	if code != http.StatusNotFound || body["error"] != "ticker_not_found" {
		t.Fatalf("%d %v", code, body)
	}
	f.insights.err = fault.Wrap(fault.ErrStore, errors.New("disk"), "company averages")
	code, body = f.do(t, http.MethodGet, "/api/insights/comparison", "")
	if code != http.StatusBadGateway || body["error"] != "store_failure" {
		t.Fatalf("%d %v", code, body)
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[error]int{
		fault.ErrMissingMetric:     http.StatusBadRequest,
		fault.ErrUnknownMetric:     http.StatusUnprocessableEntity,
		fault.ErrAdapterTimeout:    http.StatusGatewayTimeout,
		fault.ErrNoEvidence:        http.StatusBadGateway,
		errors.New("unclassified"): http.StatusInternalServerError,
	}
	for err, want := range tests {
		if got := StatusFor(err); got != want {
			t.Errorf("StatusFor(%v) = %d, want %d", err, got, want)
		}
	}
}
