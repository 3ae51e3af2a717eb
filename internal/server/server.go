// Package server exposes the router, the chart pipeline and the market
// adapter over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"FinSight/internal/fault"
	"FinSight/internal/logger"
	"FinSight/internal/model"
	"FinSight/internal/plot"
	"FinSight/internal/queue"
)

type Asker interface {
	Ask(ctx context.Context, question string) (model.Answer, error)
}

type Plotter interface {
	Generate(ctx context.Context, text string) (model.PlotResult, error)
}

type TaskQueue interface {
	Submit(ctx context.Context, question string) (model.Task, error)
	Get(ctx context.Context, id string) (model.Task, error)
	Stats(ctx context.Context) (model.QueueStats, error)
}

type Market interface {
	Snapshot(ctx context.Context, symbol, rng string) (model.MarketSnapshot, error)
	Indices(ctx context.Context) ([]model.Quote, error)
}

type HealthSource interface {
	Health(ctx context.Context) (model.DataHealth, error)
}

// Insights serves aggregate reports over the structured store.
type Insights interface {
	Summary(ctx context.Context) (model.StoreSummary, error)
	RevenueLeaders(ctx context.Context, limit int) ([]model.RevenueLeader, error)
	Profitability(ctx context.Context, limit int) ([]model.Profitability, error)
	GrowthTrend(ctx context.Context, ticker string) (model.GrowthTrend, error)
	Comparison(ctx context.Context) ([]model.CompanyAverages, error)
}

const (
	defaultInsightLimit = 10
	maxInsightLimit     = 100
	insightCacheControl = "public, max-age=600"
)

// Deps are the handlers' collaborators.
type Deps struct {
	Asker         Asker
	Plotter       Plotter
	Tasks         TaskQueue
	Market        Market
	Data          HealthSource
	Insights      Insights
	DefaultSymbol string
	DefaultRange  string
}

type API struct {
	deps Deps
	log  *logrus.Entry
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	a := &API{deps: d, log: logger.WithComponent("server")}

	r := gin.New()
	r.Use(gin.Recovery(), a.requestLogger())

	r.GET("/health", a.HealthHandler)
	r.GET("/api/health/data", a.DataHealthHandler)
	r.POST("/api/plot", a.PlotHandler)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/chat", a.ChatHandler)
		v1.POST("/chat/async", a.ChatAsyncHandler)
		v1.GET("/tasks/:id", a.TaskHandler)
		v1.GET("/queue/stats", a.QueueStatsHandler)
	}

	insights := r.Group("/api/insights")
	{
		insights.GET("/summary", a.SummaryHandler)
		insights.GET("/revenue-leaders", a.RevenueLeadersHandler)
		insights.GET("/profitability", a.ProfitabilityHandler)
		insights.GET("/trends/:ticker", a.TrendHandler)
		insights.GET("/comparison", a.ComparisonHandler)
	}

	market := r.Group("/api/market")
	{
		market.GET("/live", a.LiveHandler)
		market.GET("/indices", a.IndicesHandler)
	}
	return r
}

func (a *API) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := a.log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

// StatusFor maps a failure kind to an HTTP status.
func StatusFor(err error) int {
	switch fault.KindOf(err) {
	case fault.KindExtraction:
		return http.StatusBadRequest
	case fault.KindResolution, fault.KindDataNotFound:
		return http.StatusNotFound
	case fault.KindConfig:
		return http.StatusUnprocessableEntity
	case fault.KindAdapterTimeout:
		return http.StatusGatewayTimeout
	case fault.KindStore, fault.KindAdapterUnavailable, fault.KindNoEvidence:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) gin.H {
	return gin.H{"error": fault.Code(err), "message": fault.Message(err)}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": msg})
}

// HealthHandler is the liveness probe.
func (a *API) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

func (a *API) DataHealthHandler(c *gin.Context) {
	h, err := a.deps.Data.Health(c.Request.Context())
	if err != nil {
		c.JSON(StatusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, h)
}

type plotRequest struct {
	Question string `json:"question"`
	Text     string `json:"text"`
}

// PlotHandler accepts {question} or {text} and returns a chart payload.
func (a *API) PlotHandler(c *gin.Context) {
	var req plotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request body must be JSON with a question or text field")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		text = strings.TrimSpace(req.Question)
	}
	if text == "" {
		badRequest(c, "question or text is required")
		return
	}

	res, err := a.deps.Plotter.Generate(c.Request.Context(), text)
	if err != nil {
		c.JSON(StatusFor(err), plot.Response(res, err))
		return
	}
	c.JSON(http.StatusOK, plot.Response(res, nil))
}

type chatRequest struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
}

func (a *API) bindQuestion(c *gin.Context) (string, bool) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request body must be JSON with a question field")
		return "", false
	}
	q := strings.TrimSpace(req.Question)
	if q == "" {
		badRequest(c, "question is required")
		return "", false
	}
	return q, true
}

// ChatHandler routes a question and returns the merged evidence.
func (a *API) ChatHandler(c *gin.Context) {
	q, ok := a.bindQuestion(c)
	if !ok {
		return
	}
	ans, err := a.deps.Asker.Ask(c.Request.Context(), q)
	if err != nil {
		body := errorBody(err)
		body["route"] = ans.Route
		c.JSON(StatusFor(err), body)
		return
	}
	c.JSON(http.StatusOK, ans)
}

func (a *API) ChatAsyncHandler(c *gin.Context) {
	q, ok := a.bindQuestion(c)
	if !ok {
		return
	}
	task, err := a.deps.Tasks.Submit(c.Request.Context(), q)
	if err != nil {
		a.log.WithError(err).Error("submit task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Failed to create task."})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"task_id":    task.ID,
		"status":     task.Status,
		"status_url": "/api/v1/tasks/" + task.ID,
	})
}

func (a *API) TaskHandler(c *gin.Context) {
	task, err := a.deps.Tasks.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, queue.ErrTaskNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task_not_found", "message": "Task " + c.Param("id") + " not found."})
		return
	}
	if err != nil {
		a.log.WithError(err).Error("load task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Failed to load task."})
		return
	}
	c.JSON(http.StatusOK, task)
}

// LiveHandler returns a snapshot for ?symbol= over ?range=.
func (a *API) LiveHandler(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.DefaultQuery("symbol", a.deps.DefaultSymbol)))
	rng := c.DefaultQuery("range", a.deps.DefaultRange)

	snap, err := a.deps.Market.Snapshot(c.Request.Context(), symbol, rng)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": snap})
}

func (a *API) IndicesHandler(c *gin.Context) {
	quotes, err := a.deps.Market.Indices(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": quotes})
}

func (a *API) QueueStatsHandler(c *gin.Context) {
	st, err := a.deps.Tasks.Stats(c.Request.Context())
	if err != nil {
		a.log.WithError(err).Error("queue stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Failed to read queue statistics."})
		return
	}
	c.JSON(http.StatusOK, st)
}

// insight writes a cached success envelope or the mapped failure.
func (a *API) insight(c *gin.Context, data any, err error) {
	if err != nil {
		a.log.WithError(err).WithField("path", c.FullPath()).Warn("insight failed")
		c.JSON(StatusFor(err), errorBody(err))
		return
	}
	c.Header("Cache-Control", insightCacheControl)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// limitParam reads ?limit=, defaulting to 10 and capped at 100.
func limitParam(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultInsightLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		badRequest(c, "limit must be a positive integer")
		return 0, false
	}
	return min(n, maxInsightLimit), true
}

func (a *API) SummaryHandler(c *gin.Context) {
	sum, err := a.deps.Insights.Summary(c.Request.Context())
	a.insight(c, sum, err)
}

func (a *API) RevenueLeadersHandler(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	leaders, err := a.deps.Insights.RevenueLeaders(c.Request.Context(), limit)
	a.insight(c, leaders, err)
}

func (a *API) ProfitabilityHandler(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	margins, err := a.deps.Insights.Profitability(c.Request.Context(), limit)
	a.insight(c, margins, err)
}

// TrendHandler returns revenue and net income growth for :ticker.
func (a *API) TrendHandler(c *gin.Context) {
	trend, err := a.deps.Insights.GrowthTrend(c.Request.Context(), c.Param("ticker"))
	a.insight(c, trend, err)
}

func (a *API) ComparisonHandler(c *gin.Context) {
	avgs, err := a.deps.Insights.Comparison(c.Request.Context())
	a.insight(c, avgs, err)
}
