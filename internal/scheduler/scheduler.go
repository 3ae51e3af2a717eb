package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"FinSight/internal/logger"
	"FinSight/internal/model"
)

// TaskCleaner drops finished async tasks.
type TaskCleaner interface {
	ClearCompleted(ctx context.Context, maxAge time.Duration) (int, error)
}

// HealthSource reports structured store coverage.
type HealthSource interface {
	Health(ctx context.Context) (model.DataHealth, error)
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron    *cron.Cron
	Tasks   TaskCleaner
	Data    HealthSource
	MaxAge  time.Duration
	Ctx     context.Context
	Timeout time.Duration

	log *logrus.Entry
}

// NewScheduler creates a Scheduler with seconds-precision cron specs.
func NewScheduler(ctx context.Context, tasks TaskCleaner, data HealthSource, maxAge time.Duration) *Scheduler {
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds()),
		Tasks:   tasks,
		Data:    data,
		MaxAge:  maxAge,
		Ctx:     ctx,
		Timeout: 30 * time.Second,
		log:     logger.WithComponent("scheduler"),
	}
}

// RegisterAll registers the task clean-up and data-health jobs.
func (s *Scheduler) RegisterAll(cleanupCron, healthCron string) error {
	if _, err := s.Cron.AddFunc(cleanupCron, s.cleanupTask); err != nil {
		return fmt.Errorf("register cleanup task: %w", err)
	}
	if _, err := s.Cron.AddFunc(healthCron, s.healthTask); err != nil {
		return fmt.Errorf("register health task: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunHealthNow logs a data-health snapshot immediately.
func (s *Scheduler) RunHealthNow() {
	s.healthTask()
}

func (s *Scheduler) cleanupTask() {
	ctx, cancel := context.WithTimeout(s.Ctx, s.Timeout)
	defer cancel()

	n, err := s.Tasks.ClearCompleted(ctx, s.MaxAge)
	if err != nil {
		s.log.WithError(err).Error("clear finished tasks")
		return
	}
	s.log.WithField("removed", n).Debug("cleanup task done")
}

func (s *Scheduler) healthTask() {
	ctx, cancel := context.WithTimeout(s.Ctx, s.Timeout)
	defer cancel()

	h, err := s.Data.Health(ctx)
	if err != nil {
		s.log.WithError(err).Error("data health check")
		return
	}
	fields := logrus.Fields{
		"companies":   h.Companies,
		"metric_rows": h.MetricRows,
	}
	var empty []string
	for _, c := range h.Coverage {
		fields["coverage_"+c.Metric] = c.NonNull
		if c.NonNull == 0 {
			empty = append(empty, c.Metric)
		}
	}
	entry := s.log.WithFields(fields)
	if h.Companies == 0 || len(empty) > 0 {
		entry.WithField("empty_metrics", empty).Warn("data health degraded")
		return
	}
	entry.Info("data health")
}
