// Package queue runs questions in the background and tracks their status.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"FinSight/internal/fault"
	"FinSight/internal/logger"
	"FinSight/internal/model"
)

// Asker answers one question.
type Asker interface {
	Ask(ctx context.Context, question string) (model.Answer, error)
}

// Queue executes submitted questions on at most maxConcurrent workers.
type Queue struct {
	store Store
	asker Asker
	sem   chan struct{}
	now   func() time.Time
	log   *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(store Store, asker Asker, maxConcurrent int) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		store:  store,
		asker:  asker,
		sem:    make(chan struct{}, maxConcurrent),
		now:    time.Now,
		log:    logger.WithComponent("queue"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit records a pending task and starts it in the background.
func (q *Queue) Submit(ctx context.Context, question string) (model.Task, error) {
	if q.ctx.Err() != nil {
		return model.Task{}, errors.New("queue is closed")
	}
	task := model.Task{
		ID:        uuid.New().String(),
		Question:  question,
		Status:    model.TaskPending,
		CreatedAt: q.now().UTC(),
	}
	if err := q.store.Save(ctx, task); err != nil {
		return model.Task{}, err
	}

	q.wg.Add(1)
	go q.run(task)

	q.log.WithField("task_id", task.ID).Info("task submitted")
	return task, nil
}

func (q *Queue) run(task model.Task) {
	defer q.wg.Done()
	entry := q.log.WithField("task_id", task.ID)

	select {
	case q.sem <- struct{}{}:
		defer func() { <-q.sem }()
	case <-q.ctx.Done():
		q.finish(entry, task, model.Answer{}, fmt.Errorf("queue closed before start: %w", q.ctx.Err()))
		return
	}

	started := q.now().UTC()
	task.Status = model.TaskRunning
	task.StartedAt = &started
	if err := q.store.Save(q.ctx, task); err != nil {
		entry.WithError(err).Warn("save running state")
	}
	entry.Debug("task started")

	ans, err := q.ask(task.Question)
	q.finish(entry, task, ans, err)
}

func (q *Queue) ask(question string) (ans model.Answer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return q.asker.Ask(q.ctx, question)
}

func (q *Queue) finish(entry *logrus.Entry, task model.Task, ans model.Answer, err error) {
	done := q.now().UTC()
	task.CompletedAt = &done
	if err != nil {
		task.Status = model.TaskFailed
		task.Error = &model.TaskError{Code: fault.Code(err), Message: fault.Message(err)}
		entry.WithField("error", task.Error.Code).Warn("task failed")
	} else {
		task.Status = model.TaskCompleted
		task.Result = &ans
		entry.WithField("evidence", len(ans.Evidence)).Info("task completed")
	}
	// q.ctx is already cancelled when Close interrupts a task.
	if serr := q.store.Save(context.Background(), task); serr != nil {
		entry.WithError(serr).Error("save task outcome")
	}
}

// Get returns the task with id or ErrTaskNotFound.
func (q *Queue) Get(ctx context.Context, id string) (model.Task, error) {
	return q.store.Load(ctx, id)
}

// Stats counts stored tasks by status.
func (q *Queue) Stats(ctx context.Context) (model.QueueStats, error) {
	tasks, err := q.store.List(ctx)
	if err != nil {
		return model.QueueStats{}, err
	}
	st := model.QueueStats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case model.TaskPending:
			st.Pending++
		case model.TaskRunning:
			st.Running++
		case model.TaskCompleted:
			st.Completed++
		case model.TaskFailed:
			st.Failed++
		}
	}
	return st, nil
}

// ClearCompleted removes finished tasks that completed more than maxAge ago
// and returns how many were removed.
func (q *Queue) ClearCompleted(ctx context.Context, maxAge time.Duration) (int, error) {
	tasks, err := q.store.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := q.now().UTC().Add(-maxAge)
	var stale []string
	for _, t := range tasks {
		if t.Status.Finished() && t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			stale = append(stale, t.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := q.store.Delete(ctx, stale...); err != nil {
		return 0, err
	}
	q.log.WithField("removed", len(stale)).Info("cleared finished tasks")
	return len(stale), nil
}

// Close cancels running tasks and waits for every worker to exit.
func (q *Queue) Close() {
	q.cancel()
	q.wg.Wait()
}
