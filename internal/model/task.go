package model

import "time"

// TaskStatus is the lifecycle state of an async task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Finished reports whether the task reached a terminal state.
func (s TaskStatus) Finished() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Answer is the routed evidence for one question.
type Answer struct {
	Route    RouteDecision  `json:"route"`
	Evidence []EvidenceItem `json:"evidence"`
}

// TaskError is the wire form of a failed task.
type TaskError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

// Task is a queued question.
type Task struct {
	ID          string     `json:"task_id"`
	Question    string     `json:"question"`
	Status      TaskStatus `json:"status"`
	Result      *Answer    `json:"result,omitempty"`
	Error       *TaskError `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
