// Package service implements the task mutation pipeline: every write to a
// task flows through here so that audit records and notifications are
// produced consistently, in a fixed order, after the primary write.
package service

import (
	"errors"
	"log/slog"

	"tasksphere/internal/storage/sqlite"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the actor is not allowed to perform
	// the operation.
	ErrForbidden = errors.New("not authorized")
	// ErrTitleRequired is returned when a task is created without a title.
	ErrTitleRequired = errors.New("title is required")
)

// TaskService orchestrates task mutations together with their side effects.
// Activity and notification writes are best-effort: they run after the
// primary write and their failure never fails the operation.
type TaskService struct {
	store    *sqlite.Store
	activity *ActivityLogger
	notifier *Notifier
	logger   *slog.Logger
}

// NewTaskService wires the pipeline. Logger defaults to slog.Default.
func NewTaskService(store *sqlite.Store, activity *ActivityLogger, notifier *Notifier, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{store: store, activity: activity, notifier: notifier, logger: logger}
}
