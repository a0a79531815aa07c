package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tasksphere/internal/models"
	"tasksphere/internal/storage/sqlite"
)

// ActivityLogger appends audit records for task changes. Record never
// returns an error: a failed write is reported to operators and swallowed
// so that callers can rely on it not aborting the primary mutation.
type ActivityLogger struct {
	store  *sqlite.Store
	logger *slog.Logger
}

// NewActivityLogger creates an ActivityLogger backed by the given store.
func NewActivityLogger(store *sqlite.Store, logger *slog.Logger) *ActivityLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityLogger{store: store, logger: logger}
}

// Record appends one audit record for a task.
func (l *ActivityLogger) Record(ctx context.Context, taskID, actorID, action, details string) {
	entry := &models.ActivityLog{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		UserID:    actorID,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.store.AppendActivity(ctx, entry); err != nil {
		l.logger.Warn("failed to record activity",
			"task_id", taskID, "action", action, "error", err)
	}
}
