package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tasksphere/internal/models"
	"tasksphere/internal/storage/sqlite"
)

// Notifier creates pull-based notifications for users. Delivery is
// best-effort: a failed write is logged and swallowed. Duplicate
// notifications for the same logical event are acceptable, e.g. a status
// and a due-date change in one update each notify the assignee.
type Notifier struct {
	store  *sqlite.Store
	logger *slog.Logger
}

// NewNotifier creates a Notifier backed by the given store.
func NewNotifier(store *sqlite.Store, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{store: store, logger: logger}
}

// Notify appends one notification for the recipient. taskID may be empty.
func (n *Notifier) Notify(ctx context.Context, recipientID, message, taskID string) {
	notification := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    recipientID,
		Message:   message,
		TaskID:    taskID,
		CreatedAt: time.Now().UTC(),
	}
	if err := n.store.CreateNotification(ctx, notification); err != nil {
		n.logger.Warn("failed to notify user",
			"user_id", recipientID, "task_id", taskID, "error", err)
	}
}
