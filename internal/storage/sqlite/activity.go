package sqlite

import (
	"context"
	"fmt"

	"tasksphere/internal/models"
)

const activityColumns = `id, task_id, user_id, action, details, created_at`

// AppendActivity writes one audit record. Records are never updated or
// deleted afterwards.
func (s *Store) AppendActivity(ctx context.Context, l *models.ActivityLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_logs(`+activityColumns+`) VALUES(?, ?, ?, ?, ?, ?)`,
		l.ID, l.TaskID, l.UserID, l.Action, l.Details, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListTaskActivity returns a task's audit trail, most recent first.
func (s *Store) ListTaskActivity(ctx context.Context, taskID string) ([]*models.ActivityLog, error) {
	return s.listActivity(ctx, `task_id`, taskID)
}

// ListUserActivity returns every change a user made, most recent first.
func (s *Store) ListUserActivity(ctx context.Context, userID string) ([]*models.ActivityLog, error) {
	return s.listActivity(ctx, `user_id`, userID)
}

func (s *Store) listActivity(ctx context.Context, column, value string) ([]*models.ActivityLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+activityColumns+` FROM activity_logs WHERE `+column+` = ? ORDER BY created_at DESC, id DESC`, value)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var logs []*models.ActivityLog
	for rows.Next() {
		var l models.ActivityLog
		if err := rows.Scan(&l.ID, &l.TaskID, &l.UserID, &l.Action, &l.Details, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
