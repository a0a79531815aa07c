package sqlite

import (
	"context"
	"fmt"

	"tasksphere/internal/models"
)

// CreateNotification persists a new notification for a user.
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications(id, user_id, message, task_id, read, created_at) VALUES(?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Message, n.TaskID, n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications, most recent first.
func (s *Store) ListNotifications(ctx context.Context, userID string) ([]*models.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, message, task_id, read, created_at FROM notifications
         WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.TaskID, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead flips the read flag on a notification owned by the
// given user and returns the updated record.
func (s *Store) MarkNotificationRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotificationNotFound
	}

	var n models.Notification
	err = s.db.QueryRowContext(ctx,
		`SELECT id, user_id, message, task_id, read, created_at FROM notifications WHERE id = ?`, id).
		Scan(&n.ID, &n.UserID, &n.Message, &n.TaskID, &n.Read, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &n, nil
}

// ClearNotifications removes every notification owned by the user.
func (s *Store) ClearNotifications(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}
