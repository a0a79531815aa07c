package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tasksphere/internal/models"
)

// AddComment appends a comment to a task.
func (s *Store) AddComment(ctx context.Context, taskID string, c *models.Comment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_comments(id, task_id, user_id, text, created_at) VALUES(?, ?, ?, ?, ?)`,
		c.ID, taskID, c.User, c.Text, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// GetComment fetches one comment of a task by id.
func (s *Store) GetComment(ctx context.Context, taskID, commentID string) (*models.Comment, error) {
	var c models.Comment
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, text, created_at FROM task_comments WHERE task_id = ? AND id = ?`,
		taskID, commentID).
		Scan(&c.ID, &c.User, &c.Text, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &c, nil
}

// ListComments returns a task's comments in creation order.
func (s *Store) ListComments(ctx context.Context, taskID string) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, text, created_at FROM task_comments WHERE task_id = ? ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.User, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// DeleteComment removes one comment from a task by id.
func (s *Store) DeleteComment(ctx context.Context, taskID, commentID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM task_comments WHERE task_id = ? AND id = ?`, taskID, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCommentNotFound
	}
	return nil
}
