package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tasksphere/internal/models"
)

const taskColumns = `id, title, description, status, due_date, assigned_to, created_by, created_at, updated_at`

// TaskFilter narrows down a task listing. Zero values mean "no restriction".
type TaskFilter struct {
	Status  models.Status
	Title   string     // case-insensitive substring match
	DueDate *time.Time // matched by calendar day
	Page    int
	Limit   int
}

// CreateTask persists a new task row. Attachments and comments start empty
// and live in their own tables.
func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(`+taskColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, t.Status, nullableTime(t.DueDate),
		t.AssignedTo, t.CreatedBy, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTaskByID retrieves a task together with its attachments and comments.
func (s *Store) GetTaskByID(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, err
	}

	if t.Attachments, err = s.listAttachments(ctx, id); err != nil {
		return nil, err
	}
	if t.Comments, err = s.ListComments(ctx, id); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTasks returns a page of tasks matching the filter plus the total number
// of matches, newest first.
func (s *Store) ListTasks(ctx context.Context, f TaskFilter) ([]*models.Task, int, error) {
	var conds []string
	var args []any
	if f.Status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, f.Status)
	}
	if f.Title != "" {
		// SQLite LIKE is case-insensitive for ASCII, matching the search intent.
		conds = append(conds, `title LIKE ?`)
		args = append(args, "%"+f.Title+"%")
	}
	if f.DueDate != nil {
		conds = append(conds, `date(due_date) = date(?)`)
		args = append(args, f.DueDate.UTC())
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = 10
	}

	query := `SELECT ` + taskColumns + ` FROM tasks` + where + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := collectTasks(rows)
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// ListTasksAssignedTo returns all tasks assigned to the given user.
func (s *Store) ListTasksAssignedTo(ctx context.Context, userID string) ([]*models.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE assigned_to = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list assigned tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// UpdateTask writes back all mutable fields of an already loaded task.
func (s *Store) UpdateTask(ctx context.Context, t *models.Task) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, status = ?, due_date = ?, assigned_to = ?, updated_at = ? WHERE id = ?`,
		t.Title, t.Description, t.Status, nullableTime(t.DueDate), t.AssignedTo, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// DeleteTask removes a task; attachments and comments cascade.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// AddAttachment appends a stored file path to the task's attachment list.
func (s *Store) AddAttachment(ctx context.Context, taskID, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_attachments(task_id, path) VALUES(?, ?)`, taskID, path)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

// listAttachments returns attachment paths in upload order.
func (s *Store) listAttachments(ctx context.Context, taskID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM task_attachments WHERE task_id = ? ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func scanTask(row *sql.Row) (*models.Task, error) {
	var t models.Task
	var due sql.NullTime
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &due,
		&t.AssignedTo, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	return &t, nil
}

func collectTasks(rows *sql.Rows) ([]*models.Task, error) {
	var tasks []*models.Task
	for rows.Next() {
		var t models.Task
		var due sql.NullTime
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &due,
			&t.AssignedTo, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if due.Valid {
			d := due.Time
			t.DueDate = &d
		}
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
