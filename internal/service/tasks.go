package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tasksphere/internal/models"
	"tasksphere/internal/policy"
	"tasksphere/internal/storage/sqlite"
)

// CreateTaskInput carries the fields a client may set on a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     *time.Time
	AssignedTo  string
}

// TaskPatch is a partial update: nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *models.Status
	DueDate     *time.Time
	AssignedTo  *string
}

// Create persists a new task owned by the actor and fans out the creation
// side effects: one audit record, plus an assignment notification when the
// task starts out assigned.
func (s *TaskService) Create(ctx context.Context, actor *models.User, in CreateTaskInput) (*models.Task, error) {
	if in.Title == "" {
		return nil, ErrTitleRequired
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:          uuid.New().String(),
		Title:       in.Title,
		Description: in.Description,
		Status:      models.StatusPending,
		DueDate:     in.DueDate,
		AssignedTo:  in.AssignedTo,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, task.ID, actor.ID, "Task Created", fmt.Sprintf("Task %q created", task.Title))
	if task.AssignedTo != "" {
		s.notifier.Notify(ctx, task.AssignedTo,
			fmt.Sprintf("You have been assigned a new task: %s", task.Title), task.ID)
	}
	return task, nil
}

// Get loads one task with its attachments and comments.
func (s *TaskService) Get(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.store.GetTaskByID(ctx, id)
	if errors.Is(err, sqlite.ErrTaskNotFound) {
		return nil, ErrNotFound
	}
	return task, err
}

// List returns a page of tasks matching the filter plus the total count.
func (s *TaskService) List(ctx context.Context, f sqlite.TaskFilter) ([]*models.Task, int, error) {
	return s.store.ListTasks(ctx, f)
}

// ListAssignedTo returns every task currently assigned to the user.
func (s *TaskService) ListAssignedTo(ctx context.Context, userID string) ([]*models.Task, error) {
	return s.store.ListTasksAssignedTo(ctx, userID)
}

// Update applies a partial patch under the creator-or-assignee rule, then
// walks the five tracked fields in a fixed order — status, assignee, due
// date, title, description — comparing each against the pre-patch snapshot
// and emitting one audit record per field that actually changed. Status and
// due-date changes additionally notify the assignee when one is set; an
// assignee change alone notifies nobody.
func (s *TaskService) Update(ctx context.Context, actor *models.User, taskID string, patch TaskPatch) (*models.Task, error) {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutateTask(actor, task) {
		return nil, ErrForbidden
	}

	old := struct {
		status     models.Status
		assignedTo string
		dueDate    string
		title      string
		desc       string
	}{task.Status, task.AssignedTo, formatDue(task.DueDate), task.Title, task.Description}

	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.DueDate != nil {
		task.DueDate = patch.DueDate
	}
	if patch.AssignedTo != nil {
		task.AssignedTo = *patch.AssignedTo
	}
	task.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}

	if old.status != task.Status {
		s.activity.Record(ctx, task.ID, actor.ID, "Status Updated",
			fmt.Sprintf("%s → %s", old.status, task.Status))
		if task.AssignedTo != "" {
			s.notifier.Notify(ctx, task.AssignedTo,
				fmt.Sprintf("Task %q status changed to %s", task.Title, task.Status), task.ID)
		}
	}
	if old.assignedTo != task.AssignedTo {
		s.activity.Record(ctx, task.ID, actor.ID, "Assigned Changed",
			fmt.Sprintf("%s → %s", orDefault(old.assignedTo, "unassigned"), orDefault(task.AssignedTo, "unassigned")))
	}
	if newDue := formatDue(task.DueDate); old.dueDate != newDue {
		s.activity.Record(ctx, task.ID, actor.ID, "DueDate Updated",
			fmt.Sprintf("%s → %s", orDefault(old.dueDate, "none"), orDefault(newDue, "none")))
		if task.AssignedTo != "" {
			s.notifier.Notify(ctx, task.AssignedTo,
				fmt.Sprintf("Task %q due date updated", task.Title), task.ID)
		}
	}
	if old.title != task.Title {
		s.activity.Record(ctx, task.ID, actor.ID, "Title Updated", "Title changed")
	}
	if old.desc != task.Description {
		s.activity.Record(ctx, task.ID, actor.ID, "Description Updated", "Description changed")
	}

	return task, nil
}

// Delete removes a task. Only the creator may delete; the audit record is
// written after the row is gone.
func (s *TaskService) Delete(ctx context.Context, actor *models.User, taskID string) error {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if !policy.CanDeleteTask(actor, task) {
		return ErrForbidden
	}

	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	s.activity.Record(ctx, taskID, actor.ID, "Task Deleted", fmt.Sprintf("Task %q deleted", task.Title))
	return nil
}

// AddAttachment appends an uploaded file's web path to the task and notifies
// the creator and the assignee, whichever of them is not the actor.
func (s *TaskService) AddAttachment(ctx context.Context, actor *models.User, taskID, filename, webPath string) (*models.Task, error) {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutateTask(actor, task) {
		return nil, ErrForbidden
	}

	if err := s.store.AddAttachment(ctx, taskID, webPath); err != nil {
		return nil, err
	}
	task.Attachments = append(task.Attachments, webPath)

	s.activity.Record(ctx, taskID, actor.ID, "File Uploaded", filename)
	message := fmt.Sprintf("A file was uploaded to task %q", task.Title)
	if task.CreatedBy != actor.ID {
		s.notifier.Notify(ctx, task.CreatedBy, message, taskID)
	}
	if task.AssignedTo != "" && task.AssignedTo != actor.ID {
		s.notifier.Notify(ctx, task.AssignedTo, message, taskID)
	}
	return task, nil
}

// AddComment appends a comment to the task. Any authenticated user may
// comment; there is deliberately no ownership check here.
func (s *TaskService) AddComment(ctx context.Context, actor *models.User, taskID, text string) (*models.Comment, error) {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ID:        uuid.New().String(),
		User:      actor.ID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AddComment(ctx, taskID, comment); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, taskID, actor.ID, "Comment Added", text)
	if task.CreatedBy != actor.ID {
		s.notifier.Notify(ctx, task.CreatedBy,
			fmt.Sprintf("New comment on your task %q", task.Title), taskID)
	}
	if task.AssignedTo != "" && task.AssignedTo != actor.ID {
		s.notifier.Notify(ctx, task.AssignedTo,
			fmt.Sprintf("New comment on task %q", task.Title), taskID)
	}
	return comment, nil
}

// DeleteComment removes one comment by id under the author-or-admin rule.
func (s *TaskService) DeleteComment(ctx context.Context, actor *models.User, taskID, commentID string) error {
	comment, err := s.store.GetComment(ctx, taskID, commentID)
	if errors.Is(err, sqlite.ErrCommentNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !policy.CanDeleteComment(actor, comment) {
		return ErrForbidden
	}

	if err := s.store.DeleteComment(ctx, taskID, commentID); err != nil {
		if errors.Is(err, sqlite.ErrCommentNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.activity.Record(ctx, taskID, actor.ID, "Comment Deleted", comment.Text)
	return nil
}

// formatDue renders a due date for change detection; RFC3339 keeps the
// comparison stable across loads.
func formatDue(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
