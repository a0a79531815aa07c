// Package policy holds the pure authorization predicates for tasks and
// comments. Keeping them in one place keeps the ownership rules testable
// in isolation instead of scattered through handlers.
package policy

import "tasksphere/internal/models"

// CanMutateTask reports whether the actor may update or attach files to the
// task: the creator always can, the assignee can while assigned.
func CanMutateTask(actor *models.User, task *models.Task) bool {
	if actor.ID == task.CreatedBy {
		return true
	}
	return task.AssignedTo != "" && actor.ID == task.AssignedTo
}

// CanDeleteTask reports whether the actor may delete the task. Only the
// creator can; an assignee cannot.
func CanDeleteTask(actor *models.User, task *models.Task) bool {
	return actor.ID == task.CreatedBy
}

// CanDeleteComment reports whether the actor may delete the comment: its
// author, or an admin.
func CanDeleteComment(actor *models.User, comment *models.Comment) bool {
	return actor.ID == comment.User || actor.Role == models.RoleAdmin
}

// CanListUsers reports whether the actor may view the full user directory.
func CanListUsers(actor *models.User) bool {
	return actor.Role == models.RoleAdmin
}
