package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tasksphere/internal/models"
	"tasksphere/internal/service"
	"tasksphere/internal/storage/sqlite"
)

type createTaskRequest struct {
	Title       string     `json:"title" binding:"required,min=3,max=100"`
	Description string     `json:"description" binding:"max=500"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  string     `json:"assigned_to"`
}

type updateTaskRequest struct {
	Title       *string        `json:"title" binding:"omitempty,min=3,max=100"`
	Description *string        `json:"description" binding:"omitempty,max=500"`
	Status      *models.Status `json:"status" binding:"omitempty,oneof=pending in-progress completed"`
	DueDate     *time.Time     `json:"due_date"`
	AssignedTo  *string        `json:"assigned_to"`
}

// handleCreateTask creates a task owned by the authenticated user.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.AssignedTo != "" {
		if _, err := uuid.Parse(req.AssignedTo); err != nil {
			s.respondError(c, http.StatusBadRequest, errors.New("assigned_to must be a valid user id"))
			return
		}
	}

	task, err := s.tasks.Create(c.Request.Context(), currentUser(c), service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "task": task})
}

// handleListTasks lists tasks with optional status, title and due-date
// filters plus page/limit pagination.
func (s *Server) handleListTasks(c *gin.Context) {
	filter := sqlite.TaskFilter{
		Title: c.Query("title"),
		Page:  intQuery(c, "page", 1),
		Limit: intQuery(c, "limit", 10),
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	if raw := c.Query("status"); raw != "" {
		status := models.Status(raw)
		if !status.Valid() {
			s.respondError(c, http.StatusBadRequest, errors.New("status must be pending, in-progress, or completed"))
			return
		}
		filter.Status = status
	}
	if raw := c.Query("due_date"); raw != "" {
		due, err := parseDate(raw)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, errors.New("due_date must be a valid date"))
			return
		}
		filter.DueDate = &due
	}

	tasks, total, err := s.tasks.List(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	pages := (total + filter.Limit - 1) / filter.Limit
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"total":   total,
		"page":    filter.Page,
		"pages":   pages,
		"tasks":   tasks,
	})
}

// handleGetTask returns a single task with attachments and comments.
func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}

	task, err := s.tasks.Get(c.Request.Context(), id)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

// handleUpdateTask applies a partial update through the mutation pipeline.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.AssignedTo != nil && *req.AssignedTo != "" {
		if _, err := uuid.Parse(*req.AssignedTo); err != nil {
			s.respondError(c, http.StatusBadRequest, errors.New("assigned_to must be a valid user id"))
			return
		}
	}

	task, err := s.tasks.Update(c.Request.Context(), currentUser(c), id, service.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

// handleDeleteTask removes a task, creator only.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}

	if err := s.tasks.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task deleted successfully"})
}

// handleAssignedTasks lists the tasks assigned to the authenticated user.
func (s *Server) handleAssignedTasks(c *gin.Context) {
	tasks, err := s.tasks.ListAssignedTo(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(tasks), "tasks": tasks})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
