package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type commentRequest struct {
	Text string `json:"text" binding:"required,max=300"`
}

// handleAddComment appends a comment to a task. Any authenticated user may
// comment.
func (s *Server) handleAddComment(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	comment, err := s.tasks.AddComment(c.Request.Context(), currentUser(c), id, req.Text)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Comment added", "comment": comment})
}

// handleDeleteComment removes one comment by id, author or admin only.
func (s *Server) handleDeleteComment(c *gin.Context) {
	taskID, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	commentID, ok := s.pathID(c, "commentId")
	if !ok {
		return
	}

	if err := s.tasks.DeleteComment(c.Request.Context(), currentUser(c), taskID, commentID); err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Comment deleted"})
}
