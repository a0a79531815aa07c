package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleTaskActivity returns a task's audit trail, most recent first.
func (s *Server) handleTaskActivity(c *gin.Context) {
	taskID, ok := s.pathID(c, "taskId")
	if !ok {
		return
	}

	logs, err := s.store.ListTaskActivity(c.Request.Context(), taskID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(logs), "logs": logs})
}

// handleMyActivity returns every change made by the authenticated user.
func (s *Server) handleMyActivity(c *gin.Context) {
	logs, err := s.store.ListUserActivity(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(logs), "logs": logs})
}
