package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tasksphere/internal/storage/sqlite"
)

// handleListNotifications returns the authenticated user's notifications,
// most recent first.
func (s *Server) handleListNotifications(c *gin.Context) {
	notifications, err := s.store.ListNotifications(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"count":         len(notifications),
		"notifications": notifications,
	})
}

// handleMarkNotificationRead flips the read flag on one owned notification.
func (s *Server) handleMarkNotificationRead(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}

	notification, err := s.store.MarkNotificationRead(c.Request.Context(), id, currentUser(c).ID)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotificationNotFound) {
			s.respondError(c, http.StatusNotFound, err)
			return
		}
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notification": notification})
}

// handleClearNotifications removes all of the user's notifications.
func (s *Server) handleClearNotifications(c *gin.Context) {
	if err := s.store.ClearNotifications(c.Request.Context(), currentUser(c).ID); err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "All notifications cleared"})
}
