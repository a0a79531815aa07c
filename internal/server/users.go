package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tasksphere/internal/models"
	"tasksphere/internal/policy"
	"tasksphere/internal/storage/sqlite"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// handleRegister creates a new account and returns it with a signed token.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := s.store.GetUserByEmail(ctx, req.Email); err == nil {
		s.respondError(c, http.StatusBadRequest, errors.New("user already exists"))
		return
	} else if !errors.Is(err, sqlite.ErrUserNotFound) {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	s.logger.Info("user registered", "email", user.Email)
	c.JSON(http.StatusCreated, gin.H{"success": true, "user": user, "token": token})
}

// handleLogin checks credentials and issues a token. Invalid email and
// invalid password are indistinguishable on purpose.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := s.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil || !s.hasher.Verify(req.Password, user.PasswordHash) {
		s.respondError(c, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	s.logger.Info("user logged in", "email", user.Email)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user, "token": token})
}

// handleMe returns the authenticated user's profile.
func (s *Server) handleMe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "user": currentUser(c)})
}

// handleListUsers returns the full user directory, admins only.
func (s *Server) handleListUsers(c *gin.Context) {
	if !policy.CanListUsers(currentUser(c)) {
		s.respondError(c, http.StatusForbidden, errors.New("admin only"))
		return
	}

	users, err := s.store.ListUsers(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(users), "users": users})
}
