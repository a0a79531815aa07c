package server

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tasksphere/internal/auth"
	"tasksphere/internal/service"
	"tasksphere/internal/storage/sqlite"
)

// Config carries the collaborators the HTTP layer is built from.
type Config struct {
	Store          *sqlite.Store
	Tasks          *service.TaskService
	Tokens         *auth.TokenManager
	Logger         *slog.Logger
	UploadDir      string
	AllowedOrigins []string
}

// Server provides the HTTP boundary of the task API.
type Server struct {
	engine    *gin.Engine
	store     *sqlite.Store
	tasks     *service.TaskService
	tokens    *auth.TokenManager
	hasher    *auth.PasswordHasher
	logger    *slog.Logger
	uploadDir string
	started   time.Time
}

// New constructs the HTTP server with routes and middleware configured.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	if cfg.UploadDir != "" {
		if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
			return nil, err
		}
	}

	srv := &Server{
		engine:    router,
		store:     cfg.Store,
		tasks:     cfg.Tasks,
		tokens:    cfg.Tokens,
		hasher:    auth.NewPasswordHasher(),
		logger:    logger,
		uploadDir: cfg.UploadDir,
		started:   time.Now(),
	}

	srv.registerRoutes()
	return srv, nil
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	api.GET("/health", s.handleHealth)

	authLimiter := newRateLimiter(10, time.Minute)
	users := api.Group("/users")
	{
		users.POST("/register", authLimiter.middleware(), s.handleRegister)
		users.POST("/login", authLimiter.middleware(), s.handleLogin)
		users.GET("/me", s.requireAuth(), s.handleMe)
		users.GET("", s.requireAuth(), s.handleListUsers)
	}

	tasks := api.Group("/tasks", s.requireAuth())
	{
		tasks.POST("", s.handleCreateTask)
		tasks.GET("", s.handleListTasks)
		tasks.GET("/me/assigned", s.handleAssignedTasks)
		tasks.GET("/:id", s.handleGetTask)
		tasks.PUT("/:id", s.handleUpdateTask)
		tasks.DELETE("/:id", s.handleDeleteTask)
		tasks.POST("/:id/upload", s.handleUploadAttachment)
		tasks.POST("/:id/comment", s.handleAddComment)
		tasks.DELETE("/:id/comment/:commentId", s.handleDeleteComment)
	}

	activity := api.Group("/activity", s.requireAuth())
	{
		activity.GET("/task/:taskId", s.handleTaskActivity)
		activity.GET("/me", s.handleMyActivity)
	}

	notifications := api.Group("/notifications", s.requireAuth())
	{
		notifications.GET("", s.handleListNotifications)
		notifications.PUT("/:id/read", s.handleMarkNotificationRead)
		notifications.DELETE("/clear", s.handleClearNotifications)
	}

	if s.uploadDir != "" {
		s.engine.Static("/uploads", s.uploadDir)
	}
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"uptime":    time.Since(s.started).Seconds(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// pathID validates a UUID path parameter before it reaches the store.
func (s *Server) pathID(c *gin.Context, name string) (string, bool) {
	raw := c.Param(name)
	if _, err := uuid.Parse(raw); err != nil {
		s.respondError(c, http.StatusBadRequest, errors.New("invalid identifier"))
		return "", false
	}
	return raw, true
}

// respondError logs the error and returns the JSON envelope.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if err != nil && status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err.Error())
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": err.Error()})
}

// respondServiceError maps pipeline errors onto HTTP statuses.
func (s *Server) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		s.respondError(c, http.StatusNotFound, err)
	case errors.Is(err, service.ErrForbidden):
		s.respondError(c, http.StatusForbidden, err)
	case errors.Is(err, service.ErrTitleRequired):
		s.respondError(c, http.StatusBadRequest, err)
	default:
		s.respondError(c, http.StatusInternalServerError, err)
	}
}
