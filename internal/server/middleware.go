package server

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"tasksphere/internal/models"
)

const contextUserKey = "current_user"

// requireAuth validates the bearer token and loads the authenticated user
// into the request context. Any failure ends the request with 401.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			s.respondError(c, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		userID, err := s.tokens.Validate(strings.TrimPrefix(header, prefix))
		if err != nil {
			s.respondError(c, http.StatusUnauthorized, err)
			return
		}

		user, err := s.store.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			s.respondError(c, http.StatusUnauthorized, errors.New("unknown user"))
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

// currentUser returns the user loaded by requireAuth.
func currentUser(c *gin.Context) *models.User {
	v, _ := c.Get(contextUserKey)
	user, _ := v.(*models.User)
	return user
}

// rateLimiter is a fixed-window in-memory limiter keyed by client IP,
// used on the credential endpoints.
type rateLimiter struct {
	attempts map[string]int
	limit    int
	window   time.Duration
	mu       sync.Mutex
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		attempts: make(map[string]int),
		limit:    limit,
		window:   window,
	}
	go rl.cleanup()
	return rl
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.attempts[ip] >= rl.limit {
		return false
	}
	rl.attempts[ip]++
	return true
}

// reset the attempts map every window duration
func (rl *rateLimiter) cleanup() {
	for range time.Tick(rl.window) {
		rl.mu.Lock()
		rl.attempts = make(map[string]int)
		rl.mu.Unlock()
	}
}

func (rl *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				gin.H{"success": false, "message": "too many attempts, please try again later"})
			return
		}
		c.Next()
	}
}
