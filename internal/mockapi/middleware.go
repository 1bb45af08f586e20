package mockapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const ctxUsername = "username"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Debug()
		if status >= 500 {
			event = log.Error()
		} else if status >= 400 {
			event = log.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("request_id", c.Writer.Header().Get(requestIDHeader)).
			Msg("mock api request")
	}
}

func (s *Server) requireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		forced := s.rejectNext > 0
		if forced {
			s.rejectNext--
		}
		s.mu.Unlock()
		if forced {
			unauthorized(c, "Given token not valid for any token type")
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			unauthorized(c, "Authentication credentials were not provided.")
			return
		}
		username, err := s.verifyAccess(token)
		if err != nil {
			unauthorized(c, "Given token not valid for any token type")
			return
		}
		c.Set(ctxUsername, username)
		c.Next()
	}
}

func unauthorized(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
}
