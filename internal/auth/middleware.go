package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	sessionKey = "session"
	userIDKey  = "user_id"
	roleKey    = "user_role"
)

// Middleware authenticates the bearer token and stores the session on the gin context
func Middleware(provider SessionProvider, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var session *Session
			session, err = provider.Authenticate(c.Request.Context(), token)
			if err == nil {
				c.Set(sessionKey, session)
				c.Set(userIDKey, session.UserID)
				c.Set(roleKey, string(session.Role))
				c.Next()
				return
			}
		}

		logger.Warn("Authentication failed",
			"path", c.Request.URL.Path,
			"remote_addr", c.ClientIP(),
			"error", err)

		code := "INVALID_TOKEN"
		if errors.Is(err, ErrMissingToken) {
			code = "MISSING_TOKEN"
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": err.Error(),
			"code":  code,
		})
	}
}

// SessionFromContext returns the session stored by Middleware
func SessionFromContext(c *gin.Context) (*Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*Session)
	return s, ok && s != nil
}

// SetSession stores a session directly, for routes mounted without Middleware
func SetSession(c *gin.Context, s *Session) {
	c.Set(sessionKey, s)
	c.Set(userIDKey, s.UserID)
	c.Set(roleKey, string(s.Role))
}

func bearerToken(header string) (string, error) {
	fields := strings.Fields(header)
	if len(fields) == 0 {
		return "", ErrMissingToken
	}
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", ErrInvalidToken
	}
	token := strings.Trim(fields[1], "\"'")
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
