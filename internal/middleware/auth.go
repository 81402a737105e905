package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/dto"
)

var unauthorizedError = &dto.Error{Error: "unauthorized"}

// RequireAuth verifies the bearer token and stores its subject in the
// request context.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authorizationHeader := c.GetHeader("Authorization")
		if authorizationHeader == "" {
			m.logger.Debug("Authorization header is missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorizedError)
			return
		}

		parts := strings.Split(authorizationHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.logger.Debug("Authorization header is invalid")
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorizedError)
			return
		}

		subject, err := m.jwtManager.Verify(parts[1])
		if err != nil {
			m.logger.Debugf("Error in jwtManager.Verify: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorizedError)
			return
		}

		c.Set(SubjectKey, subject)
		c.Next()
	}
}

// RequireInternalSecret gates routes reserved for trusted internal callers.
// This is deliberately independent of user authentication: an authenticated
// technician must not be able to push-notify other users.
func (m *Middleware) RequireInternalSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("x-internal-secret")
		if m.internalSecret == "" || provided == "" ||
			subtle.ConstantTimeCompare([]byte(provided), []byte(m.internalSecret)) != 1 {
			m.logger.Warn("rejected call with missing or wrong internal secret")
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorizedError)
			return
		}
		c.Next()
	}
}
