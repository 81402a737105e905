// Package middleware carries the gin middleware shared by the API routes.
package middleware

import (
	"go.uber.org/zap"

	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/manager"
)

// SubjectKey is the gin context key holding the authenticated user id.
const SubjectKey = "subject"

type Middleware struct {
	logger         *zap.SugaredLogger
	jwtManager     manager.JWTManager
	internalSecret string
}

func NewMiddleware(logger *zap.SugaredLogger, jwtManager manager.JWTManager, internalSecret string) *Middleware {
	return &Middleware{
		logger:         logger,
		jwtManager:     jwtManager,
		internalSecret: internalSecret,
	}
}
