package web

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/chirpy/internal/authkit"
	"github.com/tyemirov/chirpy/internal/failure"
	"go.uber.org/zap"
)

// UserPurger wipes all accounts.
type UserPurger interface {
	DeleteAllUsers(ctx context.Context) error
}

// HandleHealthz answers readiness probes.
func HandleHealthz(contextGin *gin.Context) {
	contextGin.Data(http.StatusOK, "text/plain; charset=utf-8", []byte("OK"))
}

// HandleReset deletes every user; only the dev platform allows it.
func HandleReset(logger *zap.Logger, policy *authkit.Policy, users UserPurger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil || users == nil {
		panic("policy and user purger are required")
	}
	return func(contextGin *gin.Context) {
		if err := policy.AuthorizeDevPlatform(); err != nil {
			logger.Warn("reset refused",
				zap.String("code", "admin.reset.forbidden"))
			failure.Respond(contextGin, logger, err)
			return
		}
		if err := users.DeleteAllUsers(contextGin.Request.Context()); err != nil {
			failure.Respond(contextGin, logger, failure.Internal(err))
			return
		}
		logger.Info("all users deleted", zap.String("code", "admin.reset.done"))
		contextGin.Data(http.StatusOK, "text/plain; charset=utf-8", []byte("Reset OK"))
	}
}
