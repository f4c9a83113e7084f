package web

import (
	"github.com/gin-gonic/gin"
	"github.com/tyemirov/chirpy/internal/authkit"
	"go.uber.org/zap"
)

// Store is everything the HTTP surface needs from persistence.
type Store interface {
	UserWriter
	UserPurger
	ChirpStore
}

// MountRoutes registers the account, chirp, webhook and admin endpoints.
// Auth endpoints are mounted separately by authkit.MountAuthRoutes.
func MountRoutes(router gin.IRouter, policy *authkit.Policy, store Store, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	requireBearer := authkit.RequireBearer(policy, logger)

	router.GET("/api/healthz", HandleHealthz)
	router.POST("/api/validate_chirp", HandleValidateChirp(logger))

	router.POST("/api/users", HandleCreateUser(logger, store))
	router.PUT("/api/users", requireBearer, HandleUpdateUser(logger, store))

	router.POST("/api/polka/webhooks", HandlePolkaWebhook(logger, policy, store))

	router.POST("/api/chirps", requireBearer, HandleCreateChirp(logger, store))
	router.GET("/api/chirps", HandleListChirps(logger, store))
	router.GET("/api/chirps/:chirpID", HandleGetChirp(logger, store))
	router.DELETE("/api/chirps/:chirpID", requireBearer, HandleDeleteChirp(logger, policy, store))

	router.POST("/admin/reset", HandleReset(logger, policy, store))
}
