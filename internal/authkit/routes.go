package authkit

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/chirpy/internal/failure"
	"go.uber.org/zap"
)

// UserResponse is the public view of a user.
type UserResponse struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Email       string    `json:"email"`
	IsChirpyRed bool      `json:"is_chirpy_red"`
}

// NewUserResponse strips credentials from identity.
func NewUserResponse(identity Identity) UserResponse {
	return UserResponse{
		ID:          identity.ID,
		CreatedAt:   identity.CreatedAt,
		UpdatedAt:   identity.UpdatedAt,
		Email:       identity.Email,
		IsChirpyRed: identity.IsChirpyRed,
	}
}

type loginResponse struct {
	UserResponse
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// MountAuthRoutes registers /api/login, /api/refresh and /api/revoke.
func MountAuthRoutes(router gin.IRouter, policy *Policy, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	router.POST("/api/login", func(contextGin *gin.Context) {
		var inbound struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := contextGin.ShouldBindJSON(&inbound); err != nil {
			failure.Respond(contextGin, logger, failure.BadRequest("invalid_json", err))
			return
		}
		if strings.TrimSpace(inbound.Email) == "" || inbound.Password == "" {
			failure.Respond(contextGin, logger, failure.BadRequest("Missing required fields", nil))
			return
		}

		result, err := policy.Login(contextGin.Request.Context(), inbound.Email, inbound.Password)
		if err != nil {
			logger.Info("login rejected",
				zap.String("code", "auth.login.failure"),
				zap.String("kind", failure.KindOf(err).String()))
			failure.Respond(contextGin, logger, err)
			return
		}

		contextGin.JSON(http.StatusOK, loginResponse{
			UserResponse: NewUserResponse(result.Identity),
			Token:        result.AccessToken,
			RefreshToken: result.RefreshToken,
		})
	})

	router.POST("/api/refresh", func(contextGin *gin.Context) {
		accessToken, err := policy.Refresh(contextGin.Request.Context(), contextGin.Request.Header)
		if err != nil {
			logger.Info("refresh rejected",
				zap.String("code", "auth.refresh.failure"),
				zap.String("kind", failure.KindOf(err).String()))
			failure.Respond(contextGin, logger, err)
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{"token": accessToken})
	})

	router.POST("/api/revoke", func(contextGin *gin.Context) {
		if err := policy.Revoke(contextGin.Request.Context(), contextGin.Request.Header); err != nil {
			logger.Info("revoke rejected",
				zap.String("code", "auth.revoke.failure"),
				zap.String("kind", failure.KindOf(err).String()))
			failure.Respond(contextGin, logger, err)
			return
		}
		contextGin.Status(http.StatusNoContent)
	})
}
