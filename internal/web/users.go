package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/chirpy/internal/authkit"
	"github.com/tyemirov/chirpy/internal/failure"
	"github.com/tyemirov/chirpy/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const eventUserUpgraded = "user.upgraded"

// UserWriter persists account changes.
type UserWriter interface {
	CreateUser(ctx context.Context, email string, hashedPassword string) (authkit.Identity, error)
	UpdateUser(ctx context.Context, userID string, email string, hashedPassword string) (authkit.Identity, error)
	UpgradeUser(ctx context.Context, userID string) error
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type polkaWebhookRequest struct {
	Event string `json:"event"`
	Data  struct {
		UserID string `json:"user_id"`
	} `json:"data"`
}

// HandleCreateUser registers a new account.
func HandleCreateUser(logger *zap.Logger, users UserWriter) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if users == nil {
		panic("user writer is required")
	}

	return func(contextGin *gin.Context) {
		email, hashedPassword, err := bindCredentials(contextGin)
		if err != nil {
			failure.Respond(contextGin, logger, err)
			return
		}
		identity, createErr := users.CreateUser(contextGin.Request.Context(), email, hashedPassword)
		if createErr != nil {
			failure.Respond(contextGin, logger, classifyUserWriteError(createErr))
			return
		}
		logger.Info("user created",
			zap.String("code", "api.users.created"),
			zap.String("user_id", identity.ID))
		contextGin.JSON(http.StatusCreated, authkit.NewUserResponse(identity))
	}
}

// HandleUpdateUser changes the caller's own email and password.
func HandleUpdateUser(logger *zap.Logger, users UserWriter) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if users == nil {
		panic("user writer is required")
	}

	return func(contextGin *gin.Context) {
		userID, ok := authkit.AuthenticatedUserID(contextGin)
		if !ok {
			logger.Warn("missing caller on context",
				zap.String("code", "api.users.update.missing_caller"))
			failure.Respond(contextGin, logger, failure.Unauthorized("invalid or expired token", nil))
			return
		}
		email, hashedPassword, err := bindCredentials(contextGin)
		if err != nil {
			failure.Respond(contextGin, logger, err)
			return
		}
		identity, updateErr := users.UpdateUser(contextGin.Request.Context(), userID, email, hashedPassword)
		if updateErr != nil {
			failure.Respond(contextGin, logger, classifyUserWriteError(updateErr))
			return
		}
		contextGin.JSON(http.StatusOK, authkit.NewUserResponse(identity))
	}
}

// HandlePolkaWebhook upgrades users to Chirpy Red on payment events.
func HandlePolkaWebhook(logger *zap.Logger, policy *authkit.Policy, users UserWriter) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil || users == nil {
		panic("policy and user writer are required")
	}

	return func(contextGin *gin.Context) {
		if err := policy.AuthorizeWebhook(contextGin.Request.Header); err != nil {
			logger.Warn("webhook rejected",
				zap.String("code", "api.polka.webhook.denied"),
				zap.String("kind", failure.KindOf(err).String()))
			failure.Respond(contextGin, logger, err)
			return
		}
		var inbound polkaWebhookRequest
		if err := contextGin.ShouldBindJSON(&inbound); err != nil {
			failure.Respond(contextGin, logger, failure.BadRequest("invalid_json", err))
			return
		}
		if inbound.Event != eventUserUpgraded {
			contextGin.Status(http.StatusNoContent)
			return
		}
		if strings.TrimSpace(inbound.Data.UserID) == "" {
			failure.Respond(contextGin, logger, failure.BadRequest("Missing user_id", nil))
			return
		}
		if err := users.UpgradeUser(contextGin.Request.Context(), inbound.Data.UserID); err != nil {
			if errors.Is(err, authkit.ErrUserNotFound) {
				failure.Respond(contextGin, logger, failure.NotFound("user not found", err))
				return
			}
			failure.Respond(contextGin, logger, failure.Internal(err))
			return
		}
		logger.Info("user upgraded",
			zap.String("code", "api.polka.webhook.upgraded"),
			zap.String("user_id", inbound.Data.UserID))
		contextGin.Status(http.StatusNoContent)
	}
}

func bindCredentials(contextGin *gin.Context) (string, string, error) {
	var inbound credentialsRequest
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		return "", "", failure.BadRequest("invalid_json", err)
	}
	email := strings.TrimSpace(inbound.Email)
	if email == "" || inbound.Password == "" {
		return "", "", failure.BadRequest("Missing required fields", nil)
	}
	hashedPassword, err := authkit.HashPassword(inbound.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", "", failure.BadRequest("password is too long", err)
		}
		return "", "", failure.Internal(err)
	}
	return email, hashedPassword, nil
}

func classifyUserWriteError(err error) error {
	switch {
	case errors.Is(err, storage.ErrEmailTaken):
		return failure.BadRequest("email already in use", err)
	case errors.Is(err, authkit.ErrUserNotFound):
		return failure.NotFound("user not found", err)
	default:
		return failure.Internal(err)
	}
}
