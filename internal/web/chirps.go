package web

import (
	"context"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/chirpy/internal/authkit"
	"github.com/tyemirov/chirpy/internal/failure"
	"github.com/tyemirov/chirpy/internal/storage"
	"go.uber.org/zap"
)

// MaxChirpLength bounds a chirp body in characters.
const MaxChirpLength = 140

const messageChirpTooLong = "Chirp is too long"

// ChirpStore persists chirps.
type ChirpStore interface {
	CreateChirp(ctx context.Context, userID string, body string) (storage.Chirp, error)
	ListChirps(ctx context.Context) ([]storage.Chirp, error)
	GetChirp(ctx context.Context, chirpID string) (storage.Chirp, error)
	DeleteChirp(ctx context.Context, chirpID string) error
}

type chirpResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Body      string    `json:"body"`
	UserID    string    `json:"user_id"`
}

func newChirpResponse(chirp storage.Chirp) chirpResponse {
	return chirpResponse{
		ID:        chirp.ID,
		CreatedAt: chirp.CreatedAt,
		UpdatedAt: chirp.UpdatedAt,
		Body:      chirp.Body,
		UserID:    chirp.UserID,
	}
}

type chirpRequest struct {
	Body *string `json:"body"`
}

// HandleValidateChirp reports whether a body fits in a chirp.
func HandleValidateChirp(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		if _, err := bindChirpBody(contextGin); err != nil {
			failure.Respond(contextGin, logger, err)
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{"valid": true})
	}
}

// HandleCreateChirp posts a chirp as the authenticated caller.
func HandleCreateChirp(logger *zap.Logger, chirps ChirpStore) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if chirps == nil {
		panic("chirp store is required")
	}
	return func(contextGin *gin.Context) {
		userID, ok := authkit.AuthenticatedUserID(contextGin)
		if !ok {
			failure.Respond(contextGin, logger, failure.Unauthorized("invalid or expired token", nil))
			return
		}
		body, err := bindChirpBody(contextGin)
		if err != nil {
			failure.Respond(contextGin, logger, err)
			return
		}
		chirp, createErr := chirps.CreateChirp(contextGin.Request.Context(), userID, body)
		if createErr != nil {
			failure.Respond(contextGin, logger, failure.Internal(createErr))
			return
		}
		contextGin.JSON(http.StatusCreated, newChirpResponse(chirp))
	}
}

// HandleListChirps returns every chirp, oldest first.
func HandleListChirps(logger *zap.Logger, chirps ChirpStore) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if chirps == nil {
		panic("chirp store is required")
	}
	return func(contextGin *gin.Context) {
		stored, err := chirps.ListChirps(contextGin.Request.Context())
		if err != nil {
			failure.Respond(contextGin, logger, failure.Internal(err))
			return
		}
		payload := make([]chirpResponse, 0, len(stored))
		for _, chirp := range stored {
			payload = append(payload, newChirpResponse(chirp))
		}
		contextGin.JSON(http.StatusOK, payload)
	}
}

// HandleGetChirp returns one chirp by id.
func HandleGetChirp(logger *zap.Logger, chirps ChirpStore) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if chirps == nil {
		panic("chirp store is required")
	}
	return func(contextGin *gin.Context) {
		chirp, err := chirps.GetChirp(contextGin.Request.Context(), contextGin.Param("chirpID"))
		if err != nil {
			failure.Respond(contextGin, logger, classifyChirpLookupError(err))
			return
		}
		contextGin.JSON(http.StatusOK, newChirpResponse(chirp))
	}
}

// HandleDeleteChirp removes a chirp owned by the authenticated caller.
func HandleDeleteChirp(logger *zap.Logger, policy *authkit.Policy, chirps ChirpStore) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil || chirps == nil {
		panic("policy and chirp store are required")
	}
	return func(contextGin *gin.Context) {
		userID, ok := authkit.AuthenticatedUserID(contextGin)
		if !ok {
			failure.Respond(contextGin, logger, failure.Unauthorized("invalid or expired token", nil))
			return
		}
		ctx := contextGin.Request.Context()
		chirp, err := chirps.GetChirp(ctx, contextGin.Param("chirpID"))
		if err != nil {
			failure.Respond(contextGin, logger, classifyChirpLookupError(err))
			return
		}
		if ownerErr := policy.AuthorizeOwner(userID, chirp.UserID); ownerErr != nil {
			logger.Warn("chirp delete forbidden",
				zap.String("code", "api.chirps.delete.forbidden"),
				zap.String("user_id", userID),
				zap.String("chirp_id", chirp.ID))
			failure.Respond(contextGin, logger, ownerErr)
			return
		}
		if deleteErr := chirps.DeleteChirp(ctx, chirp.ID); deleteErr != nil {
			failure.Respond(contextGin, logger, classifyChirpLookupError(deleteErr))
			return
		}
		contextGin.Status(http.StatusNoContent)
	}
}

func bindChirpBody(contextGin *gin.Context) (string, error) {
	var inbound chirpRequest
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		return "", failure.BadRequest("invalid_json", err)
	}
	if inbound.Body == nil {
		return "", failure.BadRequest("Missing required fields", nil)
	}
	if utf8.RuneCountInString(*inbound.Body) > MaxChirpLength {
		return "", failure.BadRequest(messageChirpTooLong, nil)
	}
	return *inbound.Body, nil
}

func classifyChirpLookupError(err error) error {
	if errors.Is(err, storage.ErrChirpNotFound) {
		return failure.NotFound("chirp not found", err)
	}
	return failure.Internal(err)
}
