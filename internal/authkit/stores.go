package authkit

import (
	"context"
	"time"
)

// Identity is a Chirpy user as seen by the auth core.
type Identity struct {
	ID             string
	Email          string
	HashedPassword string
	IsChirpyRed    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserStore looks up users for credential checks.
type UserStore interface {
	// FindUserByEmail returns ErrUserNotFound when no user owns the email.
	FindUserByEmail(ctx context.Context, email string) (Identity, error)
}

// RefreshTokenRecord is a persisted refresh token joined to its owner.
type RefreshTokenRecord struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// RefreshTokenStore persists long-lived refresh tokens.
type RefreshTokenStore interface {
	InsertRefreshToken(ctx context.Context, token string, userID string, expiresAt time.Time) error
	// FindRefreshToken returns ErrRefreshTokenNotFound when the token or its owner is missing.
	FindRefreshToken(ctx context.Context, token string) (RefreshTokenRecord, error)
	// MarkRefreshTokenRevoked stamps revoked_at and updated_at; it returns
	// ErrRefreshTokenNotFound when no row matched.
	MarkRefreshTokenRevoked(ctx context.Context, token string, revokedAt time.Time) error
}
