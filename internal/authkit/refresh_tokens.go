package authkit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RefreshResolution is the outcome of resolving a presented refresh token.
// Revoked tokens still resolve so callers can tell them apart from unknown ones.
type RefreshResolution struct {
	UserID    string
	Revoked   bool
	ExpiresAt time.Time
}

// RefreshTokens issues, resolves and revokes opaque refresh tokens.
// Tokens are not rotated on use.
type RefreshTokens struct {
	store RefreshTokenStore
	ttl   time.Duration
	clock Clock
}

// NewRefreshTokens binds the token lifecycle to a persistence store.
func NewRefreshTokens(store RefreshTokenStore, ttl time.Duration, clock Clock) *RefreshTokens {
	if ttl <= 0 {
		ttl = DefaultRefreshTokenTTL
	}
	if clock == nil {
		clock = NewSystemClock()
	}
	return &RefreshTokens{store: store, ttl: ttl, clock: clock}
}

// Issue generates and persists a new refresh token for userID.
func (tokens *RefreshTokens) Issue(ctx context.Context, userID string) (string, error) {
	token, err := generateRefreshToken()
	if err != nil {
		return "", err
	}
	expiresAt := tokens.clock.Now().UTC().Add(tokens.ttl)
	if err := tokens.store.InsertRefreshToken(ctx, token, userID, expiresAt); err != nil {
		return "", fmt.Errorf("refresh_store.issue: %w", err)
	}
	return token, nil
}

// Resolve looks up the owner of token. It does not consult the stored expiry.
func (tokens *RefreshTokens) Resolve(ctx context.Context, token string) (RefreshResolution, error) {
	if strings.TrimSpace(token) == "" {
		return RefreshResolution{}, fmt.Errorf("refresh_store.resolve: %w", ErrRefreshTokenEmpty)
	}
	record, err := tokens.store.FindRefreshToken(ctx, token)
	if err != nil {
		return RefreshResolution{}, fmt.Errorf("refresh_store.resolve: %w", err)
	}
	return RefreshResolution{
		UserID:    record.UserID,
		Revoked:   record.RevokedAt != nil,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// Revoke marks token revoked. Revoking an already revoked token re-stamps it
// and succeeds; an unknown token yields ErrRefreshTokenNotFound.
func (tokens *RefreshTokens) Revoke(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("refresh_store.revoke: %w", ErrRefreshTokenEmpty)
	}
	if err := tokens.store.MarkRefreshTokenRevoked(ctx, token, tokens.clock.Now().UTC()); err != nil {
		return fmt.Errorf("refresh_store.revoke: %w", err)
	}
	return nil
}
