package authkit

import "errors"

var (
	// ErrRefreshTokenNotFound indicates no refresh token matched the provided value.
	ErrRefreshTokenNotFound = errors.New("refresh_store.not_found")
	// ErrRefreshTokenRevoked indicates the refresh token has been revoked.
	ErrRefreshTokenRevoked = errors.New("refresh_store.revoked")
	// ErrRefreshTokenEmpty indicates that the presented token text is empty.
	ErrRefreshTokenEmpty = errors.New("refresh_store.empty_token")
	// ErrUserNotFound indicates no user matched the lookup.
	ErrUserNotFound = errors.New("user_store.not_found")
)
