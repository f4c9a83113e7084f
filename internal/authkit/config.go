package authkit

import "time"

const (
	// DefaultAccessTokenTTL is the lifetime of every access token the service mints.
	DefaultAccessTokenTTL = time.Hour
	// DefaultRefreshTokenTTL is the lifetime stamped on new refresh tokens.
	DefaultRefreshTokenTTL = 60 * 24 * time.Hour
	// DevPlatform is the only platform allowed to run destructive admin operations.
	DevPlatform = "dev"
)

// ServerConfig configures token signing, lifetimes and service gates.
type ServerConfig struct {
	JWTSigningKey   []byte
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	PolkaAPIKey     string
	Platform        string
}
