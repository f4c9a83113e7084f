package accesstoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// Now returns the current UTC timestamp.
func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// DefaultIssuer identifies tokens minted by Chirpy.
const DefaultIssuer = "chirpy"

// Config configures the Codec.
type Config struct {
	SigningKey []byte
	Issuer     string
	Clock      Clock
}

// Sentinel errors exposed by the codec.
var (
	ErrMissingSigningKey = errors.New("access_token.missing_signing_key")
	ErrMissingIssuer     = errors.New("access_token.missing_issuer")
	ErrEmptySubject      = errors.New("access_token.empty_subject")
	ErrInvalidTTL        = errors.New("access_token.invalid_ttl")
	ErrInvalidToken      = errors.New("access_token.invalid_token")
	ErrInvalidIssuer     = errors.New("access_token.invalid_issuer")
	ErrMissingSubject    = errors.New("access_token.missing_subject")
	ErrTokenExpired      = errors.New("access_token.expired")
)

// Codec mints and verifies stateless HS256 access tokens.
type Codec struct {
	signingKey []byte
	issuer     string
	clock      Clock
}

// New constructs a Codec after validating the supplied configuration.
func New(configuration Config) (*Codec, error) {
	if len(configuration.SigningKey) == 0 {
		return nil, fmt.Errorf("access_token.new: %w", ErrMissingSigningKey)
	}
	if strings.TrimSpace(configuration.Issuer) == "" {
		return nil, fmt.Errorf("access_token.new: %w", ErrMissingIssuer)
	}
	clock := configuration.Clock
	if clock == nil {
		clock = systemClock{}
	}
	return &Codec{
		signingKey: configuration.SigningKey,
		issuer:     configuration.Issuer,
		clock:      clock,
	}, nil
}

// Issuer reports the issuer embedded in minted tokens.
func (codec *Codec) Issuer() string {
	return codec.issuer
}

// Issue signs a token for subject that expires after ttl.
func (codec *Codec) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(subject) == "" {
		return "", time.Time{}, fmt.Errorf("access_token.issue: %w", ErrEmptySubject)
	}
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("access_token.issue: %w", ErrInvalidTTL)
	}
	issuedAt := codec.clock.Now().UTC()
	expiresAt := issuedAt.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    codec.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString(codec.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("access_token.issue: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, issuer, subject and expiry, in that order, and
// returns the subject.
func (codec *Codec) Verify(tokenString string) (string, error) {
	if strings.TrimSpace(tokenString) == "" {
		return "", fmt.Errorf("access_token.verify: %w", ErrInvalidToken)
	}
	claims := &jwt.RegisteredClaims{}
	parsedToken, parseErr := jwt.ParseWithClaims(tokenString, claims, func(parsed *jwt.Token) (interface{}, error) {
		return codec.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if parseErr != nil || parsedToken == nil || !parsedToken.Valid {
		return "", fmt.Errorf("access_token.verify: %w", ErrInvalidToken)
	}
	if claims.Issuer != codec.issuer {
		return "", fmt.Errorf("access_token.verify: %w", ErrInvalidIssuer)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("access_token.verify: %w", ErrMissingSubject)
	}
	// Tokens without an expiry are treated as expired.
	if claims.ExpiresAt == nil || !codec.clock.Now().Before(claims.ExpiresAt.Time) {
		return "", fmt.Errorf("access_token.verify: %w", ErrTokenExpired)
	}
	return claims.Subject, nil
}
