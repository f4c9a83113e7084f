package authkit

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/tyemirov/chirpy/internal/failure"
	"github.com/tyemirov/chirpy/pkg/accesstoken"
	"go.uber.org/zap"
)

const (
	messageIncorrectCredentials = "incorrect email or password"
	messageInvalidAccessToken   = "invalid or expired token"
	messageInvalidRefreshToken  = "invalid refresh token"
	messageInvalidAPIKey        = "invalid api key"
	messageNotOwner             = "you are not allowed to modify this resource"
	messageDevOnly              = "this operation is only allowed in the dev environment"
)

var (
	// ErrNotOwner indicates the caller does not own the target resource.
	ErrNotOwner = errors.New("policy.not_owner")
	// ErrAPIKeyMismatch indicates the presented API key is not the configured one.
	ErrAPIKeyMismatch = errors.New("policy.api_key_mismatch")
	// ErrPlatformNotAllowed indicates a dev-only operation on another platform.
	ErrPlatformNotAllowed = errors.New("policy.platform_not_allowed")
	// ErrPasswordMismatch indicates a wrong password during login.
	ErrPasswordMismatch = errors.New("policy.password_mismatch")

	errMissingUserStore    = errors.New("policy.missing_user_store")
	errMissingRefreshStore = errors.New("policy.missing_refresh_store")
)

// LoginResult carries the authenticated user and the freshly minted tokens.
type LoginResult struct {
	Identity     Identity
	AccessToken  string
	RefreshToken string
}

// Policy answers who the caller is and whether they may act.
type Policy struct {
	configuration ServerConfig
	codec         *accesstoken.Codec
	users         UserStore
	refreshTokens *RefreshTokens
	clock         Clock
	logger        *zap.Logger
	metrics       MetricsRecorder

	decoyOnce sync.Once
	decoyHash string
}

// PolicyOption customises a Policy at construction.
type PolicyOption func(*Policy)

// WithClock overrides the time source used for tokens.
func WithClock(clock Clock) PolicyOption {
	return func(policy *Policy) {
		if clock != nil {
			policy.clock = clock
		}
	}
}

// WithLogger sets the logger for auth decisions.
func WithLogger(logger *zap.Logger) PolicyOption {
	return func(policy *Policy) {
		if logger != nil {
			policy.logger = logger
		}
	}
}

// WithMetrics sets the recorder for auth events.
func WithMetrics(metrics MetricsRecorder) PolicyOption {
	return func(policy *Policy) {
		if metrics != nil {
			policy.metrics = metrics
		}
	}
}

// NewPolicy binds configuration and stores into a Policy.
func NewPolicy(configuration ServerConfig, users UserStore, refreshStore RefreshTokenStore, options ...PolicyOption) (*Policy, error) {
	if users == nil {
		return nil, fmt.Errorf("policy.new: %w", errMissingUserStore)
	}
	if refreshStore == nil {
		return nil, fmt.Errorf("policy.new: %w", errMissingRefreshStore)
	}
	if strings.TrimSpace(configuration.JWTIssuer) == "" {
		configuration.JWTIssuer = accesstoken.DefaultIssuer
	}
	if configuration.AccessTokenTTL <= 0 {
		configuration.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if configuration.RefreshTokenTTL <= 0 {
		configuration.RefreshTokenTTL = DefaultRefreshTokenTTL
	}

	policy := &Policy{
		configuration: configuration,
		users:         users,
		clock:         NewSystemClock(),
		logger:        zap.NewNop(),
		metrics:       noopMetrics{},
	}
	for _, option := range options {
		option(policy)
	}

	codec, err := accesstoken.New(accesstoken.Config{
		SigningKey: configuration.JWTSigningKey,
		Issuer:     configuration.JWTIssuer,
		Clock:      policy.clock,
	})
	if err != nil {
		return nil, fmt.Errorf("policy.new: %w", err)
	}
	policy.codec = codec
	policy.refreshTokens = NewRefreshTokens(refreshStore, configuration.RefreshTokenTTL, policy.clock)
	return policy, nil
}

// RefreshTokens exposes the refresh token lifecycle bound to this policy.
func (policy *Policy) RefreshTokens() *RefreshTokens {
	return policy.refreshTokens
}

// Authenticate resolves the caller's user id from a bearer access token.
// Every failure is reported as unauthorized.
func (policy *Policy) Authenticate(headers http.Header) (string, error) {
	token, err := BearerToken(headers)
	if err != nil {
		return "", failure.Unauthorized(messageInvalidAccessToken, err)
	}
	userID, verifyErr := policy.codec.Verify(token)
	if verifyErr != nil {
		policy.logger.Debug("access token rejected",
			zap.String("code", "auth.authenticate.rejected"),
			zap.Error(verifyErr))
		return "", failure.Unauthorized(messageInvalidAccessToken, verifyErr)
	}
	return userID, nil
}

// Login checks email and password and mints an access and a refresh token.
// Unknown emails and wrong passwords produce the same failure.
func (policy *Policy) Login(ctx context.Context, email string, password string) (LoginResult, error) {
	identity, err := policy.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			policy.burnDecoyHash(password)
			policy.metrics.Increment(metricAuthLoginFailure)
			return LoginResult{}, failure.Unauthorized(messageIncorrectCredentials, err)
		}
		return LoginResult{}, failure.Internal(fmt.Errorf("policy.login: %w", err))
	}

	matched, checkErr := CheckPasswordHash(password, identity.HashedPassword)
	if checkErr != nil {
		policy.metrics.Increment(metricAuthLoginFailure)
		return LoginResult{}, failure.Internal(fmt.Errorf("policy.login: %w", checkErr))
	}
	if !matched {
		policy.metrics.Increment(metricAuthLoginFailure)
		return LoginResult{}, failure.Unauthorized(messageIncorrectCredentials, ErrPasswordMismatch)
	}

	accessToken, _, mintErr := policy.codec.Issue(identity.ID, policy.configuration.AccessTokenTTL)
	if mintErr != nil {
		return LoginResult{}, failure.Internal(fmt.Errorf("policy.login: %w", mintErr))
	}
	refreshToken, issueErr := policy.refreshTokens.Issue(ctx, identity.ID)
	if issueErr != nil {
		return LoginResult{}, failure.Internal(fmt.Errorf("policy.login: %w", issueErr))
	}

	policy.metrics.Increment(metricAuthLoginSuccess)
	policy.logger.Info("user logged in",
		zap.String("code", "auth.login.success"),
		zap.String("user_id", identity.ID))
	return LoginResult{
		Identity:     identity,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh mints a new access token from the bearer refresh token. The
// refresh token itself is left untouched.
func (policy *Policy) Refresh(ctx context.Context, headers http.Header) (string, error) {
	token, err := BearerToken(headers)
	if err != nil {
		policy.metrics.Increment(metricAuthRefreshFailure)
		return "", err
	}
	resolution, resolveErr := policy.refreshTokens.Resolve(ctx, token)
	if resolveErr != nil {
		policy.metrics.Increment(metricAuthRefreshFailure)
		if isRefreshTokenUnknown(resolveErr) {
			return "", failure.Unauthorized(messageInvalidRefreshToken, resolveErr)
		}
		return "", failure.Internal(resolveErr)
	}
	if resolution.Revoked {
		policy.metrics.Increment(metricAuthRefreshFailure)
		return "", failure.Unauthorized(messageInvalidRefreshToken, ErrRefreshTokenRevoked)
	}

	accessToken, _, mintErr := policy.codec.Issue(resolution.UserID, policy.configuration.AccessTokenTTL)
	if mintErr != nil {
		return "", failure.Internal(fmt.Errorf("policy.refresh: %w", mintErr))
	}
	policy.metrics.Increment(metricAuthRefreshSuccess)
	return accessToken, nil
}

// Revoke marks the bearer refresh token revoked. Unknown tokens fail.
func (policy *Policy) Revoke(ctx context.Context, headers http.Header) error {
	token, err := BearerToken(headers)
	if err != nil {
		policy.metrics.Increment(metricAuthRevokeFailure)
		return err
	}
	if revokeErr := policy.refreshTokens.Revoke(ctx, token); revokeErr != nil {
		policy.metrics.Increment(metricAuthRevokeFailure)
		if isRefreshTokenUnknown(revokeErr) {
			return failure.Unauthorized(messageInvalidRefreshToken, revokeErr)
		}
		return failure.Internal(revokeErr)
	}
	policy.metrics.Increment(metricAuthRevokeSuccess)
	return nil
}

// AuthorizeOwner rejects callers acting on resources owned by someone else.
func (policy *Policy) AuthorizeOwner(callerID string, ownerID string) error {
	if callerID == "" || callerID != ownerID {
		return failure.Forbidden(messageNotOwner, ErrNotOwner)
	}
	return nil
}

// AuthorizeWebhook checks the service-to-service API key.
func (policy *Policy) AuthorizeWebhook(headers http.Header) error {
	key, err := APIKey(headers)
	if err != nil {
		policy.metrics.Increment(metricAuthWebhookDenied)
		return err
	}
	configured := policy.configuration.PolkaAPIKey
	if configured == "" || subtle.ConstantTimeCompare([]byte(key), []byte(configured)) != 1 {
		policy.metrics.Increment(metricAuthWebhookDenied)
		return failure.Unauthorized(messageInvalidAPIKey, ErrAPIKeyMismatch)
	}
	return nil
}

// AuthorizeDevPlatform gates destructive admin operations.
func (policy *Policy) AuthorizeDevPlatform() error {
	if policy.configuration.Platform != DevPlatform {
		return failure.Forbidden(messageDevOnly, ErrPlatformNotAllowed)
	}
	return nil
}

// burnDecoyHash spends the same bcrypt work for unknown emails as for known ones.
func (policy *Policy) burnDecoyHash(password string) {
	policy.decoyOnce.Do(func() {
		hash, err := HashPassword("chirpy-decoy-password")
		if err != nil {
			policy.logger.Warn("decoy hash unavailable", zap.Error(err))
			return
		}
		policy.decoyHash = hash
	})
	if policy.decoyHash != "" {
		_, _ = CheckPasswordHash(password, policy.decoyHash)
	}
}

func isRefreshTokenUnknown(err error) bool {
	return errors.Is(err, ErrRefreshTokenNotFound) || errors.Is(err, ErrRefreshTokenEmpty)
}
