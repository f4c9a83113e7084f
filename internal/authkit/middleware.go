package authkit

import (
	"github.com/gin-gonic/gin"
	"github.com/tyemirov/chirpy/internal/failure"
	"go.uber.org/zap"
)

const authUserIDKey = "auth_user_id"

// RequireBearer validates the bearer access token and injects the caller id.
func RequireBearer(policy *Policy, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		userID, err := policy.Authenticate(contextGin.Request.Header)
		if err != nil {
			failure.Respond(contextGin, logger, err)
			return
		}
		contextGin.Set(authUserIDKey, userID)
		contextGin.Next()
	}
}

// AuthenticatedUserID returns the caller id injected by RequireBearer.
func AuthenticatedUserID(contextGin *gin.Context) (string, bool) {
	value, found := contextGin.Get(authUserIDKey)
	if !found {
		return "", false
	}
	userID, ok := value.(string)
	return userID, ok && userID != ""
}
