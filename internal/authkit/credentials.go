package authkit

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tyemirov/chirpy/internal/failure"
)

const (
	authorizationHeader = "Authorization"
	bearerScheme        = "Bearer"
	apiKeyScheme        = "ApiKey"
)

var (
	// ErrAuthorizationMissing indicates the request carried no Authorization header.
	ErrAuthorizationMissing = errors.New("credentials.missing_authorization")
	// ErrAuthorizationMalformed indicates an Authorization header not of the form "<scheme> <value>".
	ErrAuthorizationMalformed = errors.New("credentials.malformed_authorization")
)

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(headers http.Header) (string, error) {
	return schemeCredential(headers, bearerScheme)
}

// APIKey extracts the pre-shared key from "Authorization: ApiKey <key>".
func APIKey(headers http.Header) (string, error) {
	return schemeCredential(headers, apiKeyScheme)
}

func schemeCredential(headers http.Header, scheme string) (string, error) {
	headerValue := headers.Get(authorizationHeader)
	if headerValue == "" {
		return "", failure.Unauthorized("malformed authorization header", ErrAuthorizationMissing)
	}
	segments := strings.Split(headerValue, " ")
	if len(segments) != 2 || segments[0] != scheme {
		return "", failure.BadRequest("malformed authorization header", ErrAuthorizationMalformed)
	}
	return segments[1], nil
}
