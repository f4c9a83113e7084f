// Package failure defines the closed set of request failure kinds and maps
// them onto HTTP responses.
package failure

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Kind classifies a failure for transport mapping.
type Kind uint8

const (
	// KindInternal covers every failure that was not classified.
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
)

// InternalMessage is the only body ever returned for internal failures.
const InternalMessage = "Something went wrong on our end"

// String returns a stable label used in logs.
func (kind Kind) String() string {
	switch kind {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// StatusCode maps the kind onto an HTTP status.
func (kind Kind) StatusCode() int {
	switch kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure carrying a user-facing message and the
// underlying cause for diagnostics.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (failureErr *Error) Error() string {
	if failureErr.Cause == nil {
		return failureErr.Kind.String() + ": " + failureErr.Message
	}
	return failureErr.Kind.String() + ": " + failureErr.Message + ": " + failureErr.Cause.Error()
}

func (failureErr *Error) Unwrap() error {
	return failureErr.Cause
}

// New builds a classified failure.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func BadRequest(message string, cause error) *Error {
	return New(KindBadRequest, message, cause)
}

func Unauthorized(message string, cause error) *Error {
	return New(KindUnauthorized, message, cause)
}

func Forbidden(message string, cause error) *Error {
	return New(KindForbidden, message, cause)
}

func NotFound(message string, cause error) *Error {
	return New(KindNotFound, message, cause)
}

func Internal(cause error) *Error {
	return New(KindInternal, InternalMessage, cause)
}

// KindOf returns the kind of the outermost classified failure in the chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindInternal
}

// StatusCode maps any error onto an HTTP status.
func StatusCode(err error) int {
	return KindOf(err).StatusCode()
}

// PublicMessage returns the message safe to show to the caller.
func PublicMessage(err error) string {
	var classified *Error
	if !errors.As(err, &classified) || classified.Kind == KindInternal {
		return InternalMessage
	}
	return classified.Message
}

// Respond aborts the request with the status and JSON body derived from err.
// Internal failures are logged with their cause; the body stays generic.
func Respond(contextGin *gin.Context, logger *zap.Logger, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	kind := KindOf(err)
	fields := []zap.Field{
		zap.String("kind", kind.String()),
		zap.String("method", contextGin.Request.Method),
		zap.String("path", contextGin.Request.URL.Path),
		zap.Error(err),
	}
	if kind == KindInternal {
		logger.Error("request failed", fields...)
	} else {
		logger.Debug("request rejected", fields...)
	}
	contextGin.AbortWithStatusJSON(kind.StatusCode(), gin.H{"error": PublicMessage(err)})
}
