package failure

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

func TestStatusCodeMapping(t *testing.T) {
	t.Parallel()

	cause := errors.New("cause")
	testCases := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "bad request", err: BadRequest("bad", cause), expectedStatus: http.StatusBadRequest},
		{name: "unauthorized", err: Unauthorized("nope", nil), expectedStatus: http.StatusUnauthorized},
		{name: "forbidden", err: Forbidden("no", nil), expectedStatus: http.StatusForbidden},
		{name: "not found", err: NotFound("missing", nil), expectedStatus: http.StatusNotFound},
		{name: "internal", err: Internal(cause), expectedStatus: http.StatusInternalServerError},
		{name: "unclassified", err: cause, expectedStatus: http.StatusInternalServerError},
		{name: "unknown kind", err: New(Kind(42), "odd", nil), expectedStatus: http.StatusInternalServerError},
		{name: "wrapped", err: fmt.Errorf("handler: %w", Forbidden("no", nil)), expectedStatus: http.StatusForbidden},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			if status := StatusCode(testCase.err); status != testCase.expectedStatus {
				t.Fatalf("expected %d, got %d", testCase.expectedStatus, status)
			}
		})
	}
}

func TestPublicMessageHidesInternalDetail(t *testing.T) {
	t.Parallel()

	if message := PublicMessage(errors.New("pq: connection refused")); message != InternalMessage {
		t.Fatalf("expected generic message, got %q", message)
	}
	if message := PublicMessage(New(KindInternal, "secret detail", nil)); message != InternalMessage {
		t.Fatalf("expected generic message for internal kind, got %q", message)
	}
	if message := PublicMessage(BadRequest("Chirp is too long", nil)); message != "Chirp is too long" {
		t.Fatalf("unexpected message %q", message)
	}
}

func TestErrorUnwrapsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("refresh_store.not_found")
	err := Unauthorized("invalid refresh token", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable through errors.Is")
	}
	if err.Error() != "unauthorized: invalid refresh token: refresh_store.not_found" {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}

func TestRespondWritesJSONBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedMessage string
	}{
		{name: "classified", err: NotFound("Chirp not found", nil), expectedStatus: http.StatusNotFound, expectedMessage: "Chirp not found"},
		{name: "unclassified", err: errors.New("disk on fire"), expectedStatus: http.StatusInternalServerError, expectedMessage: InternalMessage},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/fail", func(contextGin *gin.Context) {
				Respond(contextGin, zaptest.NewLogger(t), testCase.err)
			})

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/fail", nil))

			if recorder.Code != testCase.expectedStatus {
				t.Fatalf("expected %d, got %d", testCase.expectedStatus, recorder.Code)
			}
			var payload map[string]string
			if err := json.NewDecoder(recorder.Body).Decode(&payload); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if payload["error"] != testCase.expectedMessage {
				t.Fatalf("expected message %q, got %q", testCase.expectedMessage, payload["error"])
			}
		})
	}
}
