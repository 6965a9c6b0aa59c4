package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var errorCodes = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusServiceUnavailable,
}

// Feature: catalog-http, Property 1: Errors have consistent structure
func TestProperty_ErrorsHaveConsistentStructure(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every error response carries code, message and timestamp", prop.ForAll(
		func(message string, pick int) bool {
			statusCode := errorCodes[pick%len(errorCodes)]

			w := httptest.NewRecorder()
			RespondWithError(w, statusCode, message)

			if w.Code != statusCode {
				t.Logf("FAIL: status = %d, want %d", w.Code, statusCode)
				return false
			}
			if w.Header().Get("Content-Type") != jsonContentType {
				t.Logf("FAIL: Content-Type = %q", w.Header().Get("Content-Type"))
				return false
			}

			var response ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Logf("FAIL: body is not JSON: %v", err)
				return false
			}
			if response.Error.Code != http.StatusText(statusCode) || response.Error.Message != message {
				t.Logf("FAIL: unexpected envelope %+v", response.Error)
				return false
			}
			if _, err := time.Parse(time.RFC3339, response.Error.Timestamp); err != nil {
				t.Logf("FAIL: timestamp %q: %v", response.Error.Timestamp, err)
				return false
			}
			return response.Error.Details == nil
		},
		gen.AnyString(),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRespondWithValidationErrors(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithValidationErrors(w, []ValidationError{{Field: "price", Message: "Value must be greater than or equal to 0"}})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}

	var response struct {
		Error struct {
			Message string `json:"message"`
			Details struct {
				ValidationErrors []ValidationError `json:"validation_errors"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if response.Error.Message != "validation failed" {
		t.Errorf("message = %q", response.Error.Message)
	}
	if got := response.Error.Details.ValidationErrors; len(got) != 1 || got[0].Field != "price" {
		t.Errorf("validation_errors = %+v", got)
	}
}

func TestRespondWithErrorDetails(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithErrorDetails(w, http.StatusNotFound, "product not found", map[string]interface{}{"id": "1700000000000"})

	var response ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if response.Error.Details["id"] != "1700000000000" {
		t.Errorf("details = %v", response.Error.Details)
	}
}

func TestRespondWithJSONKeepsCyrillicReadable(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithJSON(w, http.StatusOK, map[string]string{"title": "Пирометр"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Пирометр") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestRespondWithJSONKeepsMarkup(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithJSON(w, http.StatusOK, map[string]string{"description": "<p>Диапазон & точность</p>"})

	if !strings.Contains(w.Body.String(), `"<p>Диапазон & точность</p>"`) {
		t.Errorf("markup was escaped: %s", w.Body.String())
	}
}

func TestErrorTimestampHasSubSecondPrecision(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithError(w, http.StatusConflict, "product with this id already exists")

	var response ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if _, err := time.Parse(time.RFC3339Nano, response.Error.Timestamp); err != nil {
		t.Errorf("timestamp %q: %v", response.Error.Timestamp, err)
	}
}

func TestErrorHandlingMiddlewareRecoversPanics(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	handler := chimiddleware.RequestID(ErrorHandlingMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("mirror directory vanished")
	})))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/admin/import", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
	entries := logs.FilterMessage("Panic recovered").All()
	if len(entries) != 1 {
		t.Fatalf("expected one panic log entry, got %v", logs.All())
	}
	fields := entries[0].ContextMap()
	if id, _ := fields["request_id"].(string); id == "" || fields["path"] != "/admin/import" {
		t.Errorf("fields = %v", fields)
	}
	if _, ok := fields["stack"]; !ok {
		t.Error("panic entry has no stack")
	}
}
