package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"domain passthrough", NewConflict("dup", nil), "CONFLICT", http.StatusConflict},
		{"wrapped domain", fmt.Errorf("ctx: %w", NewValidationError("bad", nil)), "VALIDATION_FAILED", http.StatusBadRequest},
		{"no rows", fmt.Errorf("get: %w", pgx.ErrNoRows), "NOT_FOUND", http.StatusNotFound},
		{"fiber error", fiber.NewError(http.StatusMethodNotAllowed, "nope"), "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed},
		{"generic", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			if got.Code != tt.wantCode || got.HTTPStatus != tt.wantStatus {
				t.Errorf("got %s/%d, want %s/%d", got.Code, got.HTTPStatus, tt.wantCode, tt.wantStatus)
			}
		})
	}
}

func TestToDomainErrorNil(t *testing.T) {
	if ToDomainError(nil) != nil {
		t.Error("nil error mapped to non-nil")
	}
	if MapError(nil) != nil {
		t.Error("MapError(nil) returned non-nil")
	}
}

func TestInternalErrorUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := NewInternalError(cause)
	if !errors.Is(err, cause) {
		t.Error("internal error does not unwrap to its cause")
	}
}
