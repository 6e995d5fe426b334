package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("part", int64(42)),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("price", "price is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated wraps ErrUnauthenticated",
			err:       Unauthenticated(),
			target:    ErrUnauthenticated,
			wantMatch: true,
		},
		{
			name:      "TooLarge wraps ErrTooLarge",
			err:       TooLarge(1024),
			target:    ErrTooLarge,
			wantMatch: true,
		},
		{
			name:      "TooLarge does NOT match ErrValidation",
			err:       TooLarge(1024),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "NotFound does NOT match ErrForbidden",
			err:       NotFound("build", 7),
			target:    ErrForbidden,
			wantMatch: false,
		},
		{
			name:      "wrapped ValidationFailed still matches",
			err:       fmt.Errorf("service/parts: %w", ValidationFailed("brand", "brand is required")),
			target:    ErrValidation,
			wantMatch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("movements", int64(12)),
			wantMessage: "movements not found with id 12",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("model", "model is required"),
			wantMessage: "model is required",
		},
		{
			name:        "TooLarge names the limit",
			err:         TooLarge(10),
			wantMessage: "payload exceeds the 10 byte limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("build", "abc123")
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("display_name", "display name is required")

	if err.Field != "display_name" {
		t.Errorf("Field = %q, want %q", err.Field, "display_name")
	}
}
