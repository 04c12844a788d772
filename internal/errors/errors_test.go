package errors

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	// Verify sentinel errors exist and have expected messages
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"ErrNotFound", ErrNotFound, "resource not found"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrHardwareUnavailable", ErrHardwareUnavailable, "hardware unavailable"},
		{"ErrInternal", ErrInternal, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("%s.Error() = %q, want %q", tt.name, tt.err.Error(), tt.expected)
			}
		})
	}
}

func TestLogErrorAndReturn(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	t.Run("returns nil for nil error", func(t *testing.T) {
		result := LogErrorAndReturn(logger, nil, "test message")
		if result != nil {
			t.Errorf("LogErrorAndReturn(nil) = %v, want nil", result)
		}
	})

	t.Run("returns the same error", func(t *testing.T) {
		err := errors.New("test error")
		result := LogErrorAndReturn(logger, err, "test message", "key", "value")
		if result != err {
			t.Errorf("LogErrorAndReturn returned different error")
		}
	})
}

func TestWrapErrorf(t *testing.T) {
	t.Run("returns nil for nil error", func(t *testing.T) {
		result := WrapErrorf(nil, "context %s", "value")
		if result != nil {
			t.Errorf("WrapErrorf(nil) = %v, want nil", result)
		}
	})

	t.Run("wraps error with context", func(t *testing.T) {
		original := errors.New("original error")
		wrapped := WrapErrorf(original, "context %s", "value")

		if !strings.Contains(wrapped.Error(), "context value") {
			t.Errorf("wrapped error should contain context: %v", wrapped)
		}
		if !errors.Is(wrapped, original) {
			t.Error("wrapped error should unwrap to original")
		}
	})
}

func TestIsNotFound(t *testing.T) {
	t.Run("returns true for ErrNotFound", func(t *testing.T) {
		if !IsNotFound(ErrNotFound) {
			t.Error("IsNotFound(ErrNotFound) = false, want true")
		}
	})

	t.Run("returns true for wrapped ErrNotFound", func(t *testing.T) {
		wrapped := NotFoundf("area %s", "kitchen")
		if !IsNotFound(wrapped) {
			t.Error("IsNotFound(wrapped) = false, want true")
		}
	})

	t.Run("returns false for other errors", func(t *testing.T) {
		if IsNotFound(ErrInvalidInput) {
			t.Error("IsNotFound(ErrInvalidInput) = true, want false")
		}
	})
}

func TestIsInvalidInput(t *testing.T) {
	t.Run("returns true for ErrInvalidInput", func(t *testing.T) {
		if !IsInvalidInput(ErrInvalidInput) {
			t.Error("IsInvalidInput(ErrInvalidInput) = false, want true")
		}
	})

	t.Run("returns true for wrapped ErrInvalidInput", func(t *testing.T) {
		wrapped := InvalidInputf("field %s", "name")
		if !IsInvalidInput(wrapped) {
			t.Error("IsInvalidInput(wrapped) = false, want true")
		}
	})

	t.Run("returns false for other errors", func(t *testing.T) {
		if IsInvalidInput(ErrNotFound) {
			t.Error("IsInvalidInput(ErrNotFound) = true, want false")
		}
	})
}

func TestIsHardwareUnavailable(t *testing.T) {
	t.Run("returns true for ErrHardwareUnavailable", func(t *testing.T) {
		if !IsHardwareUnavailable(ErrHardwareUnavailable) {
			t.Error("IsHardwareUnavailable(ErrHardwareUnavailable) = false, want true")
		}
	})

	t.Run("returns true for wrapped ErrHardwareUnavailable", func(t *testing.T) {
		wrapped := HardwareUnavailablef("pin %d", 18)
		if !IsHardwareUnavailable(wrapped) {
			t.Error("IsHardwareUnavailable(wrapped) = false, want true")
		}
	})

	t.Run("returns false for other errors", func(t *testing.T) {
		if IsHardwareUnavailable(ErrNotFound) {
			t.Error("IsHardwareUnavailable(ErrNotFound) = true, want false")
		}
	})
}

func TestIsInternal(t *testing.T) {
	if !IsInternal(Internalf("effect %s", "transition")) {
		t.Error("IsInternal(wrapped) = false, want true")
	}
	if IsInternal(ErrInvalidInput) {
		t.Error("IsInternal(ErrInvalidInput) = true, want false")
	}
}

func TestNotFoundf(t *testing.T) {
	err := NotFoundf("area %d not found", 3)

	if !strings.Contains(err.Error(), "area 3 not found") {
		t.Errorf("NotFoundf error message incorrect: %v", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundf should wrap ErrNotFound")
	}
}

func TestInvalidInputf(t *testing.T) {
	err := InvalidInputf("field %s is required", "name")

	if !strings.Contains(err.Error(), "field name is required") {
		t.Errorf("InvalidInputf error message incorrect: %v", err)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("InvalidInputf should wrap ErrInvalidInput")
	}
}

func TestHardwareUnavailablef(t *testing.T) {
	err := HardwareUnavailablef("strip %s timeout", "pin18")

	if !strings.Contains(err.Error(), "strip pin18 timeout") {
		t.Errorf("HardwareUnavailablef error message incorrect: %v", err)
	}
	if !errors.Is(err, ErrHardwareUnavailable) {
		t.Error("HardwareUnavailablef should wrap ErrHardwareUnavailable")
	}
}

func TestInternalf(t *testing.T) {
	err := Internalf("unexpected state: %s", "nil pointer")

	if !strings.Contains(err.Error(), "unexpected state: nil pointer") {
		t.Errorf("Internalf error message incorrect: %v", err)
	}
	if !errors.Is(err, ErrInternal) {
		t.Error("Internalf should wrap ErrInternal")
	}
}
