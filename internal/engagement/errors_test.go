package engagement

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestError_IsMatchesCode(t *testing.T) {
	err := InvalidTransition(KindApplication, 4, "accepted", "withdrawn")

	if !errors.Is(err, ErrInvalidTransition) {
		t.Error("expected errors.Is to match ErrInvalidTransition")
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Error("invalid transition should not match unauthorized")
	}

	wrapped := fmt.Errorf("decide: %w", err)
	if !errors.Is(wrapped, ErrInvalidTransition) {
		t.Error("wrapped error should still match")
	}
}

func TestError_MessageCarriesContext(t *testing.T) {
	err := InvalidTransition(KindApplication, 4, "accepted", "withdrawn")
	msg := err.Error()

	for _, part := range []string{"invalid_transition", "application", "#4", "accepted -> withdrawn"} {
		if !strings.Contains(msg, part) {
			t.Errorf("message %q should contain %q", msg, part)
		}
	}
}

func TestError_WithDoesNotMutateOriginal(t *testing.T) {
	base := StaleState(KindProject, 1)
	withMeta := base.With("expected_version", 3)

	if base.Meta != nil {
		t.Error("With should copy, not mutate")
	}
	if withMeta.Meta["expected_version"] != 3 {
		t.Errorf("meta = %v", withMeta.Meta)
	}
}

func TestRoundLimitExceeded_Meta(t *testing.T) {
	err := RoundLimitExceeded(KindPackageOrder, 9, 3, 2)
	if err.Meta["round"] != 3 || err.Meta["limit"] != 2 {
		t.Errorf("meta = %v", err.Meta)
	}
	if !errors.Is(err, ErrRoundLimitExceeded) {
		t.Error("expected round limit sentinel match")
	}
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeUnauthorized, http.StatusForbidden},
		{CodeInvalidTransition, http.StatusConflict},
		{CodeDuplicateApplication, http.StatusConflict},
		{CodeStaleState, http.StatusConflict},
		{CodeRoundLimitExceeded, http.StatusUnprocessableEntity},
		{CodeNotFound, http.StatusNotFound},
		{CodeInvalidInput, http.StatusBadRequest},
		{Code("other"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.code.HTTPStatus(); got != tt.status {
			t.Errorf("%s.HTTPStatus() = %d, expected %d", tt.code, got, tt.status)
		}
	}
}
