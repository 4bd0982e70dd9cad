package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIs_ByReason(t *testing.T) {
	err := New(ErrNotOwner, "You can't confirm requests of other agents!")
	if !errors.Is(err, ErrNotOwner) {
		t.Error("errors.Is(err, ErrNotOwner) = false")
	}
	if errors.Is(err, ErrWrongRole) {
		t.Error("different reason of the same kind should not match")
	}
}

func TestIs_ByKind(t *testing.T) {
	tests := []struct {
		err  *Error
		kind *Error
	}{
		{ErrUserNotFound, NotFound},
		{ErrNotOwner, Forbidden},
		{ErrNotAssigned, InvalidState},
		{ErrNotConfirmed, InvalidState},
		{ErrNotDeletable, InvalidState},
		{ErrNotProcessed, InvalidState},
		{ErrInvalidStateTransition, InvalidState},
		{ErrAlreadyHasOpenRequest, Conflict},
		{ErrInvalidScore, Invalid},
	}
	for _, tt := range tests {
		t.Run(tt.err.Reason, func(t *testing.T) {
			wrapped := fmt.Errorf("ticket: confirm: %w", New(tt.err, "msg"))
			if !errors.Is(wrapped, tt.kind) {
				t.Errorf("%s should match kind %s", tt.err.Reason, tt.kind.Kind)
			}
		})
	}
}

func TestError_Message(t *testing.T) {
	if got := New(ErrNotDeletable, "Request doesn't exist!").Error(); got != "Request doesn't exist!" {
		t.Errorf("Error() = %q", got)
	}
	if got := ErrNotDeletable.Error(); got != "not_deletable" {
		t.Errorf("Error() without message = %q", got)
	}
	if got := NotFound.Error(); got != "not_found" {
		t.Errorf("kind-only Error() = %q", got)
	}
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", New(ErrEmailTaken, "taken"))
	e := As(wrapped)
	if e == nil || e.Kind != KindConflict {
		t.Fatalf("As() = %+v, want conflict", e)
	}
	if As(errors.New("plain")) != nil {
		t.Error("As(plain) should be nil")
	}
}
