// Package apperr defines the domain error taxonomy shared by the directory,
// the lifecycle engine and the HTTP API.
//
// Every domain error carries a Kind (NotFound, Forbidden, InvalidState,
// Conflict, Invalid) and a stable Reason. Callers match with errors.Is against
// either a reason sentinel (ErrNotOwner) or a kind sentinel (NotFound).
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error.
type Kind int

// Error kinds.
const (
	KindNotFound Kind = iota + 1
	KindForbidden
	KindInvalidState
	KindConflict
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindInvalidState:
		return "invalid_state"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Error is a caller-recoverable domain error.
type Error struct {
	Kind   Kind
	Reason string
	Msg    string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Reason != "" {
		return e.Reason
	}
	return e.Kind.String()
}

// Is matches a sentinel by reason, or by kind when the sentinel has no reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Reason == "" {
		return t.Kind == e.Kind
	}
	return t.Reason == e.Reason
}

// Kind sentinels.
var (
	NotFound     = &Error{Kind: KindNotFound}
	Forbidden    = &Error{Kind: KindForbidden}
	InvalidState = &Error{Kind: KindInvalidState}
	Conflict     = &Error{Kind: KindConflict}
	Invalid      = &Error{Kind: KindInvalid}
)

// Reason sentinels.
var (
	ErrUserNotFound           = &Error{Kind: KindNotFound, Reason: "user_not_found"}
	ErrAgentNotFound          = &Error{Kind: KindNotFound, Reason: "agent_not_found"}
	ErrRequestNotFound        = &Error{Kind: KindNotFound, Reason: "request_not_found"}
	ErrWrongRole              = &Error{Kind: KindForbidden, Reason: "wrong_role"}
	ErrNotOwner               = &Error{Kind: KindForbidden, Reason: "not_owner"}
	ErrNotAssigned            = &Error{Kind: KindInvalidState, Reason: "not_assigned"}
	ErrNotConfirmed           = &Error{Kind: KindInvalidState, Reason: "not_confirmed"}
	ErrNotDeletable           = &Error{Kind: KindInvalidState, Reason: "not_deletable"}
	ErrNotProcessed           = &Error{Kind: KindInvalidState, Reason: "not_processed"}
	ErrInvalidStateTransition = &Error{Kind: KindInvalidState, Reason: "invalid_state_transition"}
	ErrAlreadyHasOpenRequest  = &Error{Kind: KindConflict, Reason: "already_has_open_request"}
	ErrEmailTaken             = &Error{Kind: KindConflict, Reason: "email_taken"}
	ErrInvalidEmail           = &Error{Kind: KindInvalid, Reason: "invalid_email"}
	ErrInvalidScore           = &Error{Kind: KindInvalid, Reason: "invalid_score"}
)

// New returns a copy of sentinel carrying a formatted message.
func New(sentinel *Error, format string, args ...interface{}) *Error {
	return &Error{Kind: sentinel.Kind, Reason: sentinel.Reason, Msg: fmt.Sprintf(format, args...)}
}

// As extracts the domain error from err's chain, or nil if there is none.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
