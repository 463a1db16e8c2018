package engagement

import (
	"fmt"
	"net/http"
	"strings"
)

// Code is the machine-readable failure class of an engine operation.
type Code string

const (
	CodeUnauthorized         Code = "unauthorized"
	CodeInvalidTransition    Code = "invalid_transition"
	CodeDuplicateApplication Code = "duplicate_application"
	CodeStaleState           Code = "stale_state"
	CodeRoundLimitExceeded   Code = "round_limit_exceeded"
	CodeNotFound             Code = "not_found"
	CodeInvalidInput         Code = "invalid_input"
)

// HTTPStatus maps the code onto a response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeInvalidTransition, CodeDuplicateApplication, CodeStaleState:
		return http.StatusConflict
	case CodeRoundLimitExceeded:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Error carries the failure code plus the entity and transition that was
// attempted so callers can explain it.
type Error struct {
	Code    Code           `json:"code"`
	Kind    Kind           `json:"kind,omitempty"`
	ID      uint           `json:"id,omitempty"`
	From    string         `json:"from,omitempty"`
	To      string         `json:"to,omitempty"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Sentinels for errors.Is. Matching compares codes only.
var (
	ErrUnauthorized         = &Error{Code: CodeUnauthorized}
	ErrInvalidTransition    = &Error{Code: CodeInvalidTransition}
	ErrDuplicateApplication = &Error{Code: CodeDuplicateApplication}
	ErrStaleState           = &Error{Code: CodeStaleState}
	ErrRoundLimitExceeded   = &Error{Code: CodeRoundLimitExceeded}
	ErrNotFound             = &Error{Code: CodeNotFound}
	ErrInvalidInput         = &Error{Code: CodeInvalidInput}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Kind != "" {
		fmt.Fprintf(&b, " %s", e.Kind)
		if e.ID != 0 {
			fmt.Fprintf(&b, " #%d", e.ID)
		}
	}
	if e.From != "" || e.To != "" {
		fmt.Fprintf(&b, " (%s -> %s)", e.From, e.To)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// StatusCode and ReasonCode let the HTTP layer render the error.
func (e *Error) StatusCode() int    { return e.Code.HTTPStatus() }
func (e *Error) ReasonCode() string { return string(e.Code) }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of e with msg as its message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// With returns a copy of e with key set in its metadata.
func (e *Error) With(key string, value any) *Error {
	cp := *e
	cp.Meta = make(map[string]any, len(e.Meta)+1)
	for k, v := range e.Meta {
		cp.Meta[k] = v
	}
	cp.Meta[key] = value
	return &cp
}

func Unauthorized(kind Kind, id uint, from, to string) *Error {
	return &Error{Code: CodeUnauthorized, Kind: kind, ID: id, From: from, To: to,
		Message: "actor is not allowed to perform this transition"}
}

func InvalidTransition(kind Kind, id uint, from, to string) *Error {
	return &Error{Code: CodeInvalidTransition, Kind: kind, ID: id, From: from, To: to,
		Message: "transition is not reachable from the current status"}
}

func StaleState(kind Kind, id uint) *Error {
	return &Error{Code: CodeStaleState, Kind: kind, ID: id,
		Message: "record changed since it was read, re-fetch and retry"}
}

func NotFound(kind Kind, id uint) *Error {
	return &Error{Code: CodeNotFound, Kind: kind, ID: id, Message: string(kind) + " not found"}
}

func DuplicateApplication(projectID, artistID uint) *Error {
	return &Error{Code: CodeDuplicateApplication, Kind: KindProject, ID: projectID,
		Message: "artist already applied to this project",
		Meta:    map[string]any{"artist_id": artistID}}
}

func RoundLimitExceeded(kind Kind, id uint, round, limit int) *Error {
	return &Error{Code: CodeRoundLimitExceeded, Kind: kind, ID: id,
		Message: fmt.Sprintf("round %d exceeds the agreed limit of %d", round, limit),
		Meta:    map[string]any{"round": round, "limit": limit}}
}

func InvalidInput(msg string) *Error {
	return &Error{Code: CodeInvalidInput, Message: msg}
}
