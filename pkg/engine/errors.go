package engine

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure of the query-execution lifecycle.
type Kind string

// Error kinds surfaced by the engine client.
const (
	KindAuthentication Kind = "authentication"
	KindSubmission     Kind = "submission"
	KindJob            Kind = "job"
	KindResultFetch    Kind = "result_fetch"
	KindTimeout        Kind = "timeout"
	KindInvalidRequest Kind = "invalid_request"
)

// ErrInvalidRequest is returned when a caller supplies no usable query target.
var ErrInvalidRequest = &Error{Kind: KindInvalidRequest, Op: "query", Detail: "no target specified"}

// Error describes a failed engine operation.
type Error struct {
	Kind   Kind
	Op     string
	JobID  string
	State  JobState
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Kind, e.Op)
	if e.JobID != "" {
		msg += " (job " + e.JobID + ")"
	}
	if e.State != "" {
		msg += ": job state " + string(e.State)
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or the empty Kind when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// unauthorized reports whether err carries an authorization-failure status.
func unauthorized(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}
