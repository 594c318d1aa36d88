package audit

import (
	"time"

	"github.com/google/uuid"
)

// NewEvent creates a new audit event for sql.
func NewEvent(sql string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		SQL:       sql,
	}
}

// WithRequest copies request metadata into the event.
func (e *Event) WithRequest(info RequestInfo) *Event {
	e.RequestID = info.RequestID
	e.UserID = info.UserID
	e.Target = info.Target
	return e
}

// WithJob records the engine job and its row count.
func (e *Event) WithJob(jobID string, rowCount int) *Event {
	e.JobID = jobID
	e.RowCount = rowCount
	return e
}

// WithResult adds result information to the event.
func (e *Event) WithResult(success bool, errorKind, errorMsg string, duration time.Duration) *Event {
	e.Success = success
	e.ErrorKind = errorKind
	e.ErrorMessage = errorMsg
	e.DurationMS = duration.Milliseconds()
	return e
}
