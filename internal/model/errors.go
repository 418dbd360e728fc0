package model

import "errors"

var (
	// ErrTaskNotFound is returned when a task id is unknown to the store.
	ErrTaskNotFound = errors.New("task not found")

	// ErrAlreadyTerminal is returned when cancellation is requested for a
	// task that already reached a terminal state.
	ErrAlreadyTerminal = errors.New("task already in terminal state")
)

// ErrorKind classifies task failures. The extractor adapter normalizes raw
// tool errors into one of these before anything is written to the store,
// and the HTTP layer maps them to status codes.
type ErrorKind string

const (
	// KindInvalidRequest: bad URL or format, surfaced immediately, not retried
	KindInvalidRequest ErrorKind = "invalid_request"

	// KindUpstreamUnavailable: the source platform rejected or rate-limited
	// the request; retried with backoff before being surfaced
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"

	// KindProcessingFailure: the merge/transcode step failed, not retried
	KindProcessingFailure ErrorKind = "processing_failure"

	// KindCanceled: user-initiated abort, not an error
	KindCanceled ErrorKind = "canceled"

	// KindCapacity: admission control rejected the request
	KindCapacity ErrorKind = "capacity"
)

// TaskError carries a classified failure with a human-readable message.
// The message is safe to return to clients; the wrapped cause is logged
// server-side only.
type TaskError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *TaskError) Error() string {
	return e.Message
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// NewTaskError builds a classified error around an optional cause.
func NewTaskError(kind ErrorKind, message string, cause error) *TaskError {
	return &TaskError{Kind: kind, Message: message, Err: cause}
}

// KindOf extracts the classification from err, or empty if err is not a
// TaskError.
func KindOf(err error) ErrorKind {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}
