package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured indicates no chat endpoint was set.
	ErrNotConfigured = errors.New("chat endpoint not configured")

	// ErrUnavailable indicates the chat server is unreachable.
	ErrUnavailable = errors.New("chat server unavailable")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("llm request timed out")

	// ErrCancelled marks a request aborted by its caller. It also matches
	// context.Canceled.
	ErrCancelled = fmt.Errorf("llm request cancelled: %w", context.Canceled)

	// ErrTransport is the parent of every non-2xx response error.
	ErrTransport = errors.New("chat transport error")

	// ErrStream indicates the server reported an error inside the event stream.
	ErrStream = errors.New("chat stream failed")

	// ErrInvalidOutput indicates the LLM response could not be parsed
	// into the expected structured format.
	ErrInvalidOutput = errors.New("invalid llm output format")
)

// StatusError is returned for non-2xx chat responses.
type StatusError struct {
	Status  int
	Body    string
	Message string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	if msg == "" {
		return fmt.Sprintf("chat error status: %d", e.Status)
	}
	return fmt.Sprintf("chat error %d: %s", e.Status, msg)
}

// Is reports StatusError as an ErrTransport.
func (e *StatusError) Is(target error) bool {
	return target == ErrTransport
}

// IsCancelled reports whether err is a caller-initiated cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
