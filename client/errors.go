package client

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGenerationFailed means the backend reported the job as failed.
	ErrGenerationFailed = errors.New("initial generation failed")
	// ErrResultTimeout means the job completed but no video url arrived in time.
	ErrResultTimeout = errors.New("video url was not provided by backend after completion")

	ErrClosed     = errors.New("reconciler closed")
	ErrSuperseded = errors.New("submission superseded by a newer start")
)

// SubmissionError wraps a failed creation call. It is terminal for that attempt.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("start generation: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// TransientPollError is a transport failure while polling. Polling continues.
type TransientPollError struct {
	Attempt int
	Err     error
}

func (e *TransientPollError) Error() string {
	return fmt.Sprintf("check status (attempt %d): %v", e.Attempt, e.Err)
}

func (e *TransientPollError) Unwrap() error { return e.Err }

// RequestError is a network or HTTP failure talking to the backend.
// StatusCode is zero when no response was received.
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Method, e.URL)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": http %d", e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *RequestError) Unwrap() error { return e.Err }
