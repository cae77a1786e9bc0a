package session

import (
	"errors"
	"fmt"
)

// ErrorKind classifies controller errors for display and logging.
type ErrorKind string

const (
	KindInvalidURL         ErrorKind = "invalid_url"
	KindUnsupportedFormat  ErrorKind = "unsupported_format"
	KindStreamDiscovery    ErrorKind = "stream_discovery"
	KindInvalidRequest     ErrorKind = "invalid_request"
	KindWorkerRejected     ErrorKind = "worker_rejected"
	KindWorkerRuntime      ErrorKind = "worker_runtime"
	KindDoubleSubscription ErrorKind = "double_subscription"
)

// Error is the common shape of every controller error. Message is the text
// shown to the user; Cause is the underlying error, if any.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind, so callers can write
// errors.Is(err, &session.Error{Kind: session.KindInvalidURL}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// UserMessage returns the text to display for err.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// KindOf returns the kind of a controller error, or "" for other errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// InvalidURLError reports that the input is not an absolute URL.
func InvalidURLError(raw string, cause error) error {
	return &Error{Kind: KindInvalidURL, Message: fmt.Sprintf("%q is not a valid URL", raw), Cause: cause}
}

// UnsupportedFormatError reports a URL that does not point to a manifest.
func UnsupportedFormatError(raw string) error {
	return &Error{Kind: KindUnsupportedFormat, Message: "unsupported format: expected an HLS (.m3u8) or DASH (.mpd) manifest URL"}
}

// StreamDiscoveryError carries the worker's enumeration failure verbatim.
func StreamDiscoveryError(message string, cause error) error {
	return &Error{Kind: KindStreamDiscovery, Message: message, Cause: cause}
}

// InvalidRequestError reports a download request that breaks its invariant.
func InvalidRequestError(message string) error {
	return &Error{Kind: KindInvalidRequest, Message: message}
}

// WorkerRejectedError carries the worker's refusal to start a job.
func WorkerRejectedError(message string, cause error) error {
	return &Error{Kind: KindWorkerRejected, Message: message, Cause: cause}
}

// WorkerRuntimeError reports a job that failed after it started.
func WorkerRuntimeError(message string) error {
	return &Error{Kind: KindWorkerRuntime, Message: message}
}

// DoubleSubscriptionError reports an attach while a subscription set is live.
func DoubleSubscriptionError(active, requested string) error {
	return &Error{
		Kind:    KindDoubleSubscription,
		Message: fmt.Sprintf("event subscriptions for session %s are still active (attach requested for %s)", active, requested),
	}
}

// Sentinels for operations refused in the current state.
var (
	ErrSessionBusy     = errors.New("a session is already in progress")
	ErrSessionFinished = errors.New("the last session has not been dismissed")
	ErrClosed          = errors.New("controller is closed")
)
