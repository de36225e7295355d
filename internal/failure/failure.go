// Package failure defines the tagged error type shared by the fetcher, the
// presence reconciler and the process entry point, plus the mapping from
// errors to process exit codes.
package failure

import (
	"context"
	"errors"
	"fmt"
)

// Kind discriminates the failure classes the daemon distinguishes.
type Kind int

const (
	// Transient failures are retried by the component that produced them and
	// never escape it.
	Transient Kind = iota
	// NonRetryableAPI is an error code reported by the scrobbling API that is
	// not in the retryable set. It stops the daemon.
	NonRetryableAPI
	// SinkFailure is a presence push that failed even after a reconnect.
	SinkFailure
	// Fatal is any other unexpected failure.
	Fatal
	// Config is a configuration that could not be loaded or validated.
	Config
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case NonRetryableAPI:
		return "non-retryable-api"
	case SinkFailure:
		return "sink-failure"
	case Fatal:
		return "fatal"
	case Config:
		return "config"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Machine-readable error codes.
const (
	CodeAPIError        = "LFM_API_ERROR"
	CodeConfigLoad      = "CONFIG_LOAD_ERR"
	CodeConfigParse     = "CONFIG_PARSE_ERR"
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeSinkUnavailable = "SINK_UNAVAILABLE"
	CodeTransient       = "TRANSIENT"
	CodeUnexpected      = "UNEXPECTED"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitTagged     = 1
	ExitUnexpected = 2
	ExitUsage      = 3
)

// Error is a tagged failure carrying a machine-readable code and a human
// readable message.
type Error struct {
	Kind    Kind
	Code    string
	APICode int // only set for NonRetryableAPI
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewTransient wraps a recoverable error.
func NewTransient(message string, err error) *Error {
	return &Error{Kind: Transient, Code: CodeTransient, Message: message, Err: err}
}

// NewAPI builds a NonRetryableAPI error from an API error code and message.
func NewAPI(apiCode int, message string) *Error {
	return &Error{
		Kind:    NonRetryableAPI,
		Code:    CodeAPIError,
		APICode: apiCode,
		Message: fmt.Sprintf("API error %d has no recovery: %s", apiCode, message),
	}
}

// NewSink wraps a presence push failure.
func NewSink(message string, err error) *Error {
	return &Error{Kind: SinkFailure, Code: CodeSinkUnavailable, Message: message, Err: err}
}

// NewFatal wraps an unexpected failure.
func NewFatal(message string, err error) *Error {
	return &Error{Kind: Fatal, Code: CodeUnexpected, Message: message, Err: err}
}

// NewConfig wraps a configuration load, parse or validation failure.
func NewConfig(code, message string, err error) *Error {
	return &Error{Kind: Config, Code: code, Message: message, Err: err}
}

// KindOf reports the kind of a tagged error. Untagged errors are Fatal.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Fatal
}

// ExitCode maps the error returned by the daemon to a process exit code.
func ExitCode(err error) int {
	if err == nil || errors.Is(err, context.Canceled) {
		return ExitOK
	}
	var fe *Error
	if errors.As(err, &fe) && fe.Kind != Fatal {
		return ExitTagged
	}
	return ExitUnexpected
}
