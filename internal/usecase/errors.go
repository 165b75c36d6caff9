package usecase

import (
	"context"
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrorSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrorSessionBusy     ErrorCode = "SESSION_BUSY"
	ErrorSessionClosed   ErrorCode = "SESSION_CLOSED"
	ErrorRecordingActive ErrorCode = "RECORDING_ACTIVE"
	ErrorConfiguration   ErrorCode = "CONFIGURATION_ERROR"
	ErrorTransport       ErrorCode = "TRANSPORT_ERROR"
	ErrorUpstream        ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal        ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// NewConfigurationError describes a startup problem that forces local mode.
func NewConfigurationError(reason string, err error) *Error {
	return newError(ErrorConfiguration, reason, err)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

// classifyRemote maps a generation failure to TRANSPORT_ERROR or
// UPSTREAM_ERROR with a reason used for logs and metrics.
func classifyRemote(err error) *Error {
	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrorTransport, "remote_timeout", err)
	}
	if errors.Is(err, context.Canceled) {
		return newError(ErrorTransport, "remote_canceled", err)
	}
	if status, ok := upstreamStatusCode(err); ok {
		if status == 429 {
			return newError(ErrorUpstream, "remote_rate_limited", err)
		}
		return newError(ErrorUpstream, "remote_error_status", err)
	}
	return newError(ErrorTransport, "remote_unreachable", err)
}
