package provider

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport means the backend could not be reached at all.
	ErrTransport = errors.New("transport failure")
	// ErrAuthFailed means no usable credential could be obtained or the
	// backend refused the one presented.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrBackendRejected means the backend answered with a non-success status.
	ErrBackendRejected = errors.New("backend rejected request")
	// ErrDecode means the backend answered with a body we cannot interpret.
	ErrDecode = errors.New("failed to decode backend response")
	// ErrNotFound means a named entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAmbiguous means a single-item lookup matched more than one entity.
	ErrAmbiguous = errors.New("ambiguous result")
	// ErrInvalidArgument means a caller-supplied value was rejected before
	// any remote call.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAnalyticsUnavailable means the analytics backend was not configured.
	ErrAnalyticsUnavailable = errors.New("analytics backend not configured")
)

// StatusError is a non-success response from a backend.
type StatusError struct {
	Operation  string
	Target     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: API request failed with status %d", e.Operation, e.Target, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Is lets callers test a StatusError against the taxonomy sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrBackendRejected:
		return true
	case ErrAuthFailed:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// maxErrorBody bounds how much of a rejected response is kept.
const maxErrorBody = 512

// NewStatusError builds a StatusError, trimming an oversized body.
func NewStatusError(operation, target string, statusCode int, body []byte) *StatusError {
	if len(body) > maxErrorBody {
		body = append(body[:maxErrorBody:maxErrorBody], "..."...)
	}
	return &StatusError{
		Operation:  operation,
		Target:     target,
		StatusCode: statusCode,
		Body:       string(body),
	}
}

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// analyticsTransportError marks transport failures against the analytics
// backend, which is only reachable from the private network.
type analyticsTransportError struct {
	err error
}

func (e *analyticsTransportError) Error() string { return e.err.Error() }
func (e *analyticsTransportError) Unwrap() error { return e.err }

// AnalyticsTransport annotates err as an analytics connectivity failure.
func AnalyticsTransport(err error) error {
	if err == nil {
		return nil
	}
	return &analyticsTransportError{err: fmt.Errorf("%w: %w", ErrTransport, err)}
}

// WrapError converts backend errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var userErr *UserError
	if errors.As(err, &userErr) {
		return err
	}

	var analyticsErr *analyticsTransportError
	if errors.As(err, &analyticsErr) {
		return &UserError{
			Message: "Could not query the work item analytics service",
			Hint:    "The analytics cluster is only reachable from the corporate network. Are you connected to the VPN?",
			Err:     err,
		}
	}

	if errors.Is(err, ErrAuthFailed) {
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that your credential is valid and has access.\n  - Set PIPELINE_AUTH_TOKEN for a static bearer token\n  - Or set PIPELINE_AUTH_TENANT, PIPELINE_AUTH_CLIENT_ID and PIPELINE_AUTH_CLIENT_SECRET\n  - Or sign in with 'az login'",
			Err:     err,
		}
	}

	if errors.Is(err, ErrInvalidArgument) {
		return &UserError{
			Message: "Invalid argument",
			Err:     err,
		}
	}

	if errors.Is(err, ErrDecode) {
		return &UserError{
			Message: "Unexpected response from backend",
			Hint:    "The backend answered, but not in a shape this tool understands. The API version may have changed.",
			Err:     err,
		}
	}

	return err
}
