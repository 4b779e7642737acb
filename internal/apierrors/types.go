// Package apierrors defines the closed error taxonomy surfaced by the gateway
// and the recoverability classification consumed by retry logic.
package apierrors

import (
	"errors"
	"fmt"
	"time"

	"github.com/notelens/assist-client/internal/types"
)

// ErrorCategory determines how errors should be handled by retry logic.
type ErrorCategory int

const (
	// Recoverable errors should be retried with exponential backoff.
	Recoverable ErrorCategory = iota

	// Irrecoverable errors should fail immediately without retry.
	Irrecoverable
)

func (c ErrorCategory) String() string {
	switch c {
	case Recoverable:
		return "Recoverable"
	case Irrecoverable:
		return "Irrecoverable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// ErrNetworkUnavailable marks transport-level failures where no response was
// received at all.
var ErrNetworkUnavailable = errors.New("network unavailable")

// AdmissionDeniedError is returned when the local admission controller
// rejects a request before it reaches the remote service.
type AdmissionDeniedError struct {
	Decision types.AdmissionDecision
}

func (e *AdmissionDeniedError) Error() string {
	d := e.Decision
	if d.Limit > 0 {
		return fmt.Sprintf("admission denied: %s (%d/%d)", d.Reason, d.Current, d.Limit)
	}
	return fmt.Sprintf("admission denied: %s", d.Reason)
}

// AuthError covers credential acquisition and refresh failures.
// Exhausted is true once the single refresh retry has been spent; the call
// must not be attempted again.
type AuthError struct {
	Exhausted bool
	Cause     error
}

func (e *AuthError) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("authentication failed after retry: %v", e.Cause)
	}
	return fmt.Sprintf("authentication required: %v", e.Cause)
}

func (e *AuthError) Unwrap() error { return e.Cause }

// TimeoutError is returned when a call exceeds its wall-clock budget.
type TimeoutError struct {
	Budget    time.Duration
	Streaming bool
}

func (e *TimeoutError) Error() string {
	if e.Streaming {
		return fmt.Sprintf("streaming request timed out after %s", e.Budget)
	}
	return fmt.Sprintf("request timed out after %s", e.Budget)
}

// RemoteError carries the upstream error code and message after normalization.
type RemoteError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
}

// StreamError is raised for a terminal protocol error frame or a stream that
// ends before delivering its payload in a recognizable shape.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("streaming protocol error: %s", e.Message)
}

// ------------------------------
// Predicates
// ------------------------------

// IsAdmissionDenied reports whether err is an admission denial.
func IsAdmissionDenied(err error) bool {
	var ad *AdmissionDeniedError
	return errors.As(err, &ad)
}

// AsAdmissionDenied extracts the decision carried by an admission denial.
func AsAdmissionDenied(err error) (types.AdmissionDecision, bool) {
	var ad *AdmissionDeniedError
	if errors.As(err, &ad) {
		return ad.Decision, true
	}
	return types.AdmissionDecision{}, false
}

// IsAuthenticationFailed reports whether the refresh retry budget was spent.
func IsAuthenticationFailed(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Exhausted
}

// IsAuthenticationRequired reports whether credentials could not be acquired
// (retry budget not yet spent).
func IsAuthenticationRequired(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae) && !ae.Exhausted
}

// IsRequestTimeout reports whether err is a wall-clock budget expiry.
func IsRequestTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsRemoteError reports whether err carries an upstream error code.
func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// IsStreamError reports whether err is a streaming protocol failure.
func IsStreamError(err error) bool {
	var se *StreamError
	return errors.As(err, &se)
}
