package assist

import (
	"github.com/notelens/assist-client/internal/apierrors"
	"github.com/notelens/assist-client/internal/credential"
	"github.com/notelens/assist-client/internal/types"
	"github.com/notelens/assist-client/internal/workqueue"
)

// Sentinels callers compare against with errors.Is.
var (
	// ErrNetworkUnavailable reports that the remote endpoint could not be
	// reached at the transport level.
	ErrNetworkUnavailable = apierrors.ErrNetworkUnavailable

	// ErrNotLinked reports that no credential is available and interactive
	// acquisition was not possible.
	ErrNotLinked = credential.ErrNotLinked

	// ErrValidation reports a malformed request envelope.
	ErrValidation = types.ErrValidation

	// ErrBackPressure is returned when the internal usage queue is full.
	ErrBackPressure = workqueue.ErrQueueFull
)

// IsAdmissionDenied reports whether err is a local admission denial.
func IsAdmissionDenied(err error) bool { return apierrors.IsAdmissionDenied(err) }

// AsAdmissionDenied extracts the full decision from an admission denial.
func AsAdmissionDenied(err error) (AdmissionDecision, bool) {
	return apierrors.AsAdmissionDenied(err)
}

// IsAuthenticationFailed reports that the credential-refresh budget was
// exhausted and the call cannot proceed without re-linking.
func IsAuthenticationFailed(err error) bool { return apierrors.IsAuthenticationFailed(err) }

// IsAuthenticationRequired reports that no usable credential was available.
func IsAuthenticationRequired(err error) bool { return apierrors.IsAuthenticationRequired(err) }

// IsRequestTimeout reports that the per-call time budget elapsed.
func IsRequestTimeout(err error) bool { return apierrors.IsRequestTimeout(err) }

// IsRemoteError reports a structured error response from the remote endpoint.
func IsRemoteError(err error) bool { return apierrors.IsRemoteError(err) }

// IsStreamError reports an in-band error frame on a streaming response.
func IsStreamError(err error) bool { return apierrors.IsStreamError(err) }
