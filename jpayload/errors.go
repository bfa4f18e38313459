package jpayload

import "errors"

// UnavailablePayloadError is returned from [Provider.Acquire]
// and [Provider.ToOffline] when the payload can no longer be read,
// for example after Close or Shutdown.
//
// It indicates a lifecycle mistake by the caller, never an I/O failure,
// so it is safe to log and otherwise ignore.
type UnavailablePayloadError struct {
	Reason string
}

func (e UnavailablePayloadError) Error() string {
	return "payload unavailable: " + e.Reason
}

// IsUnavailable reports whether err is or wraps an [UnavailablePayloadError].
func IsUnavailable(err error) bool {
	var u UnavailablePayloadError
	return errors.As(err, &u)
}

var (
	errClosed   = UnavailablePayloadError{Reason: "provider closed"}
	errShutDown = UnavailablePayloadError{Reason: "provider shut down"}
	errConsumed = UnavailablePayloadError{
		Reason: "stream payload already partially consumed and cannot be rewound",
	}
)
