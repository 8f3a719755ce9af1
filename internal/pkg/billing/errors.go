package billing

import "errors"

var (
	// ErrAuthentication means the webhook signature did not verify.
	ErrAuthentication = errors.New("webhook authentication failed")
	// ErrMalformedPayload means the signed body could not be decoded.
	ErrMalformedPayload = errors.New("malformed webhook payload")
	// ErrResolution means a provider lookup failed while resolving the user.
	ErrResolution = errors.New("identifier resolution failed")
	// ErrNotFound means the resolver chain found no user id.
	ErrNotFound = errors.New("no external id found for notification")
	// ErrStore means the subscriber store failed.
	ErrStore = errors.New("subscriber store failure")
	// ErrTimeout means processing exceeded the receiver deadline.
	ErrTimeout = errors.New("webhook processing timed out")
	// ErrNotConfigured means a required secret or client is missing.
	ErrNotConfigured = errors.New("billing not configured")
)

// IsRetryable reports whether the provider should redeliver after err. Only
// authentication, decoding and exhausted resolution are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrAuthentication) &&
		!errors.Is(err, ErrMalformedPayload) &&
		!errors.Is(err, ErrNotFound)
}
