package billing

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedObject is returned for object kinds a provider cannot serve.
	ErrUnsupportedObject = errors.New("unsupported provider object")
	// ErrObjectNotFound is returned when the provider has no such object.
	ErrObjectNotFound = errors.New("provider object not found")
)

// Provider is the read/write surface of the payment provider API used by the
// resolver and the write-back after activation.
type Provider interface {
	Retrieve(ctx context.Context, kind ObjectKind, id string) (*ProviderObject, error)
	AttachMetadata(ctx context.Context, kind ObjectKind, id, key, value string) error
}

// CheckoutRequest describes a hosted checkout to create at the provider.
type CheckoutRequest struct {
	ExternalID     string
	PriceID        string
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
	IdempotencyKey string
}

// CheckoutSession is the provider's answer to a checkout request.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// SessionCreator creates hosted checkout sessions.
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

func unsupported(kind ObjectKind) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedObject, kind)
}
