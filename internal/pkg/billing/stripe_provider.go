package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/charge"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/invoice"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/subscription"

	"github.com/ManuelReschke/SubGate/internal/pkg/env"
)

// StripeProvider reads and annotates Stripe resources through the official
// client. Objects are decoded from the raw API response so that link fields
// are read the same way regardless of the pinned API version.
type StripeProvider struct {
	charges        *charge.Client
	invoices       *invoice.Client
	subscriptions  *subscription.Client
	paymentIntents *paymentintent.Client
	sessions       *checkoutsession.Client
}

// NewStripeProvider creates a provider bound to a secret API key.
func NewStripeProvider(secretKey string) *StripeProvider {
	backend := stripe.GetBackend(stripe.APIBackend)
	key := strings.TrimSpace(secretKey)
	return &StripeProvider{
		charges:        &charge.Client{B: backend, Key: key},
		invoices:       &invoice.Client{B: backend, Key: key},
		subscriptions:  &subscription.Client{B: backend, Key: key},
		paymentIntents: &paymentintent.Client{B: backend, Key: key},
		sessions:       &checkoutsession.Client{B: backend, Key: key},
	}
}

// NewStripeProviderFromEnv reads STRIPE_SECRET_KEY.
func NewStripeProviderFromEnv() *StripeProvider {
	return NewStripeProvider(env.GetEnv("STRIPE_SECRET_KEY", ""))
}

func (p *StripeProvider) Retrieve(ctx context.Context, kind ObjectKind, id string) (*ProviderObject, error) {
	obj, err := p.retrieve(ctx, kind, id)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.HTTPStatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s %s", ErrObjectNotFound, kind, id)
		}
		return nil, err
	}
	return obj, nil
}

func (p *StripeProvider) retrieve(ctx context.Context, kind ObjectKind, id string) (*ProviderObject, error) {
	switch kind {
	case ObjectCharge:
		params := &stripe.ChargeParams{}
		params.Context = ctx
		ch, err := p.charges.Get(id, params)
		if err != nil {
			return nil, err
		}
		return decodeResource(ch, ch.LastResponse)
	case ObjectInvoice:
		params := &stripe.InvoiceParams{}
		params.Context = ctx
		inv, err := p.invoices.Get(id, params)
		if err != nil {
			return nil, err
		}
		return decodeResource(inv, inv.LastResponse)
	case ObjectSubscription:
		params := &stripe.SubscriptionParams{}
		params.Context = ctx
		sub, err := p.subscriptions.Get(id, params)
		if err != nil {
			return nil, err
		}
		return decodeResource(sub, sub.LastResponse)
	case ObjectPaymentIntent:
		params := &stripe.PaymentIntentParams{}
		params.Context = ctx
		pi, err := p.paymentIntents.Get(id, params)
		if err != nil {
			return nil, err
		}
		return decodeResource(pi, pi.LastResponse)
	default:
		return nil, unsupported(kind)
	}
}

func (p *StripeProvider) AttachMetadata(ctx context.Context, kind ObjectKind, id, key, value string) error {
	switch kind {
	case ObjectSubscription:
		params := &stripe.SubscriptionParams{}
		params.Context = ctx
		params.AddMetadata(key, value)
		_, err := p.subscriptions.Update(id, params)
		return err
	case ObjectPaymentIntent:
		params := &stripe.PaymentIntentParams{}
		params.Context = ctx
		params.AddMetadata(key, value)
		_, err := p.paymentIntents.Update(id, params)
		return err
	default:
		return unsupported(kind)
	}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.ExternalID),
		Metadata:          req.Metadata,
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: req.Metadata,
		},
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	s, err := p.sessions.New(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func decodeResource(v interface{}, resp *stripe.APIResponse) (*ProviderObject, error) {
	if resp != nil && len(resp.RawJSON) > 0 {
		return DecodeProviderObject(resp.RawJSON)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return DecodeProviderObject(raw)
}
