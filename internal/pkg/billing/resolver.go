package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/SubGate/app/models"
)

// DefaultMetadataKey is the metadata field carrying the Telegram user id.
const DefaultMetadataKey = "telegram_id"

// ResolveStrategy is one step of the resolver chain. It returns an empty id
// when it has nothing to say about the notification.
type ResolveStrategy struct {
	Name    string
	Resolve func(ctx context.Context, n *Notification) (string, error)
}

// Resolver derives the external user id of a notification by trying its
// strategies in order. Stripe does not copy metadata onto every related
// object, so the default chain walks the object graph.
type Resolver struct {
	strategies []ResolveStrategy
}

// NewResolver builds the default chain over provider.
func NewResolver(provider Provider, metadataKey string) *Resolver {
	return NewResolverWithStrategies(DefaultStrategies(provider, metadataKey)...)
}

// NewResolverWithStrategies builds a resolver from an explicit chain.
func NewResolverWithStrategies(strategies ...ResolveStrategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Strategies returns the names of the chain in order.
func (r *Resolver) Strategies() []string {
	names := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		names = append(names, s.Name)
	}
	return names
}

// Resolve returns the external id, ErrNotFound when the chain is exhausted,
// or an error wrapping ErrResolution when a lookup failed. Ids that cannot be
// stored are passed over like missing ones.
func (r *Resolver) Resolve(ctx context.Context, n *Notification) (string, error) {
	if n == nil || n.Object == nil {
		return "", ErrNotFound
	}
	for _, s := range r.strategies {
		id, err := s.Resolve(ctx, n)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrResolution, s.Name, err)
		}
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if !models.ValidExternalID(id) {
			log.Warnf("[Resolver] %s: %s returned an id longer than %d characters, skipping", n.ID, s.Name, models.MaxExternalIDLength)
			continue
		}
		log.Debugf("[Resolver] %s resolved %s via %s", n.ID, id, s.Name)
		return id, nil
	}
	return "", ErrNotFound
}

// DefaultStrategies returns the lookup chain in priority order.
func DefaultStrategies(provider Provider, metadataKey string) []ResolveStrategy {
	if strings.TrimSpace(metadataKey) == "" {
		metadataKey = DefaultMetadataKey
	}
	c := chain{provider: provider, key: metadataKey}
	return []ResolveStrategy{
		{Name: "direct_metadata", Resolve: c.directMetadata},
		{Name: "charge_invoice", Resolve: c.chargeInvoice},
		{Name: "invoice_subscription", Resolve: c.invoiceSubscription},
		{Name: "payment_intent", Resolve: c.paymentIntent},
		{Name: "refund_charge", Resolve: c.refundCharge},
	}
}

type chain struct {
	provider Provider
	key      string
}

// fetch treats a missing object as a dead end rather than a failure.
func (c chain) fetch(ctx context.Context, kind ObjectKind, id string) (*ProviderObject, error) {
	if id == "" {
		return nil, nil
	}
	obj, err := c.provider.Retrieve(ctx, kind, id)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			log.Warnf("[Resolver] %s %s does not exist", kind, id)
			return nil, nil
		}
		return nil, err
	}
	return obj, nil
}

func (c chain) metadataOf(ctx context.Context, kind ObjectKind, id string) (string, *ProviderObject, error) {
	obj, err := c.fetch(ctx, kind, id)
	if err != nil || obj == nil {
		return "", nil, err
	}
	return obj.MetadataValue(c.key), obj, nil
}

func (c chain) directMetadata(_ context.Context, n *Notification) (string, error) {
	return n.Object.MetadataValue(c.key), nil
}

func (c chain) chargeInvoice(ctx context.Context, n *Notification) (string, error) {
	if !n.IsChargeLike() || n.Object.InvoiceID == "" {
		return "", nil
	}
	id, _, err := c.metadataOf(ctx, ObjectInvoice, n.Object.InvoiceID)
	return id, err
}

func (c chain) invoiceSubscription(ctx context.Context, n *Notification) (string, error) {
	subID := n.Object.SubscriptionID
	if subID == "" && n.IsChargeLike() && n.Object.InvoiceID != "" {
		inv, err := c.fetch(ctx, ObjectInvoice, n.Object.InvoiceID)
		if err != nil || inv == nil {
			return "", err
		}
		subID = inv.SubscriptionID
	}
	if subID == "" {
		return "", nil
	}
	id, _, err := c.metadataOf(ctx, ObjectSubscription, subID)
	return id, err
}

func (c chain) paymentIntent(ctx context.Context, n *Notification) (string, error) {
	if !n.IsChargeLike() || n.Object.PaymentIntentID == "" {
		return "", nil
	}
	id, _, err := c.metadataOf(ctx, ObjectPaymentIntent, n.Object.PaymentIntentID)
	return id, err
}

func (c chain) refundCharge(ctx context.Context, n *Notification) (string, error) {
	if !n.IsRefundLike() && n.Object.Kind != ObjectDispute {
		return "", nil
	}
	chargeID := n.Object.ChargeID
	if n.Object.Kind == ObjectCharge {
		chargeID = n.Object.ID
	}
	id, ch, err := c.metadataOf(ctx, ObjectCharge, chargeID)
	if err != nil || ch == nil || id != "" {
		return id, err
	}
	id, _, err = c.metadataOf(ctx, ObjectPaymentIntent, ch.PaymentIntentID)
	return id, err
}
