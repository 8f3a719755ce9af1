package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/SubGate/app/models"
	"github.com/ManuelReschke/SubGate/app/repository"
	"github.com/ManuelReschke/SubGate/internal/pkg/metrics"
)

// DefaultWebhookTimeout bounds the processing of a single delivery.
const DefaultWebhookTimeout = 15 * time.Second

// ReceiverConfig holds the webhook endpoint settings.
type ReceiverConfig struct {
	WebhookSecret string
	Tolerance     time.Duration
	Timeout       time.Duration
}

// Receiver authenticates Stripe deliveries and drives them through the
// resolver and dispatcher. The ledger is optional.
type Receiver struct {
	cfg        ReceiverConfig
	resolver   *Resolver
	dispatcher *Dispatcher
	ledger     repository.WebhookEventRepository
}

// NewReceiver creates a webhook receiver.
func NewReceiver(cfg ReceiverConfig, resolver *Resolver, dispatcher *Dispatcher, ledger repository.WebhookEventRepository) *Receiver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultWebhookTimeout
	}
	return &Receiver{cfg: cfg, resolver: resolver, dispatcher: dispatcher, ledger: ledger}
}

// Configured reports whether a webhook secret is set.
func (r *Receiver) Configured() bool {
	return r.cfg.WebhookSecret != ""
}

type receiveResult struct {
	ack *Ack
	err error
}

// Receive handles one delivery. A nil error means the delivery must be
// acknowledged with 200; otherwise IsRetryable tells whether Stripe should
// redeliver.
func (r *Receiver) Receive(ctx context.Context, payload []byte, signatureHeader string) (*Ack, error) {
	if err := VerifyStripeWebhookSignature(payload, signatureHeader, r.cfg.WebhookSecret, r.cfg.Tolerance); err != nil {
		return nil, err
	}
	n, err := ParseNotification(payload)
	if err != nil {
		return nil, err
	}
	if n.ID == "" {
		sum := sha256.Sum256(payload)
		n.ID = "hash:" + hex.EncodeToString(sum[:])
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	done := make(chan receiveResult, 1)
	go func() {
		ack, err := r.handle(ctx, n)
		done <- receiveResult{ack: ack, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTimeout, n.ID, res.err)
		}
		return res.ack, res.err
	case <-ctx.Done():
		log.Errorf("[Billing] event %s (%s) exceeded %s", n.ID, n.Type, r.cfg.Timeout)
		return nil, fmt.Errorf("%w: %s", ErrTimeout, n.ID)
	}
}

func (r *Receiver) handle(ctx context.Context, n *Notification) (*Ack, error) {
	entry, done, err := r.begin(ctx, n)
	if err != nil {
		return nil, err
	}
	if done {
		log.Infof("[Billing] event %s already processed", n.ID)
		return r.ack(n, OutcomeDuplicate, entry.ExternalID, nil), nil
	}

	ack, err := r.process(ctx, n)
	r.finish(ctx, entry, ack, err)
	return ack, err
}

func (r *Receiver) process(ctx context.Context, n *Notification) (*Ack, error) {
	route, ok := r.dispatcher.Classify(n.Type)
	if !ok {
		log.Debugf("[Billing] ignoring event %s of type %s", n.ID, n.Type)
		return r.ack(n, OutcomeIgnored, "", nil), nil
	}

	externalID, err := r.resolver.Resolve(ctx, n)
	if route.Informational() {
		if err != nil {
			log.Infof("[Billing] %s %s: user not resolved: %v", n.Type, n.ID, err)
		} else {
			log.Infof("[Billing] %s for %s, no state change", n.Type, externalID)
		}
		return r.ack(n, OutcomeInformational, externalID, nil), nil
	}
	switch {
	case errors.Is(err, ErrNotFound):
		log.Warnf("[Billing] unresolved %s event %s: no user id on any related object", n.Type, n.ID)
		return r.ack(n, OutcomeUnresolved, "", nil), nil
	case err != nil:
		log.Errorf("[Billing] resolving event %s failed: %v", n.ID, err)
		return nil, err
	}

	t, err := r.dispatcher.Dispatch(ctx, n.Type, externalID, n)
	if err != nil {
		log.Errorf("[Billing] %s for %s failed: %v", n.Type, externalID, err)
		return nil, err
	}
	return r.ack(n, outcomeOf(t), externalID, t), nil
}

func (r *Receiver) ack(n *Notification, outcome Outcome, externalID string, t *Transition) *Ack {
	metrics.WebhookOutcomesTotal.WithLabelValues(n.Type, string(outcome)).Inc()
	return &Ack{
		EventID:    n.ID,
		EventType:  n.Type,
		Outcome:    outcome,
		ExternalID: externalID,
		Transition: t,
	}
}

func outcomeOf(t *Transition) Outcome {
	switch {
	case t == nil:
		return OutcomeNoop
	case t.Changed:
		return OutcomeApplied
	case t.Skipped == SkipDuplicate:
		return OutcomeDuplicate
	default:
		return OutcomeNoop
	}
}

// begin records the delivery in the ledger and reports whether it was
// already processed successfully.
func (r *Receiver) begin(ctx context.Context, n *Notification) (*models.BillingWebhookEvent, bool, error) {
	if r.ledger == nil {
		return nil, false, nil
	}
	created, entry, err := r.ledger.CreateIfNotExists(ctx, &models.BillingWebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: n.ID,
		EventType:       n.Type,
		PayloadJSON:     string(n.Raw),
		SignatureValid:  true,
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: ledger: %v", ErrStore, err)
	}
	return entry, !created && entry.IsDone(), nil
}

func (r *Receiver) finish(ctx context.Context, entry *models.BillingWebhookEvent, ack *Ack, procErr error) {
	if r.ledger == nil || entry == nil {
		return
	}
	var externalID, msg string
	if ack != nil {
		externalID = ack.ExternalID
	}
	if procErr != nil {
		msg = procErr.Error()
	}
	if err := r.ledger.MarkProcessed(context.WithoutCancel(ctx), entry.ID, externalID, msg); err != nil {
		log.Errorf("[Billing] failed to mark event %s processed: %v", entry.ProviderEventID, err)
	}
}
