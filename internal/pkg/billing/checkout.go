package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// CheckoutConfig configures hosted checkout creation.
type CheckoutConfig struct {
	Prices      PriceTable
	SuccessURL  string
	CancelURL   string
	MetadataKey string
}

// CheckoutService starts a Stripe checkout for a user. The session and the
// resulting subscription carry the user id as metadata so that later events
// resolve directly.
type CheckoutService struct {
	creator SessionCreator
	cfg     CheckoutConfig
}

// NewCheckoutService creates the checkout collaborator. A nil creator leaves
// checkout unconfigured.
func NewCheckoutService(creator SessionCreator, cfg CheckoutConfig) *CheckoutService {
	if strings.TrimSpace(cfg.MetadataKey) == "" {
		cfg.MetadataKey = DefaultMetadataKey
	}
	return &CheckoutService{creator: creator, cfg: cfg}
}

// Periods lists the billing periods that can be bought.
func (s *CheckoutService) Periods() []string {
	periods := s.cfg.Prices.Periods()
	out := make([]string, 0, len(periods))
	for _, p := range periods {
		out = append(out, string(p))
	}
	return out
}

// Create opens a checkout session for externalID in the requested period.
func (s *CheckoutService) Create(ctx context.Context, externalID, period string) (*CheckoutSession, error) {
	id := strings.TrimSpace(externalID)
	if id == "" {
		return nil, fmt.Errorf("external id is required")
	}
	if s.creator == nil || s.cfg.SuccessURL == "" || s.cfg.CancelURL == "" {
		return nil, fmt.Errorf("%w: checkout", ErrNotConfigured)
	}
	p, price, err := s.cfg.Prices.Lookup(period)
	if err != nil {
		return nil, err
	}

	session, err := s.creator.CreateCheckoutSession(ctx, CheckoutRequest{
		ExternalID: id,
		PriceID:    price,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
		Metadata: map[string]string{
			s.cfg.MetadataKey: id,
			PeriodMetadataKey: string(p),
		},
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	log.Infof("[Billing] checkout %s created for %s (%s)", session.ID, id, p)
	return session, nil
}
