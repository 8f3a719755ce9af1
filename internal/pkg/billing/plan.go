package billing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ManuelReschke/SubGate/app/models"
	"github.com/ManuelReschke/SubGate/internal/pkg/env"
)

// ErrUnknownPeriod is returned for a billing period the service does not sell.
var ErrUnknownPeriod = errors.New("unknown billing period")

// PriceTable maps each billing period to its Stripe price id.
type PriceTable map[models.BillingPeriod]string

// PriceTableFromEnv reads STRIPE_PRICE_DAILY, STRIPE_PRICE_MONTHLY,
// STRIPE_PRICE_BI_ANNUALLY and STRIPE_PRICE_ANNUALLY. Unset periods are left
// out.
func PriceTableFromEnv() PriceTable {
	t := PriceTable{}
	for _, p := range models.BillingPeriods() {
		if price := strings.TrimSpace(env.GetEnv(priceEnvKey(p), "")); price != "" {
			t[p] = price
		}
	}
	return t
}

func priceEnvKey(p models.BillingPeriod) string {
	return "STRIPE_PRICE_" + strings.ToUpper(strings.ReplaceAll(string(p), "-", "_"))
}

// Lookup normalizes raw and returns the period and its price. An empty raw
// value selects the default period.
func (t PriceTable) Lookup(raw string) (models.BillingPeriod, string, error) {
	period := models.DefaultBillingPeriod
	if strings.TrimSpace(raw) != "" {
		p, ok := models.ParseBillingPeriod(raw)
		if !ok {
			return "", "", fmt.Errorf("%w: %q", ErrUnknownPeriod, raw)
		}
		period = p
	}
	price, ok := t[period]
	if !ok {
		return "", "", fmt.Errorf("%w: no price for %s", ErrNotConfigured, period)
	}
	return period, price, nil
}

// Periods lists the periods that have a price, in display order.
func (t PriceTable) Periods() []models.BillingPeriod {
	out := make([]models.BillingPeriod, 0, len(t))
	for _, p := range models.BillingPeriods() {
		if _, ok := t[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
