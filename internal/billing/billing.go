// Package billing reads subscription data from the payment provider.
// The broker only ever reads: period end for premium display. Plan
// transitions are driven by webhooks outside this core.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/mailveil/internal/observability/logger"
	"github.com/stripe/stripe-go/v76/client"
)

// ErrNoSubscription means the caller asked for a user without a
// subscription id. It is a caller bug, logged, never fatal.
var ErrNoSubscription = errors.New("billing: no subscription id")

type Provider interface {
	// PeriodEnd returns when the current billing period of the
	// subscription ends.
	PeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error)
}

type stripeProvider struct {
	api *client.API
}

// NewStripe builds a read-only Stripe-backed provider.
func NewStripe(apiKey string) Provider {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &stripeProvider{api: api}
}

func (p *stripeProvider) PeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error) {
	if subscriptionID == "" {
		logger.From(ctx).Error("period end requested without subscription id")
		return time.Time{}, ErrNoSubscription
	}
	sub, err := p.api.Subscriptions.Get(subscriptionID, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("billing: fetch subscription: %w", err)
	}
	return time.Unix(sub.CurrentPeriodEnd, 0).UTC(), nil
}
