// Package billing pulls revenue figures from Stripe for reports.
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/charge"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/subscription"

	"github.com/linkhub/autopilot/internal/config"
)

// Stats is a snapshot of Stripe revenue for reports. Amounts are in
// whole currency units.
type Stats struct {
	MRR                 float64   `json:"mrr"`
	RevenueThisMonth    float64   `json:"revenue_this_month"`
	ActiveSubscriptions int       `json:"active_subscriptions"`
	NewCustomersToday   int       `json:"new_customers_today"`
	NewCustomersWeek    int       `json:"new_customers_week"`
	ChurnedThisMonth    int       `json:"churned_this_month"`
	AsOf                time.Time `json:"as_of"`
}

// Clock returns the current time. Injectable for tests.
type Clock func() time.Time

// Client wraps the Stripe revenue queries.
type Client struct {
	cfg config.StripeConfig
	now Clock
}

// NewClient sets the global API key and returns a revenue client.
func NewClient(cfg config.StripeConfig, now Clock) *Client {
	stripe.Key = cfg.SecretKey
	if now == nil {
		now = time.Now
	}
	return &Client{cfg: cfg, now: now}
}

// Configured reports whether revenue stats can be fetched.
func (c *Client) Configured() bool {
	return c.cfg.Enabled && c.cfg.SecretKey != ""
}

// Fetch gathers revenue stats. Reports go out with zeroed figures when
// Stripe is not configured, so that case returns nil error.
func (c *Client) Fetch(ctx context.Context) (Stats, error) {
	now := c.now().UTC()
	if !c.Configured() {
		return Stats{AsOf: now}, nil
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	startOfWeek := startOfDay.AddDate(0, 0, -7)
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	stats := Stats{AsOf: now}

	subParams := &stripe.SubscriptionListParams{
		Status: stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	subParams.Limit = stripe.Int64(100)
	subParams.Context = ctx
	subIter := subscription.List(subParams)
	for subIter.Next() {
		sub := subIter.Subscription()
		stats.ActiveSubscriptions++
		if sub.Items != nil {
			stats.MRR += monthlyValue(sub.Items.Data)
		}
	}
	if err := subIter.Err(); err != nil {
		return Stats{AsOf: now}, fmt.Errorf("list subscriptions: %w", err)
	}

	chargeParams := &stripe.ChargeListParams{
		CreatedRange: &stripe.RangeQueryParams{GreaterThanOrEqual: startOfMonth.Unix()},
	}
	chargeParams.Limit = stripe.Int64(100)
	chargeParams.Context = ctx
	chargeIter := charge.List(chargeParams)
	for chargeIter.Next() {
		ch := chargeIter.Charge()
		if ch.Status == stripe.ChargeStatusSucceeded {
			stats.RevenueThisMonth += float64(ch.Amount) / 100
		}
	}
	if err := chargeIter.Err(); err != nil {
		return Stats{AsOf: now}, fmt.Errorf("list charges: %w", err)
	}

	var err error
	if stats.NewCustomersToday, err = c.countCustomersSince(ctx, startOfDay); err != nil {
		return Stats{AsOf: now}, err
	}
	if stats.NewCustomersWeek, err = c.countCustomersSince(ctx, startOfWeek); err != nil {
		return Stats{AsOf: now}, err
	}

	churnParams := &stripe.SubscriptionListParams{
		Status:       stripe.String(string(stripe.SubscriptionStatusCanceled)),
		CreatedRange: &stripe.RangeQueryParams{GreaterThanOrEqual: startOfMonth.Unix()},
	}
	churnParams.Limit = stripe.Int64(100)
	churnParams.Context = ctx
	churnIter := subscription.List(churnParams)
	for churnIter.Next() {
		stats.ChurnedThisMonth++
	}
	if err := churnIter.Err(); err != nil {
		return Stats{AsOf: now}, fmt.Errorf("list canceled subscriptions: %w", err)
	}

	return stats, nil
}

func (c *Client) countCustomersSince(ctx context.Context, since time.Time) (int, error) {
	params := &stripe.CustomerListParams{
		CreatedRange: &stripe.RangeQueryParams{GreaterThanOrEqual: since.Unix()},
	}
	params.Limit = stripe.Int64(100)
	params.Context = ctx
	iter := customer.List(params)
	n := 0
	for iter.Next() {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("list customers: %w", err)
	}
	return n, nil
}

// monthlyValue normalizes subscription items to a monthly amount.
// Yearly prices contribute one twelfth; other intervals are ignored.
func monthlyValue(items []*stripe.SubscriptionItem) float64 {
	var total float64
	for _, item := range items {
		if item.Price == nil || item.Price.Recurring == nil {
			continue
		}
		amount := float64(item.Price.UnitAmount) / 100
		switch item.Price.Recurring.Interval {
		case stripe.PriceRecurringIntervalMonth:
			total += amount
		case stripe.PriceRecurringIntervalYear:
			total += amount / 12
		}
	}
	return total
}
