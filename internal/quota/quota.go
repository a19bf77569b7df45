// Package quota implements pre-flight admission control for sermon jobs.
// Every job start passes through Check before any pipeline work begins.
package quota

import (
	"context"
	"fmt"
	"time"

	"sermonflow/internal/model"
)

// Store is the persistence surface the controller needs.
type Store interface {
	GetSubscription(ctx context.Context, ownerID string) (*model.Subscription, error)
	GetUsage(ctx context.Context, ownerID string) (*model.UsageCounter, error)
	IncrementUsage(ctx context.Context, ownerID string, periodStart, periodEnd time.Time) error
}

// Denial reasons surfaced to callers.
const (
	ReasonInactive     = "subscription inactive or past due"
	ReasonLimitReached = "monthly sermon limit reached"
	ReasonTrialLimit   = "trial sermon limit reached"
)

// trialWindow is the assumed trial length when the billing record carries no
// explicit period start.
const trialWindow = 14 * 24 * time.Hour

// Controller decides whether a new job may start for an owner.
type Controller struct {
	store      Store
	freeLimit  int
	trialLimit int
	now        func() time.Time
}

// New creates a Controller. freeLimit applies to owners without a
// subscription, trialLimit to owners inside a trial window.
func New(store Store, freeLimit, trialLimit int) *Controller {
	return &Controller{
		store:      store,
		freeLimit:  freeLimit,
		trialLimit: trialLimit,
		now:        time.Now,
	}
}

// Check resolves the owner's plan and usage and decides admission.
// It mutates nothing.
func (c *Controller) Check(ctx context.Context, ownerID string) (model.Admission, error) {
	now := c.now().UTC()

	sub, err := c.store.GetSubscription(ctx, ownerID)
	if err != nil {
		return model.Admission{}, fmt.Errorf("resolve subscription: %w", err)
	}

	limit, start, end, isTrial := c.resolvePlan(sub, now)

	adm := model.Admission{
		Limit:       limit,
		IsUnlimited: limit == model.UnlimitedJobs,
		IsTrial:     isTrial,
		PeriodEnd:   end,
	}

	// A paid subscription that is no longer active blocks new jobs outright.
	if sub != nil && !isTrial && sub.Status != model.PlanActive {
		adm.Reason = ReasonInactive
		return adm, nil
	}

	current, err := c.currentCount(ctx, ownerID, start, now)
	if err != nil {
		return model.Admission{}, err
	}
	adm.Current = current

	if adm.IsUnlimited {
		adm.Allowed = true
		return adm, nil
	}

	if current >= limit {
		if isTrial {
			adm.Reason = ReasonTrialLimit
		} else {
			adm.Reason = ReasonLimitReached
		}
		return adm, nil
	}

	adm.Allowed = true
	return adm, nil
}

// RecordJobStart increments the owner's counter for the active period.
// Called exactly once per admitted job, before the pipeline runs.
func (c *Controller) RecordJobStart(ctx context.Context, ownerID string) error {
	now := c.now().UTC()
	sub, err := c.store.GetSubscription(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("resolve subscription: %w", err)
	}
	_, start, end, _ := c.resolvePlan(sub, now)
	if err := c.store.IncrementUsage(ctx, ownerID, start, end); err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

// resolvePlan maps the subscription state onto a limit and counting period.
// Owners without a subscription are on the free tier, counted per calendar
// month. Trialing owners are counted over the trial window.
func (c *Controller) resolvePlan(sub *model.Subscription, now time.Time) (limit int, start, end time.Time, isTrial bool) {
	if sub == nil {
		start, end = calendarMonth(now)
		return c.freeLimit, start, end, false
	}

	if sub.IsTrial(now) {
		end = sub.TrialEndsAt.UTC()
		if sub.PeriodStart != nil {
			start = sub.PeriodStart.UTC()
		} else {
			start = end.Add(-trialWindow)
		}
		return c.trialLimit, start, end, true
	}

	if sub.PeriodStart != nil && sub.PeriodEnd != nil {
		start, end = sub.PeriodStart.UTC(), sub.PeriodEnd.UTC()
	} else {
		start, end = calendarMonth(now)
	}
	return sub.MonthlyLimit, start, end, false
}

// currentCount reads the usage counter, treating a counter from a previous
// period as zero. The stored row rolls over on the next increment.
func (c *Controller) currentCount(ctx context.Context, ownerID string, periodStart, now time.Time) (int, error) {
	usage, err := c.store.GetUsage(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("read usage: %w", err)
	}
	if usage == nil {
		return 0, nil
	}
	if !usage.PeriodStart.Equal(periodStart) || !now.Before(usage.PeriodEnd) {
		return 0, nil
	}
	return usage.Count, nil
}

// calendarMonth returns the UTC calendar month containing t.
func calendarMonth(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
