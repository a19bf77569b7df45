package model

import "time"

// UnlimitedJobs is the sentinel limit for plans without a job cap.
const UnlimitedJobs = -1

// Plan status constants
const (
	PlanActive   = "active"
	PlanTrialing = "trialing"
	PlanPastDue  = "past_due"
	PlanCanceled = "canceled"
)

// Subscription holds the billing state the admission controller reads.
// Billing itself (checkout, webhooks) is an external collaborator; only the
// fields needed for admission live here.
type Subscription struct {
	OwnerID      string     `json:"owner_id"`
	Status       string     `json:"status"`
	MonthlyLimit int        `json:"monthly_limit"`
	PeriodStart  *time.Time `json:"period_start,omitempty"`
	PeriodEnd    *time.Time `json:"period_end,omitempty"`
	TrialEndsAt  *time.Time `json:"trial_ends_at,omitempty"`
}

// IsTrial reports whether the subscription is in its trial window at t.
func (s *Subscription) IsTrial(t time.Time) bool {
	return s.Status == PlanTrialing && s.TrialEndsAt != nil && t.Before(*s.TrialEndsAt)
}

// UsageCounter tracks job starts for one owner within one counting period.
// The count is monotonically non-decreasing within a period and resets on
// period rollover.
type UsageCounter struct {
	OwnerID     string    `json:"owner_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Count       int       `json:"count"`
	UpdatedAt   string    `json:"updated_at"`
}

// Admission is the result of the pre-flight quota check.
type Admission struct {
	Allowed     bool      `json:"allowed"`
	Current     int       `json:"current"`
	Limit       int       `json:"limit"`
	IsUnlimited bool      `json:"is_unlimited"`
	IsTrial     bool      `json:"is_trial"`
	PeriodEnd   time.Time `json:"period_end"`
	Reason      string    `json:"reason,omitempty"`
}
