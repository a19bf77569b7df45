package quota

import (
	"context"
	"testing"
	"time"

	"sermonflow/internal/model"
)

// mockStore is an in-memory QuotaStore.
type mockStore struct {
	sub        *model.Subscription
	usage      *model.UsageCounter
	increments int
}

func (m *mockStore) GetSubscription(_ context.Context, _ string) (*model.Subscription, error) {
	return m.sub, nil
}

func (m *mockStore) GetUsage(_ context.Context, _ string) (*model.UsageCounter, error) {
	return m.usage, nil
}

func (m *mockStore) IncrementUsage(_ context.Context, _ string, start, end time.Time) error {
	m.increments++
	if m.usage == nil || !m.usage.PeriodStart.Equal(start) {
		m.usage = &model.UsageCounter{OwnerID: "owner-1", PeriodStart: start, PeriodEnd: end, Count: 1}
		return nil
	}
	m.usage.Count++
	return nil
}

func newController(s *mockStore, now time.Time) *Controller {
	c := New(s, 3, 5)
	c.now = func() time.Time { return now }
	return c
}

var testNow = time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)

func TestFreeTierUsesCalendarMonth(t *testing.T) {
	s := &mockStore{}
	c := newController(s, testNow)

	adm, err := c.Check(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !adm.Allowed {
		t.Error("fresh free-tier owner should be allowed")
	}
	if adm.Limit != 3 {
		t.Errorf("Limit = %d, want free tier 3", adm.Limit)
	}
	wantEnd := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	if !adm.PeriodEnd.Equal(wantEnd) {
		t.Errorf("PeriodEnd = %v, want %v", adm.PeriodEnd, wantEnd)
	}
}

func TestDeniesAtLimit(t *testing.T) {
	start, end := calendarMonth(testNow)
	s := &mockStore{
		sub: &model.Subscription{
			OwnerID: "owner-1", Status: model.PlanActive, MonthlyLimit: 4,
			PeriodStart: &start, PeriodEnd: &end,
		},
		usage: &model.UsageCounter{OwnerID: "owner-1", PeriodStart: start, PeriodEnd: end, Count: 4},
	}
	c := newController(s, testNow)

	adm, err := c.Check(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if adm.Allowed {
		t.Error("owner at current=4, limit=4 must be denied")
	}
	if adm.Current != 4 {
		t.Errorf("Current = %d, want 4", adm.Current)
	}
	if adm.Reason != ReasonLimitReached {
		t.Errorf("Reason = %q, want %q", adm.Reason, ReasonLimitReached)
	}
}

func TestUnlimitedAlwaysAllows(t *testing.T) {
	start, end := calendarMonth(testNow)
	s := &mockStore{
		sub: &model.Subscription{
			OwnerID: "owner-1", Status: model.PlanActive, MonthlyLimit: model.UnlimitedJobs,
			PeriodStart: &start, PeriodEnd: &end,
		},
		usage: &model.UsageCounter{OwnerID: "owner-1", PeriodStart: start, PeriodEnd: end, Count: 9999},
	}
	c := newController(s, testNow)

	adm, err := c.Check(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !adm.Allowed {
		t.Error("unlimited plan must always allow")
	}
	if !adm.IsUnlimited {
		t.Error("IsUnlimited should be true")
	}
}

func TestInactiveSubscriptionDenied(t *testing.T) {
	s := &mockStore{
		sub: &model.Subscription{OwnerID: "owner-1", Status: model.PlanPastDue, MonthlyLimit: 10},
	}
	c := newController(s, testNow)

	adm, err := c.Check(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if adm.Allowed {
		t.Error("past-due subscription must be denied")
	}
	if adm.Reason != ReasonInactive {
		t.Errorf("Reason = %q, want %q", adm.Reason, ReasonInactive)
	}
}

func TestTrialLimits(t *testing.T) {
	trialEnd := testNow.Add(7 * 24 * time.Hour)
	sub := &model.Subscription{OwnerID: "owner-1", Status: model.PlanTrialing, MonthlyLimit: 10, TrialEndsAt: &trialEnd}
	s := &mockStore{sub: sub}
	c := newController(s, testNow)

	adm, err := c.Check(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !adm.Allowed || !adm.IsTrial {
		t.Errorf("fresh trial should be allowed, got %+v", adm)
	}
	if adm.Limit != 5 {
		t.Errorf("trial limit = %d, want 5", adm.Limit)
	}

	s.usage = &model.UsageCounter{
		OwnerID:     "owner-1",
		PeriodStart: trialEnd.Add(-trialWindow),
		PeriodEnd:   trialEnd,
		Count:       5,
	}
	adm, err = c.Check(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if adm.Allowed {
		t.Error("exhausted trial must be denied")
	}
	if adm.Reason != ReasonTrialLimit {
		t.Errorf("Reason = %q, want %q", adm.Reason, ReasonTrialLimit)
	}
}

func TestStaleUsageCountsAsZero(t *testing.T) {
	lastMonthStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s := &mockStore{
		usage: &model.UsageCounter{
			OwnerID:     "owner-1",
			PeriodStart: lastMonthStart,
			PeriodEnd:   lastMonthStart.AddDate(0, 1, 0),
			Count:       3,
		},
	}
	c := newController(s, testNow)

	adm, err := c.Check(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !adm.Allowed {
		t.Error("usage from a previous period must not count")
	}
	if adm.Current != 0 {
		t.Errorf("Current = %d, want 0 after rollover", adm.Current)
	}
}

func TestRecordJobStart(t *testing.T) {
	s := &mockStore{}
	c := newController(s, testNow)

	if err := c.RecordJobStart(context.Background(), "owner-1"); err != nil {
		t.Fatalf("RecordJobStart: %v", err)
	}
	if s.increments != 1 {
		t.Errorf("increments = %d, want 1", s.increments)
	}

	adm, _ := c.Check(context.Background(), "owner-1")
	if adm.Current != 1 {
		t.Errorf("Current = %d, want 1 after job start", adm.Current)
	}
}
