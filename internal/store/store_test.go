package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"sermonflow/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := New(db)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	return s
}

func TestCreateAndGetSermon(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sm := model.NewSermon("s-1", "owner-1", "Hope in Exile", model.SourceAudio, "uploads/hope.mp3")
	if err := s.CreateSermon(ctx, sm); err != nil {
		t.Fatalf("CreateSermon: %v", err)
	}

	got, err := s.GetSermon(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetSermon: %v", err)
	}
	if got.Title != "Hope in Exile" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Status != model.StatusProcessing {
		t.Errorf("Status = %q, want %q", got.Status, model.StatusProcessing)
	}
	if len(got.Artifacts) != 0 {
		t.Errorf("Artifacts = %d, want 0", len(got.Artifacts))
	}

	if _, err := s.GetSermon(ctx, "missing"); err != ErrNotFound {
		t.Errorf("GetSermon(missing) = %v, want ErrNotFound", err)
	}
}

func TestSetTranscriptIsWriteOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sm := model.NewSermon("s-1", "owner-1", "", model.SourceAudio, "ref")
	if err := s.CreateSermon(ctx, sm); err != nil {
		t.Fatalf("CreateSermon: %v", err)
	}

	if err := s.SetTranscript(ctx, "s-1", "first transcript", "en"); err != nil {
		t.Fatalf("SetTranscript: %v", err)
	}
	// A second write must not replace the transcript: reruns depend on it
	// staying stable.
	if err := s.SetTranscript(ctx, "s-1", "second transcript", "de"); err != nil {
		t.Fatalf("SetTranscript (second): %v", err)
	}

	got, err := s.GetSermon(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetSermon: %v", err)
	}
	if got.Transcript == nil || *got.Transcript != "first transcript" {
		t.Errorf("Transcript = %v, want first transcript", got.Transcript)
	}
	if got.Language == nil || *got.Language != "en" {
		t.Errorf("Language = %v, want en", got.Language)
	}
}

func TestClaimNextPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := model.NewSermon("s-1", "owner-1", "", model.SourceAudio, "ref-1")
	first.CreatedAt = "2026-01-01T00:00:00Z"
	second := model.NewSermon("s-2", "owner-1", "", model.SourceAudio, "ref-2")
	second.CreatedAt = "2026-01-02T00:00:00Z"
	for _, sm := range []model.Sermon{second, first} {
		if err := s.CreateSermon(ctx, sm); err != nil {
			t.Fatalf("CreateSermon: %v", err)
		}
	}

	claimed, err := s.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	if claimed == nil || claimed.ID != "s-1" {
		t.Fatalf("claimed = %v, want s-1 (oldest first)", claimed)
	}
	if claimed.Status != model.StatusTranscribing {
		t.Errorf("claimed status = %q, want %q", claimed.Status, model.StatusTranscribing)
	}

	if _, err := s.ClaimNextPending(ctx); err != nil {
		t.Fatalf("second claim: %v", err)
	}
	third, err := s.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("third claim: %v", err)
	}
	if third != nil {
		t.Errorf("third claim = %v, want nil (queue drained)", third)
	}
}

func TestResetStaleJobs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stuck := model.NewSermon("s-1", "owner-1", "", model.SourceAudio, "ref")
	if err := s.CreateSermon(ctx, stuck); err != nil {
		t.Fatalf("CreateSermon: %v", err)
	}
	if err := s.UpdateSermonStatus(ctx, "s-1", model.StatusGenerating, nil); err != nil {
		t.Fatalf("UpdateSermonStatus: %v", err)
	}

	done := model.NewSermon("s-2", "owner-1", "", model.SourceAudio, "ref")
	if err := s.CreateSermon(ctx, done); err != nil {
		t.Fatalf("CreateSermon: %v", err)
	}
	if err := s.UpdateSermonStatus(ctx, "s-2", model.StatusComplete, nil); err != nil {
		t.Fatalf("UpdateSermonStatus: %v", err)
	}

	n, err := s.ResetStaleJobs(ctx)
	if err != nil {
		t.Fatalf("ResetStaleJobs: %v", err)
	}
	if n != 1 {
		t.Errorf("reset count = %d, want 1", n)
	}

	got, _ := s.GetSermon(ctx, "s-1")
	if got.Status != model.StatusProcessing {
		t.Errorf("stuck sermon status = %q, want %q", got.Status, model.StatusProcessing)
	}
	got, _ = s.GetSermon(ctx, "s-2")
	if got.Status != model.StatusComplete {
		t.Errorf("complete sermon status = %q, should be untouched", got.Status)
	}
}

func TestUpsertArtifactIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sm := model.NewSermon("s-1", "owner-1", "", model.SourceAudio, "ref")
	if err := s.CreateSermon(ctx, sm); err != nil {
		t.Fatalf("CreateSermon: %v", err)
	}

	a1 := model.NewArtifact("a-1", "s-1", model.ContentNotes, `{"v":1}`)
	a2 := model.NewArtifact("a-2", "s-1", model.ContentNotes, `{"v":2}`)
	if err := s.UpsertArtifact(ctx, a1); err != nil {
		t.Fatalf("UpsertArtifact: %v", err)
	}
	if err := s.UpsertArtifact(ctx, a2); err != nil {
		t.Fatalf("UpsertArtifact (replace): %v", err)
	}

	artifacts, err := s.GetArtifacts(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetArtifacts: %v", err)
	}
	if len(artifacts) != 1 {
		t.Fatalf("artifact count = %d, want 1 (upsert, not append)", len(artifacts))
	}
	if artifacts[0].Payload != `{"v":2}` {
		t.Errorf("payload = %q, want the second write", artifacts[0].Payload)
	}

	other := model.NewArtifact("a-3", "s-1", model.ContentDevotional, `{}`)
	if err := s.UpsertArtifact(ctx, other); err != nil {
		t.Fatalf("UpsertArtifact (other type): %v", err)
	}
	artifacts, _ = s.GetArtifacts(ctx, "s-1")
	if len(artifacts) != 2 {
		t.Errorf("artifact count = %d, want 2 (one per type)", len(artifacts))
	}
}

func TestSubscriptionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if sub, err := s.GetSubscription(ctx, "owner-1"); err != nil || sub != nil {
		t.Fatalf("GetSubscription(missing) = %v, %v; want nil, nil", sub, err)
	}

	end := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, -1, 0)
	sub := model.Subscription{
		OwnerID:      "owner-1",
		Status:       model.PlanActive,
		MonthlyLimit: 10,
		PeriodStart:  &start,
		PeriodEnd:    &end,
	}
	if err := s.UpsertSubscription(ctx, sub); err != nil {
		t.Fatalf("UpsertSubscription: %v", err)
	}

	got, err := s.GetSubscription(ctx, "owner-1")
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if got.MonthlyLimit != 10 || got.Status != model.PlanActive {
		t.Errorf("got = %+v", got)
	}
	if got.PeriodEnd == nil || !got.PeriodEnd.Equal(end) {
		t.Errorf("PeriodEnd = %v, want %v", got.PeriodEnd, end)
	}
	if got.TrialEndsAt != nil {
		t.Errorf("TrialEndsAt = %v, want nil", got.TrialEndsAt)
	}
}

func TestIncrementUsageRollsOverPeriods(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p1start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	p1end := p1start.AddDate(0, 1, 0)
	for i := 0; i < 3; i++ {
		if err := s.IncrementUsage(ctx, "owner-1", p1start, p1end); err != nil {
			t.Fatalf("IncrementUsage: %v", err)
		}
	}

	c, err := s.GetUsage(ctx, "owner-1")
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if c.Count != 3 {
		t.Errorf("count = %d, want 3", c.Count)
	}

	// New period: counter restarts at 1.
	p2start := p1end
	p2end := p2start.AddDate(0, 1, 0)
	if err := s.IncrementUsage(ctx, "owner-1", p2start, p2end); err != nil {
		t.Fatalf("IncrementUsage (rollover): %v", err)
	}
	c, err = s.GetUsage(ctx, "owner-1")
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if c.Count != 1 {
		t.Errorf("count after rollover = %d, want 1", c.Count)
	}
	if !c.PeriodStart.Equal(p2start) {
		t.Errorf("PeriodStart = %v, want %v", c.PeriodStart, p2start)
	}
}
