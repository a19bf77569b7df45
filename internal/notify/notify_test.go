package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebhookNotifier(t *testing.T) {
	var got CompletionEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, 2*time.Second)
	ev := CompletionEvent{
		SermonID: "s-1",
		OwnerID:  "owner-1",
		Title:    "On Grace",
		Results:  map[string]bool{"notes": true, "devotional": false},
	}
	if err := n.SermonCompleted(context.Background(), ev); err != nil {
		t.Fatalf("SermonCompleted: %v", err)
	}
	if got.SermonID != "s-1" || !got.Results["notes"] || got.Results["devotional"] {
		t.Errorf("received event = %+v", got)
	}
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, 2*time.Second)
	if err := n.SermonCompleted(context.Background(), CompletionEvent{}); err == nil {
		t.Error("expected error for HTTP 500")
	}
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) SermonCompleted(_ context.Context, _ CompletionEvent) error {
	f.calls++
	return errors.New("boom")
}

func TestMultiSwallowsFailures(t *testing.T) {
	a := &failingNotifier{}
	b := &failingNotifier{}
	m := Multi{a, b}

	if err := m.SermonCompleted(context.Background(), CompletionEvent{SermonID: "s-1"}); err != nil {
		t.Fatalf("Multi must not propagate failures, got %v", err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("all notifiers should be attempted: a=%d b=%d", a.calls, b.calls)
	}
}
