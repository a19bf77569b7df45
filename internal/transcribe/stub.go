package transcribe

import "context"

// StubClient returns a canned transcript (for development/testing).
type StubClient struct{}

func (s *StubClient) Transcribe(_ context.Context, mediaRef string) (*Result, error) {
	text := "This is a stub transcript for " + mediaRef + ". " +
		"Today we consider what it means to walk in grace and truth, " +
		"how hope sustains a community through exile, and what practical " +
		"steps each of us can take this week to serve our neighbors well."
	return &Result{Text: text, Language: "en"}, nil
}
