package engine

import (
	"context"

	"sermonflow/internal/transcribe"
)

// GenerationContext carries optional per-sermon context into a generation call.
type GenerationContext struct {
	Title    string
	Language string
}

// GenerationResult is the raw model output plus whether the upstream service
// reported it as possibly truncated (the completion hit its token ceiling).
type GenerationResult struct {
	Text      string
	Truncated bool
}

// ContentClient abstracts the generative language model. The client never
// parses the response; extraction and validation happen downstream.
type ContentClient interface {
	Generate(ctx context.Context, contentType, transcript string, gc GenerationContext) (*GenerationResult, error)
}

// Transcriber abstracts transcript derivation by source type.
type Transcriber interface {
	Transcribe(ctx context.Context, sourceType, mediaRef string) (*transcribe.Result, error)
}

// ---------------------------------------------------------------------------
// Generated payload schemas, one per content type. Each generation task owns
// its schema; the extractor returns the matching variant.
// ---------------------------------------------------------------------------

// NotesPayload is the structured-notes package: sections of labeled points,
// some of which are fill-in-the-blank with an answer.
type NotesPayload struct {
	Title    string         `json:"title"`
	Sections []NotesSection `json:"sections"`
}

type NotesSection struct {
	Heading string       `json:"heading"`
	Points  []NotesPoint `json:"points"`
}

type NotesPoint struct {
	Text        string `json:"text"`
	FillInBlank bool   `json:"fill_in_blank"`
	Answer      string `json:"answer,omitempty"`
}

// DevotionalPayload is a short devotional reading.
type DevotionalPayload struct {
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Scriptures []string `json:"scriptures"`
	Keywords   []string `json:"keywords"`
}

// DiscussionGuidePayload is a small-group discussion guide.
type DiscussionGuidePayload struct {
	Icebreaker           string              `json:"icebreaker"`
	Questions            []ScriptureQuestion `json:"questions"`
	ApplicationQuestions []string            `json:"application_questions"`
	Activity             string              `json:"activity"`
	PrayerPoints         []string            `json:"prayer_points"`
}

type ScriptureQuestion struct {
	Question  string `json:"question"`
	Scripture string `json:"scripture"`
}

// SocialMediaPayload is a social kit: shareable quotes with per-platform
// captions, plus hashtags and a posting plan.
type SocialMediaPayload struct {
	Quotes      []SocialQuote `json:"quotes"`
	Hashtags    []string      `json:"hashtags"`
	PostingPlan string        `json:"posting_plan"`
}

type SocialQuote struct {
	Quote            string `json:"quote"`
	InstagramCaption string `json:"instagram_caption"`
	TwitterCaption   string `json:"twitter_caption"`
	FacebookCaption  string `json:"facebook_caption"`
}
