// Package transcribe derives text transcripts from sermon source media.
// Audio and video go through Whisper; manuscript URLs go through readable-text
// extraction. Clients perform a single attempt; retry policy belongs to the
// pipeline orchestrator.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"

	"sermonflow/internal/model"
)

// Failure kinds. The orchestrator maps these onto job-terminal errors.
var (
	ErrSourceUnavailable   = errors.New("source unavailable")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrTranscriptTooShort  = errors.New("transcript too short")
)

// Result is a derived transcript plus the detected language (ISO 639-1,
// empty when detection is inconclusive).
type Result struct {
	Text     string
	Language string
}

// Client produces a transcript from one media reference.
type Client interface {
	Transcribe(ctx context.Context, mediaRef string) (*Result, error)
}

// Router dispatches to the right client for a sermon's source type.
type Router struct {
	Media    Client // audio and video
	Document Client // manuscript / article URLs
}

// Transcribe routes by source type.
func (r *Router) Transcribe(ctx context.Context, sourceType, mediaRef string) (*Result, error) {
	switch sourceType {
	case model.SourceAudio, model.SourceVideo:
		return r.Media.Transcribe(ctx, mediaRef)
	case model.SourceDocument:
		return r.Document.Transcribe(ctx, mediaRef)
	default:
		return nil, fmt.Errorf("%w: unknown source type %q", ErrSourceUnavailable, sourceType)
	}
}

// checkLength enforces the minimum usable transcript length.
func checkLength(text string, minChars int) error {
	if utf8.RuneCountInString(text) < minChars {
		return fmt.Errorf("%w: %d chars, need %d", ErrTranscriptTooShort, utf8.RuneCountInString(text), minChars)
	}
	return nil
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// detectLanguage returns the lowercase ISO 639-1 code of the text's language,
// or "" when detection is inconclusive. The detector is built once; building
// it is expensive.
func detectLanguage(text string) string {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().FromAllLanguages().Build()
	})
	lang, ok := detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
