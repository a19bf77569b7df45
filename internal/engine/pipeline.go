package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"sermonflow/internal/model"
	"sermonflow/internal/notify"
	"sermonflow/internal/transcribe"
)

// Store is the persistence surface the pipeline needs. Only the pipeline
// writes sermon status and transcript.
type Store interface {
	GetSermon(ctx context.Context, id string) (*model.SermonWithArtifacts, error)
	UpdateSermonStatus(ctx context.Context, id, newStatus string, errorInfo *string) error
	SetTranscript(ctx context.Context, id, transcript, language string) error
	UpsertArtifact(ctx context.Context, a model.Artifact) error
}

// Pipeline orchestrates a sermon job: transcription, the concurrent
// generation fan-out, and status finalization.
type Pipeline struct {
	store       Store
	transcriber Transcriber
	generator   ContentClient
	notifier    notify.Notifier

	retries            int
	minTranscriptChars int
	retryDelay         func(attempt int) time.Duration
}

// PipelineOption configures the pipeline.
type PipelineOption func(*Pipeline)

// WithRetries sets the attempt count for transient step failures.
func WithRetries(n int) PipelineOption {
	return func(p *Pipeline) { p.retries = n }
}

// WithMinTranscriptChars sets the minimum usable transcript length.
func WithMinTranscriptChars(n int) PipelineOption {
	return func(p *Pipeline) { p.minTranscriptChars = n }
}

// WithRetryDelay overrides the backoff between attempts.
func WithRetryDelay(f func(attempt int) time.Duration) PipelineOption {
	return func(p *Pipeline) { p.retryDelay = f }
}

// NewPipeline creates a pipeline with the given collaborators. notifier may
// be nil to disable completion events.
func NewPipeline(s Store, t Transcriber, g ContentClient, n notify.Notifier, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:              s,
		transcriber:        t,
		generator:          g,
		notifier:           n,
		retries:            3,
		minTranscriptChars: 100,
		retryDelay: func(attempt int) time.Duration {
			return time.Duration(attempt) * 2 * time.Second
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunJob runs the full pipeline for a sermon: transcription (unless skipped
// or already present) followed by the generation fan-out for every content
// type. It returns the per-content-type success map. The job ends COMPLETE
// as long as the fan-out settled, even when individual tasks failed; only
// transcription and persistence failures end it in ERROR.
func (p *Pipeline) RunJob(ctx context.Context, sermonID, ownerID string, skipTranscription bool) (map[string]bool, error) {
	return p.run(ctx, sermonID, ownerID, skipTranscription, model.ContentTypes)
}

// GenerateOne runs the same pipeline for a single content type: the same
// transcript and ownership checks apply, the fan-out just has one task.
func (p *Pipeline) GenerateOne(ctx context.Context, sermonID, ownerID, contentType string) (map[string]bool, error) {
	if !model.ValidContentType(contentType) {
		return nil, fmt.Errorf("unknown content type %q", contentType)
	}
	return p.run(ctx, sermonID, ownerID, false, []string{contentType})
}

func (p *Pipeline) run(ctx context.Context, sermonID, ownerID string, skipTranscription bool, types []string) (map[string]bool, error) {
	sw, err := p.store.GetSermon(ctx, sermonID)
	if err != nil {
		return nil, &StepError{Step: "load", Kind: KindPersistenceFailure, Attempts: 1, Err: err}
	}
	sermon := &sw.Sermon
	if sermon.OwnerID != ownerID {
		return nil, fmt.Errorf("sermon %s does not belong to owner %s", sermonID, ownerID)
	}

	transcript, language := "", ""
	if sermon.HasTranscript() {
		transcript = *sermon.Transcript
		if sermon.Language != nil {
			language = *sermon.Language
		}
		// Transcripts supplied at intake bypass the transcription clients, so
		// the minimum-length gate applies here too.
		if utf8.RuneCountInString(transcript) < p.minTranscriptChars {
			serr := &StepError{Step: "transcribe", Kind: KindTranscriptTooShort, Attempts: 1,
				Err: fmt.Errorf("transcript is %d chars, need %d", utf8.RuneCountInString(transcript), p.minTranscriptChars)}
			p.fail(ctx, sermon, serr)
			return nil, serr
		}
	}

	if transcript == "" {
		if skipTranscription {
			serr := &StepError{Step: "transcribe", Kind: KindTranscriptionFailed,
				Err: errors.New("transcription skipped but no transcript exists")}
			p.fail(ctx, sermon, serr)
			return nil, serr
		}
		if sermon.MediaRef == "" {
			serr := &StepError{Step: "transcribe", Kind: KindSourceUnavailable,
				Err: errors.New("no media reference")}
			p.fail(ctx, sermon, serr)
			return nil, serr
		}

		if err := p.setStatus(ctx, sermon, model.StatusTranscribing, nil); err != nil {
			return nil, err
		}
		res, serr := p.transcribeWithRetry(ctx, sermon)
		if serr != nil {
			p.fail(ctx, sermon, serr)
			return nil, serr
		}
		// Write-once: a replayed job sees the stored transcript instead.
		if err := p.store.SetTranscript(ctx, sermon.ID, res.Text, res.Language); err != nil {
			serr := &StepError{Step: "persist_transcript", Kind: KindPersistenceFailure, Attempts: 1, Err: err}
			p.fail(ctx, sermon, serr)
			return nil, serr
		}
		transcript, language = res.Text, res.Language
	}

	if err := p.setStatus(ctx, sermon, model.StatusGenerating, nil); err != nil {
		return nil, err
	}

	outcomes := p.fanOut(ctx, sermon, transcript, language, types)

	results := make(map[string]bool, len(outcomes))
	for _, o := range outcomes {
		results[o.ContentType] = o.Err == nil
		if o.Err != nil {
			slog.Error("generation task failed",
				"sermon_id", sermon.ID,
				"content_type", o.ContentType,
				"attempts", o.Attempts,
				"error", o.Err)
		}
	}

	// The job is complete once every task settled, regardless of how many
	// succeeded; callers inspect the success map.
	if err := p.setStatus(ctx, sermon, model.StatusComplete, nil); err != nil {
		return results, err
	}

	p.emitCompletion(sermon, results)
	return results, nil
}

// transcribeWithRetry runs the transcription step with bounded retry.
// A too-short transcript is deterministic and not retried.
func (p *Pipeline) transcribeWithRetry(ctx context.Context, sermon *model.Sermon) (*transcribe.Result, *StepError) {
	var lastErr error
	for attempt := 1; attempt <= p.retries; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, attempt-1); err != nil {
				break
			}
		}

		res, err := p.transcriber.Transcribe(ctx, sermon.SourceType, sermon.MediaRef)
		if err == nil {
			return res, nil
		}
		lastErr = err
		slog.Warn("transcription attempt failed",
			"sermon_id", sermon.ID, "attempt", attempt, "error", err)

		if errors.Is(err, transcribe.ErrTranscriptTooShort) {
			return nil, &StepError{Step: "transcribe", Kind: KindTranscriptTooShort, Attempts: attempt, Err: err}
		}
		if ctx.Err() != nil {
			break
		}
	}

	kind := KindTranscriptionFailed
	if errors.Is(lastErr, transcribe.ErrSourceUnavailable) {
		kind = KindSourceUnavailable
	}
	return nil, &StepError{Step: "transcribe", Kind: kind, Attempts: p.retries, Err: lastErr}
}

// setStatus validates and writes a status transition, keeping the in-memory
// sermon in sync. Writing the current status again is a no-op so replays
// stay idempotent.
func (p *Pipeline) setStatus(ctx context.Context, sermon *model.Sermon, status string, errorInfo *string) error {
	if sermon.Status == status {
		return nil
	}
	if err := sermon.ValidateTransition(status); err != nil {
		return err
	}
	if err := p.store.UpdateSermonStatus(ctx, sermon.ID, status, errorInfo); err != nil {
		return &StepError{Step: "set_status", Kind: KindPersistenceFailure, Attempts: 1, Err: err}
	}
	sermon.Status = status
	return nil
}

// fail records a job-fatal error and moves the sermon to ERROR.
func (p *Pipeline) fail(ctx context.Context, sermon *model.Sermon, serr *StepError) {
	info := model.ErrorInfo{
		FailedStep: serr.Step,
		Kind:       serr.Kind,
		Message:    serr.Err.Error(),
		Attempts:   serr.Attempts,
		FailedAt:   time.Now().UTC().Format(time.RFC3339),
	}.ToJSON()

	if err := p.setStatus(ctx, sermon, model.StatusError, &info); err != nil {
		slog.Error("failed to record job error", "sermon_id", sermon.ID, "error", err)
	}
}

// emitCompletion sends the completion event without blocking the job.
func (p *Pipeline) emitCompletion(sermon *model.Sermon, results map[string]bool) {
	if p.notifier == nil {
		return
	}
	ev := notify.CompletionEvent{
		SermonID: sermon.ID,
		OwnerID:  sermon.OwnerID,
		Title:    sermon.Title,
		Results:  results,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := p.notifier.SermonCompleted(ctx, ev); err != nil {
			slog.Warn("completion notification failed", "sermon_id", ev.SermonID, "error", err)
		}
	}()
}

func (p *Pipeline) sleep(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.retryDelay(attempt)):
		return nil
	}
}
