package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"sermonflow/internal/model"
)

// TaskOutcome is the terminal result of one generation task. Failures are
// recorded here, never propagated to sibling tasks.
type TaskOutcome struct {
	ContentType string
	Attempts    int
	Err         error
}

// fanOut runs one generation task per content type concurrently and waits
// for all of them to settle. Tasks share nothing; each writes only its own
// artifact row.
func (p *Pipeline) fanOut(ctx context.Context, sermon *model.Sermon, transcript, language string, types []string) []TaskOutcome {
	outcomes := make([]TaskOutcome, len(types))
	var wg sync.WaitGroup
	for i, ct := range types {
		wg.Add(1)
		go func(i int, ct string) {
			defer wg.Done()
			outcomes[i] = p.runTask(ctx, sermon, ct, transcript, language)
		}(i, ct)
	}
	wg.Wait()
	return outcomes
}

// runTask generates, extracts, validates, and persists one content package.
// Generation and persistence retry on transient failures; a parse or
// validation failure is terminal for this task.
func (p *Pipeline) runTask(ctx context.Context, sermon *model.Sermon, contentType, transcript, language string) TaskOutcome {
	gc := GenerationContext{Title: sermon.Title, Language: language}

	res, attempts, err := p.generateWithRetry(ctx, contentType, transcript, gc)
	if err != nil {
		return TaskOutcome{ContentType: contentType, Attempts: attempts, Err: &StepError{
			Step: "generate_" + contentType, Kind: KindTransientStepFailure, Attempts: attempts, Err: err,
		}}
	}

	payload, err := DecodePayload(contentType, res.Text)
	if err != nil {
		kind := KindInvalidStructuredOutput
		if errors.Is(err, ErrNoStructuredOutput) {
			kind = KindNoStructuredOutput
		}
		slog.Warn("structured output rejected",
			"sermon_id", sermon.ID,
			"content_type", contentType,
			"truncated", res.Truncated,
			"error", err)
		return TaskOutcome{ContentType: contentType, Attempts: attempts, Err: &StepError{
			Step: "extract_" + contentType, Kind: kind, Attempts: 1, Err: err,
		}}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return TaskOutcome{ContentType: contentType, Attempts: attempts, Err: &StepError{
			Step: "encode_" + contentType, Kind: KindInvalidStructuredOutput, Attempts: 1, Err: err,
		}}
	}

	artifact := model.NewArtifact(uuid.New().String(), sermon.ID, contentType, string(b))
	if err := p.upsertWithRetry(ctx, artifact); err != nil {
		return TaskOutcome{ContentType: contentType, Attempts: attempts, Err: &StepError{
			Step: "persist_" + contentType, Kind: KindPersistenceFailure, Attempts: p.retries, Err: err,
		}}
	}

	return TaskOutcome{ContentType: contentType, Attempts: attempts}
}

func (p *Pipeline) generateWithRetry(ctx context.Context, contentType, transcript string, gc GenerationContext) (*GenerationResult, int, error) {
	var lastErr error
	for attempt := 1; attempt <= p.retries; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, attempt-1); err != nil {
				return nil, attempt - 1, lastErr
			}
		}
		res, err := p.generator.Generate(ctx, contentType, transcript, gc)
		if err == nil {
			return res, attempt, nil
		}
		lastErr = err
		slog.Warn("generation attempt failed",
			"content_type", contentType, "attempt", attempt, "error", err)
		if ctx.Err() != nil {
			return nil, attempt, lastErr
		}
	}
	return nil, p.retries, fmt.Errorf("after %d attempts: %w", p.retries, lastErr)
}

func (p *Pipeline) upsertWithRetry(ctx context.Context, a model.Artifact) error {
	var lastErr error
	for attempt := 1; attempt <= p.retries; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, attempt-1); err != nil {
				return lastErr
			}
		}
		if err := p.store.UpsertArtifact(ctx, a); err == nil {
			return nil
		} else {
			lastErr = err
			slog.Warn("artifact upsert failed",
				"sermon_id", a.SermonID, "content_type", a.ContentType, "attempt", attempt, "error", err)
		}
	}
	return fmt.Errorf("after %d attempts: %w", p.retries, lastErr)
}
