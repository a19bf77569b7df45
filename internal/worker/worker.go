package worker

import (
	"context"
	"log/slog"
	"time"

	"sermonflow/internal/model"
)

// Processor runs the processing pipeline for a single sermon.
type Processor interface {
	RunJob(ctx context.Context, sermonID, ownerID string, skipTranscription bool) (map[string]bool, error)
}

// SermonClaimer provides the atomic claim operation.
type SermonClaimer interface {
	ClaimNextPending(ctx context.Context) (*model.Sermon, error)
}

// Worker polls for PROCESSING sermons and runs the pipeline. The pipeline
// owns all status and error-info writes; the worker only claims and logs.
type Worker struct {
	claimer   SermonClaimer
	processor Processor
	interval  time.Duration
}

// New creates a new Worker.
func New(claimer SermonClaimer, processor Processor, interval time.Duration) *Worker {
	return &Worker{claimer: claimer, processor: processor, interval: interval}
}

// Start begins the polling loop. It blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("worker started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped")
			return
		default:
		}

		sermon, err := w.claimer.ClaimNextPending(ctx)
		if err != nil {
			slog.Error("worker claim error", "error", err)
			w.sleep(ctx)
			continue
		}
		if sermon == nil {
			w.sleep(ctx)
			continue
		}

		slog.Info("processing sermon", "sermon_id", sermon.ID, "title", sermon.Title)
		results, err := w.processor.RunJob(ctx, sermon.ID, sermon.OwnerID, false)
		if err != nil {
			slog.Error("pipeline failed", "sermon_id", sermon.ID, "error", err)
			continue
		}

		succeeded := 0
		for _, ok := range results {
			if ok {
				succeeded++
			}
		}
		slog.Info("sermon job finished",
			"sermon_id", sermon.ID, "succeeded", succeeded, "total", len(results))
	}
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.interval):
	}
}
