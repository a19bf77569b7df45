package store

import (
	"context"
	"time"

	"sermonflow/internal/model"
)

// SermonReader provides read access to sermons.
type SermonReader interface {
	GetSermon(ctx context.Context, id string) (*model.SermonWithArtifacts, error)
	ListSermons(ctx context.Context, ownerID string) ([]model.Sermon, error)
}

// SermonWriter provides write access to sermons.
type SermonWriter interface {
	CreateSermon(ctx context.Context, s model.Sermon) error
	UpdateSermonStatus(ctx context.Context, id, newStatus string, errorInfo *string) error
	SetTranscript(ctx context.Context, id, transcript, language string) error
	MarkForReprocess(ctx context.Context, id string) error
}

// SermonClaimer provides atomic claim operations for background processing.
type SermonClaimer interface {
	ClaimNextPending(ctx context.Context) (*model.Sermon, error)
	ResetStaleJobs(ctx context.Context) (int64, error)
}

// ArtifactStore provides access to artifact persistence.
type ArtifactStore interface {
	UpsertArtifact(ctx context.Context, a model.Artifact) error
	GetArtifacts(ctx context.Context, sermonID string) ([]model.Artifact, error)
}

// QuotaStore provides access to subscription and usage state for admission
// control. IncrementUsage is atomic: starting a job in a new period resets
// the counter to 1, otherwise it adds 1.
type QuotaStore interface {
	GetSubscription(ctx context.Context, ownerID string) (*model.Subscription, error)
	UpsertSubscription(ctx context.Context, sub model.Subscription) error
	GetUsage(ctx context.Context, ownerID string) (*model.UsageCounter, error)
	IncrementUsage(ctx context.Context, ownerID string, periodStart, periodEnd time.Time) error
}

// SermonRepository combines all sermon-related operations for the API layer.
type SermonRepository interface {
	SermonReader
	SermonWriter
	ArtifactStore
}
