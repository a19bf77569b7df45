package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sermonflow/internal/model"
)

// Verify at compile time that Store implements all interfaces.
var (
	_ SermonReader  = (*Store)(nil)
	_ SermonWriter  = (*Store)(nil)
	_ SermonClaimer = (*Store)(nil)
	_ ArtifactStore = (*Store)(nil)
	_ QuotaStore    = (*Store)(nil)
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store provides data access to the SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and initialises the schema.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// currentSchemaVersion is bumped whenever the schema changes.
// Add a new migration function in the migrations slice below.
const currentSchemaVersion = 2

func (s *Store) migrate() error {
	// Ensure the schema_version table exists.
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		// Fresh database: initialize to version 0.
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// migrations is an ordered list of migration functions.
	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: initial schema
		s.migrateV2, // v1 → v2: add language column to sermons
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}

	return nil
}

// migrateV1 creates the initial schema (v0 → v1).
func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sermons (
		id          TEXT PRIMARY KEY,
		owner_id    TEXT NOT NULL,
		title       TEXT,
		source_type TEXT NOT NULL,
		media_ref   TEXT,
		status      TEXT NOT NULL,
		transcript  TEXT,
		error_info  TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sermons_status ON sermons(status, updated_at);
	CREATE INDEX IF NOT EXISTS idx_sermons_owner ON sermons(owner_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS artifacts (
		id           TEXT PRIMARY KEY,
		sermon_id    TEXT NOT NULL REFERENCES sermons(id),
		content_type TEXT NOT NULL,
		payload      TEXT NOT NULL,
		created_at   TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_artifacts_unique ON artifacts(sermon_id, content_type);

	CREATE TABLE IF NOT EXISTS subscriptions (
		owner_id      TEXT PRIMARY KEY,
		status        TEXT NOT NULL,
		monthly_limit INTEGER NOT NULL,
		period_start  TEXT,
		period_end    TEXT,
		trial_ends_at TEXT
	);

	CREATE TABLE IF NOT EXISTS usage_counters (
		owner_id     TEXT PRIMARY KEY,
		period_start TEXT NOT NULL,
		period_end   TEXT NOT NULL,
		count        INTEGER NOT NULL,
		updated_at   TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// migrateV2 adds the language column to sermons (v1 → v2).
func (s *Store) migrateV2() error {
	_, err := s.db.Exec(`ALTER TABLE sermons ADD COLUMN language TEXT`)
	return err
}

// ---------------------------------------------------------------------------
// Sermons
// ---------------------------------------------------------------------------

const sermonColumns = `id, owner_id, title, source_type, media_ref, status, transcript, language, error_info, created_at, updated_at`

// CreateSermon inserts a new sermon.
func (s *Store) CreateSermon(ctx context.Context, sm model.Sermon) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sermons (id, owner_id, title, source_type, media_ref, status, transcript, language, error_info, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sm.ID, sm.OwnerID, sm.Title, sm.SourceType, sm.MediaRef, sm.Status,
		sm.Transcript, sm.Language, sm.ErrorInfo, sm.CreatedAt, sm.UpdatedAt,
	)
	return err
}

// GetSermon returns a sermon together with its artifacts.
func (s *Store) GetSermon(ctx context.Context, id string) (*model.SermonWithArtifacts, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sermonColumns+` FROM sermons WHERE id = ?`, id)
	sm, err := scanSermon(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	artifacts, err := s.GetArtifacts(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.SermonWithArtifacts{Sermon: *sm, Artifacts: artifacts}, nil
}

// ListSermons returns all sermons for an owner, newest first.
func (s *Store) ListSermons(ctx context.Context, ownerID string) ([]model.Sermon, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sermonColumns+` FROM sermons WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sermons []model.Sermon
	for rows.Next() {
		sm, err := scanSermon(rows)
		if err != nil {
			return nil, err
		}
		sermons = append(sermons, *sm)
	}
	return sermons, rows.Err()
}

// UpdateSermonStatus changes the status of a sermon.
func (s *Store) UpdateSermonStatus(ctx context.Context, id, newStatus string, errorInfo *string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`UPDATE sermons SET status = ?, error_info = ?, updated_at = ? WHERE id = ?`,
		newStatus, errorInfo, now, id)
	return err
}

// SetTranscript stores the transcript and detected language, but only when no
// transcript exists yet. The transcript is immutable once generation has
// started so that reruns stay stable.
func (s *Store) SetTranscript(ctx context.Context, id, transcript, language string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		UPDATE sermons SET transcript = ?, language = ?, updated_at = ?
		WHERE id = ? AND (transcript IS NULL OR transcript = '')`,
		transcript, language, now, id)
	return err
}

// MarkForReprocess resets a sermon to PROCESSING so the worker picks it up
// again (regeneration). The transcript is left in place.
func (s *Store) MarkForReprocess(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`UPDATE sermons SET status = ?, error_info = NULL, updated_at = ? WHERE id = ?`,
		model.StatusProcessing, now, id)
	return err
}

// ClaimNextPending atomically picks the oldest PROCESSING sermon and sets it
// to TRANSCRIBING. Returns nil if no sermon is available.
func (s *Store) ClaimNextPending(ctx context.Context) (*model.Sermon, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	row := s.db.QueryRowContext(ctx, `
		UPDATE sermons SET status = ?, updated_at = ?
		WHERE id = (SELECT id FROM sermons WHERE status = ? ORDER BY created_at ASC LIMIT 1)
		RETURNING `+sermonColumns,
		model.StatusTranscribing, now, model.StatusProcessing,
	)
	sm, err := scanSermon(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sm, err
}

// ResetStaleJobs resets sermons stuck mid-pipeline back to PROCESSING
// (for server restart). The pipeline steps are idempotent, so a replay from
// the top is safe.
func (s *Store) ResetStaleJobs(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE sermons SET status = ?, updated_at = ? WHERE status IN (?, ?)`,
		model.StatusProcessing, now, model.StatusTranscribing, model.StatusGenerating)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---------------------------------------------------------------------------
// Artifacts
// ---------------------------------------------------------------------------

// UpsertArtifact inserts or replaces an artifact (one per sermon per content
// type). Last write wins.
func (s *Store) UpsertArtifact(ctx context.Context, a model.Artifact) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (id, sermon_id, content_type, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(sermon_id, content_type) DO UPDATE SET
			id = excluded.id,
			payload = excluded.payload,
			created_at = excluded.created_at`,
		a.ID, a.SermonID, a.ContentType, a.Payload, a.CreatedAt,
	)
	return err
}

// GetArtifacts returns all artifacts for a sermon, ordered by creation time.
func (s *Store) GetArtifacts(ctx context.Context, sermonID string) ([]model.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sermon_id, content_type, payload, created_at FROM artifacts WHERE sermon_id = ? ORDER BY created_at ASC`,
		sermonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []model.Artifact
	for rows.Next() {
		var a model.Artifact
		if err := rows.Scan(&a.ID, &a.SermonID, &a.ContentType, &a.Payload, &a.CreatedAt); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// ---------------------------------------------------------------------------
// Subscriptions and usage
// ---------------------------------------------------------------------------

// GetSubscription returns the subscription for an owner, or nil if none exists.
func (s *Store) GetSubscription(ctx context.Context, ownerID string) (*model.Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT owner_id, status, monthly_limit, period_start, period_end, trial_ends_at FROM subscriptions WHERE owner_id = ?`,
		ownerID)

	var sub model.Subscription
	var periodStart, periodEnd, trialEnds sql.NullString
	err := row.Scan(&sub.OwnerID, &sub.Status, &sub.MonthlyLimit, &periodStart, &periodEnd, &trialEnds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if sub.PeriodStart, err = parseNullTime(periodStart); err != nil {
		return nil, fmt.Errorf("parse period_start: %w", err)
	}
	if sub.PeriodEnd, err = parseNullTime(periodEnd); err != nil {
		return nil, fmt.Errorf("parse period_end: %w", err)
	}
	if sub.TrialEndsAt, err = parseNullTime(trialEnds); err != nil {
		return nil, fmt.Errorf("parse trial_ends_at: %w", err)
	}
	return &sub, nil
}

// UpsertSubscription inserts or replaces an owner's subscription state.
// Called by the (out-of-scope) billing webhook path.
func (s *Store) UpsertSubscription(ctx context.Context, sub model.Subscription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (owner_id, status, monthly_limit, period_start, period_end, trial_ends_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			status = excluded.status,
			monthly_limit = excluded.monthly_limit,
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			trial_ends_at = excluded.trial_ends_at`,
		sub.OwnerID, sub.Status, sub.MonthlyLimit,
		formatNullTime(sub.PeriodStart), formatNullTime(sub.PeriodEnd), formatNullTime(sub.TrialEndsAt),
	)
	return err
}

// GetUsage returns the usage counter for an owner, or nil if none exists yet.
func (s *Store) GetUsage(ctx context.Context, ownerID string) (*model.UsageCounter, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT owner_id, period_start, period_end, count, updated_at FROM usage_counters WHERE owner_id = ?`,
		ownerID)

	var c model.UsageCounter
	var start, end string
	err := row.Scan(&c.OwnerID, &start, &end, &c.Count, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if c.PeriodStart, err = time.Parse(time.RFC3339, start); err != nil {
		return nil, fmt.Errorf("parse period_start: %w", err)
	}
	if c.PeriodEnd, err = time.Parse(time.RFC3339, end); err != nil {
		return nil, fmt.Errorf("parse period_end: %w", err)
	}
	return &c, nil
}

// IncrementUsage records one job start within the given period. A row for a
// previous period is rolled over: the counter restarts at 1 for the new
// period, otherwise it increments in place.
func (s *Store) IncrementUsage(ctx context.Context, ownerID string, periodStart, periodEnd time.Time) error {
	now := time.Now().UTC().Format(time.RFC3339)
	start := periodStart.UTC().Format(time.RFC3339)
	end := periodEnd.UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_counters (owner_id, period_start, period_end, count, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			count = CASE WHEN usage_counters.period_start = excluded.period_start
				THEN usage_counters.count + 1 ELSE 1 END,
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			updated_at = excluded.updated_at`,
		ownerID, start, end, now,
	)
	return err
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSermon(row scanner) (*model.Sermon, error) {
	var sm model.Sermon
	err := row.Scan(&sm.ID, &sm.OwnerID, &sm.Title, &sm.SourceType, &sm.MediaRef,
		&sm.Status, &sm.Transcript, &sm.Language, &sm.ErrorInfo, &sm.CreatedAt, &sm.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sm, nil
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatNullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
