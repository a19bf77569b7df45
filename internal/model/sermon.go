package model

import (
	"fmt"
	"time"
)

// Sermon status constants
const (
	StatusUploading    = "UPLOADING"
	StatusProcessing   = "PROCESSING"
	StatusTranscribing = "TRANSCRIBING"
	StatusGenerating   = "GENERATING"
	StatusComplete     = "COMPLETE"
	StatusError        = "ERROR"
)

// Source type constants
const (
	SourceAudio    = "audio"
	SourceVideo    = "video"
	SourceDocument = "document"
)

// Sermon represents one uploaded sermon and its derived content.
type Sermon struct {
	ID         string  `json:"id"`
	OwnerID    string  `json:"owner_id"`
	Title      string  `json:"title"`
	SourceType string  `json:"source_type"`
	MediaRef   string  `json:"media_ref"`
	Status     string  `json:"status"`
	Transcript *string `json:"transcript,omitempty"`
	Language   *string `json:"language,omitempty"`
	ErrorInfo  *string `json:"error_info,omitempty"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

// SermonWithArtifacts is a Sermon together with its generated artifacts.
type SermonWithArtifacts struct {
	Sermon
	Artifacts []Artifact `json:"artifacts"`
}

// NewSermon creates a new Sermon in PROCESSING status, ready to be claimed
// by the worker.
func NewSermon(id, ownerID, title, sourceType, mediaRef string) Sermon {
	now := time.Now().UTC().Format(time.RFC3339)
	return Sermon{
		ID:         id,
		OwnerID:    ownerID,
		Title:      title,
		SourceType: sourceType,
		MediaRef:   mediaRef,
		Status:     StatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// HasTranscript reports whether a usable transcript is already present.
func (s *Sermon) HasTranscript() bool {
	return s.Transcript != nil && *s.Transcript != ""
}

// validTransitions maps each status to the statuses the orchestrator may
// move it to. COMPLETE and ERROR are terminal for a job attempt; a new
// attempt (regeneration) re-enters the pipeline and skips transcription when
// a transcript already exists.
var validTransitions = map[string][]string{
	StatusUploading:    {StatusProcessing},
	StatusProcessing:   {StatusTranscribing, StatusGenerating, StatusError},
	StatusTranscribing: {StatusGenerating, StatusError},
	StatusGenerating:   {StatusComplete, StatusError},
	StatusComplete:     {StatusProcessing, StatusTranscribing, StatusGenerating},
	StatusError:        {StatusProcessing, StatusTranscribing, StatusGenerating},
}

// ValidateTransition returns an error if moving from the sermon's current
// status to newStatus is not allowed.
func (s *Sermon) ValidateTransition(newStatus string) error {
	for _, allowed := range validTransitions[s.Status] {
		if allowed == newStatus {
			return nil
		}
	}
	return fmt.Errorf("invalid status transition %s -> %s", s.Status, newStatus)
}
