package model

import "time"

// Content type constants. One artifact of each type may exist per sermon.
const (
	ContentNotes           = "notes"
	ContentDevotional      = "devotional"
	ContentDiscussionGuide = "discussion_guide"
	ContentSocialMedia     = "social_media"
)

// ContentTypes lists every content type the generation fan-out produces.
var ContentTypes = []string{
	ContentNotes,
	ContentDevotional,
	ContentDiscussionGuide,
	ContentSocialMedia,
}

// ValidContentType reports whether t is a known content type.
func ValidContentType(t string) bool {
	for _, ct := range ContentTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// Artifact represents one generated content package for a sermon.
// Regeneration replaces the payload; at most one row exists per
// (sermon, content type).
type Artifact struct {
	ID          string `json:"id"`
	SermonID    string `json:"sermon_id"`
	ContentType string `json:"content_type"`
	Payload     string `json:"payload"` // JSON string, schema owned by the generator
	CreatedAt   string `json:"created_at"`
}

// NewArtifact creates a new Artifact.
func NewArtifact(id, sermonID, contentType, payload string) Artifact {
	return Artifact{
		ID:          id,
		SermonID:    sermonID,
		ContentType: contentType,
		Payload:     payload,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
}
