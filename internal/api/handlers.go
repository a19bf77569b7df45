package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"sermonflow/internal/model"
	"sermonflow/internal/store"
)

// inFlight reports whether a sermon is currently moving through the pipeline.
func inFlight(status string) bool {
	switch status {
	case model.StatusProcessing, model.StatusTranscribing, model.StatusGenerating:
		return true
	}
	return false
}

// admit runs the quota check and records the job start. It writes the denial
// or error response itself and reports whether the caller may proceed.
func (s *Server) admit(w http.ResponseWriter, r *http.Request, ownerID string) bool {
	adm, err := s.quota.Check(r.Context(), ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check quota")
		return false
	}
	if !adm.Allowed {
		writeJSON(w, http.StatusTooManyRequests, adm)
		return false
	}
	if err := s.quota.RecordJobStart(r.Context(), ownerID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record job start")
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// POST /api/sermons
// ---------------------------------------------------------------------------

type createSermonRequest struct {
	OwnerID    string `json:"owner_id"`
	Title      string `json:"title"`
	SourceType string `json:"source_type"`
	MediaRef   string `json:"media_ref"`
	Transcript string `json:"transcript"`
}

func (s *Server) handleCreateSermon(w http.ResponseWriter, r *http.Request) {
	var req createSermonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	switch req.SourceType {
	case model.SourceAudio, model.SourceVideo, model.SourceDocument:
	default:
		writeError(w, http.StatusBadRequest, "source_type must be audio, video, or document")
		return
	}
	if req.MediaRef == "" && req.Transcript == "" {
		writeError(w, http.StatusBadRequest, "media_ref or transcript is required")
		return
	}

	if !s.admit(w, r, req.OwnerID) {
		return
	}

	sermon := model.NewSermon(uuid.New().String(), req.OwnerID, req.Title, req.SourceType, req.MediaRef)
	if req.Transcript != "" {
		sermon.Transcript = &req.Transcript
	}

	if err := s.store.CreateSermon(r.Context(), sermon); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create sermon")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":     sermon.ID,
		"status": sermon.Status,
	})
}

// ---------------------------------------------------------------------------
// GET /api/sermons?owner_id=
// ---------------------------------------------------------------------------

func (s *Server) handleListSermons(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required")
		return
	}

	sermons, err := s.store.ListSermons(r.Context(), ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sermons")
		return
	}
	if sermons == nil {
		sermons = []model.Sermon{}
	}
	writeJSON(w, http.StatusOK, sermons)
}

// ---------------------------------------------------------------------------
// GET /api/sermons/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleGetSermon(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sermon, err := s.store.GetSermon(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "sermon not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get sermon")
		return
	}

	writeJSON(w, http.StatusOK, sermon)
}

// ---------------------------------------------------------------------------
// GET /api/sermons/{id}/artifacts
// ---------------------------------------------------------------------------

func (s *Server) handleGetArtifacts(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sermon, err := s.store.GetSermon(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "sermon not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get sermon")
		return
	}

	artifacts := sermon.Artifacts
	if artifacts == nil {
		artifacts = []model.Artifact{}
	}
	writeJSON(w, http.StatusOK, artifacts)
}

// ---------------------------------------------------------------------------
// POST /api/sermons/{id}/process
// ---------------------------------------------------------------------------

type ownerRequest struct {
	OwnerID string `json:"owner_id"`
}

// handleProcess queues a full rerun of a finished sermon. The transcript is
// kept, so regeneration skips transcription.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req ownerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required")
		return
	}

	sermon, err := s.store.GetSermon(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "sermon not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get sermon")
		return
	}
	if sermon.OwnerID != req.OwnerID {
		writeError(w, http.StatusForbidden, "sermon belongs to another owner")
		return
	}
	if inFlight(sermon.Status) {
		writeError(w, http.StatusConflict, "sermon is already being processed")
		return
	}

	if !s.admit(w, r, req.OwnerID) {
		return
	}

	if err := s.store.MarkForReprocess(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to queue sermon")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":     id,
		"status": model.StatusProcessing,
	})
}

// ---------------------------------------------------------------------------
// POST /api/sermons/{id}/generate/{type}
// ---------------------------------------------------------------------------

// handleGenerateOne regenerates a single content type synchronously.
func (s *Server) handleGenerateOne(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	contentType := r.PathValue("type")

	if !model.ValidContentType(contentType) {
		writeError(w, http.StatusBadRequest, "unknown content type")
		return
	}

	var req ownerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required")
		return
	}

	sermon, err := s.store.GetSermon(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "sermon not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get sermon")
		return
	}
	if sermon.OwnerID != req.OwnerID {
		writeError(w, http.StatusForbidden, "sermon belongs to another owner")
		return
	}
	if inFlight(sermon.Status) {
		writeError(w, http.StatusConflict, "sermon is already being processed")
		return
	}

	if !s.admit(w, r, req.OwnerID) {
		return
	}

	results, err := s.generator.GenerateOne(r.Context(), id, req.OwnerID, contentType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "generation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"results": results,
	})
}

// ---------------------------------------------------------------------------
// GET /api/quota?owner_id=
// ---------------------------------------------------------------------------

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required")
		return
	}

	adm, err := s.quota.Check(r.Context(), ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check quota")
		return
	}
	writeJSON(w, http.StatusOK, adm)
}
