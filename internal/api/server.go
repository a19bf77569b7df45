package api

import (
	"context"
	"encoding/json"
	"net/http"

	"sermonflow/internal/model"
	"sermonflow/internal/store"
)

// maxRequestBody is the maximum allowed request body size (1 MB).
const maxRequestBody int64 = 1 << 20

// Admitter is the quota surface the API needs: a pre-flight check plus the
// usage write for each admitted job.
type Admitter interface {
	Check(ctx context.Context, ownerID string) (model.Admission, error)
	RecordJobStart(ctx context.Context, ownerID string) error
}

// Generator runs a single-type generation job synchronously.
type Generator interface {
	GenerateOne(ctx context.Context, sermonID, ownerID, contentType string) (map[string]bool, error)
}

// Server holds the HTTP handlers and dependencies.
type Server struct {
	store     store.SermonRepository
	quota     Admitter
	generator Generator
	mux       *http.ServeMux
	cors      string
}

// New creates a new API server. corsOrigin defaults to "*" when empty.
func New(s store.SermonRepository, q Admitter, g Generator, corsOrigin string) *Server {
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	srv := &Server{store: s, quota: q, generator: g, mux: http.NewServeMux(), cors: corsOrigin}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(limitBody(jsonContent(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/sermons", s.handleCreateSermon)
	s.mux.HandleFunc("GET /api/sermons", s.handleListSermons)
	s.mux.HandleFunc("GET /api/sermons/{id}", s.handleGetSermon)
	s.mux.HandleFunc("GET /api/sermons/{id}/artifacts", s.handleGetArtifacts)
	s.mux.HandleFunc("POST /api/sermons/{id}/process", s.handleProcess)
	s.mux.HandleFunc("POST /api/sermons/{id}/generate/{type}", s.handleGenerateOne)
	s.mux.HandleFunc("GET /api/quota", s.handleQuota)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cors)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody restricts the request body to maxRequestBody bytes.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		next.ServeHTTP(w, r)
	})
}

func jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
