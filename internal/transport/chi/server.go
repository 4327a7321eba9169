// Package chi implements the HTTP API over the catalog facade.
package chi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/datahub/internal/domain"
	domcat "github.com/kailas-cloud/datahub/internal/domain/catalog"
	cataloguc "github.com/kailas-cloud/datahub/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/datahub/internal/usecase/health"
)

// Error codes returned to clients.
const (
	codeBadRequest          = "bad_request"
	codeValidationFailed    = "validation_failed"
	codeNotFound            = "not_found"
	codeAlreadyExists       = "already_exists"
	codeCountersUnavailable = "counters_unavailable"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server exposes the catalog API.
type Server struct {
	catalog *cataloguc.Service
	health  *healthuc.Service
	logger  *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(catalog *cataloguc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{catalog: catalog, health: health, logger: logger}
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/v1/catalog", s.CreateEntity)
	r.Get("/v1/catalog/{id}", s.GetEntity)
	r.Delete("/v1/catalog/{id}", s.DeleteEntity)
	r.Post("/v1/catalog/{id}/restore", s.RestoreEntity)
	r.Post("/v1/catalog/{id}/download", s.RecordDownload)
	r.Post("/v1/catalog/{id}/view", s.RecordView)
	r.Post("/v1/catalog/{id}/reindex", s.Reindex)
	r.Post("/v1/internal/upload-completed", s.UploadCompleted)
	r.Get("/v1/admin/dead-letters", s.DeadLetters)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type createEntityRequest struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	TopicID     string `json:"topic_id"`
	SourceID    string `json:"source_id"`
	TypeID      string `json:"type_id"`
	OwnerID     string `json:"owner_id"`
}

type entityResponse struct {
	ID               string    `json:"id"`
	Kind             string    `json:"kind"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	TopicID          string    `json:"topic_id,omitempty"`
	SourceID         string    `json:"source_id,omitempty"`
	TypeID           string    `json:"type_id,omitempty"`
	OwnerID          string    `json:"owner_id,omitempty"`
	FileURL          string    `json:"file_url,omitempty"`
	OriginalFilename string    `json:"original_filename,omitempty"`
	Deleted          bool      `json:"deleted"`
	DownloadCount    int64     `json:"download_count"`
	ViewCount        int64     `json:"view_count"`
	CommentCount     int64     `json:"comment_count"`
	ConnectedCount   int64     `json:"connected_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateEntity handles POST /v1/catalog.
func (s *Server) CreateEntity(w http.ResponseWriter, r *http.Request) {
	var req createEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	kind, err := domcat.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	now := time.Now().UTC()
	e := domcat.Entity{
		Kind:        kind,
		Title:       req.Title,
		Description: req.Description,
		TopicID:     req.TopicID,
		SourceID:    req.SourceID,
		TypeID:      req.TypeID,
		OwnerID:     req.OwnerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	if err := s.catalog.Create(r.Context(), &e); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entityToResponse(e))
}

// GetEntity handles GET /v1/catalog/{id}.
func (s *Server) GetEntity(w http.ResponseWriter, r *http.Request) {
	e, err := s.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entityToResponse(e))
}

// DeleteEntity handles DELETE /v1/catalog/{id}. The entity is soft-deleted;
// the search document catches up asynchronously.
func (s *Server) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreEntity handles POST /v1/catalog/{id}/restore.
func (s *Server) RestoreEntity(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Restore(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordDownload handles POST /v1/catalog/{id}/download.
func (s *Server) RecordDownload(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Download(r.Context(), chi.URLParam(r, "id"), viewerID(r)); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordView handles POST /v1/catalog/{id}/view.
func (s *Server) RecordView(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.View(r.Context(), chi.URLParam(r, "id"), viewerID(r)); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reindex handles POST /v1/catalog/{id}/reindex.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Reindex(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type uploadCompletedRequest struct {
	EntityID         string `json:"entity_id"`
	FileURL          string `json:"file_url"`
	OriginalFilename string `json:"original_filename"`
}

// UploadCompleted handles POST /v1/internal/upload-completed, the callback
// from the upload service once a file landed in object storage.
func (s *Server) UploadCompleted(w http.ResponseWriter, r *http.Request) {
	var req uploadCompletedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.EntityID == "" || req.FileURL == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "entity_id and file_url are required")
		return
	}

	err := s.catalog.UploadCompleted(r.Context(), req.EntityID, req.FileURL, req.OriginalFilename)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// DeadLetters handles GET /v1/admin/dead-letters.
func (s *Server) DeadLetters(w http.ResponseWriter, r *http.Request) {
	dls, err := s.catalog.DeadLetters(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dls)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// viewerID identifies the caller for counter dedup: the gateway-provided
// header when present, otherwise the peer address.
func viewerID(r *http.Request) string {
	if id := r.Header.Get("X-Viewer-ID"); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func entityToResponse(e domcat.Entity) entityResponse {
	return entityResponse{
		ID:               e.ID,
		Kind:             string(e.Kind),
		Title:            e.Title,
		Description:      e.Description,
		TopicID:          e.TopicID,
		SourceID:         e.SourceID,
		TypeID:           e.TypeID,
		OwnerID:          e.OwnerID,
		FileURL:          e.FileURL,
		OriginalFilename: e.OriginalFilename,
		Deleted:          e.Deleted,
		DownloadCount:    e.DownloadCount,
		ViewCount:        e.ViewCount,
		CommentCount:     e.CommentCount,
		ConnectedCount:   e.ConnectedCount,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrDedupUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, msg)
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, codeAlreadyExists, msg)
	case errors.Is(err, domain.ErrDedupUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeCountersUnavailable, msg)
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
