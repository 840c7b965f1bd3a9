// Package httphandler serves the sync API consumed by the remote client:
// CRUD and search over password records with a uniform success/error
// envelope.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"passvault/internal/domain/model"
	"passvault/internal/domain/port/driven"
	"passvault/internal/search"
)

// Handler holds the dependencies for the sync API endpoints.
type Handler struct {
	store  driven.RecordStore
	logger *slog.Logger
}

// NewHandler creates a Handler over the given store.
func NewHandler(store driven.RecordStore, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// recordPayload is the request body for create and update. All fields are
// optional at decode time; create validates required fields server-side.
type recordPayload struct {
	Service   *string  `json:"service"`
	Username  *string  `json:"username"`
	Password  *string  `json:"password"`
	URL       *string  `json:"url"`
	Notes     *string  `json:"notes"`
	Folder    *string  `json:"folder"`
	Tags      []string `json:"tags"`
	ExpiresAt *string  `json:"expires_at"`
}

// ListPasswords handles GET /passwords with an optional search query.
// match=fuzzy switches from substring filtering to relevance ranking.
func (h *Handler) ListPasswords(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("search")

	if r.URL.Query().Get("match") == "fuzzy" {
		recs, err := h.store.FindAll(r.Context())
		if err != nil {
			h.logger.Error("list passwords", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list passwords")
			return
		}
		writeData(w, http.StatusOK, toRecordResponses(search.FuzzyRank(recs, query)))
		return
	}

	recs, err := h.store.Search(r.Context(), query)
	if err != nil {
		h.logger.Error("list passwords", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list passwords")
		return
	}

	writeData(w, http.StatusOK, toRecordResponses(recs))
}

// GetPassword handles GET /passwords/{id}.
func (h *Handler) GetPassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get password", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load password")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "password not found")
		return
	}

	writeData(w, http.StatusOK, toRecordResponse(*rec))
}

// CreatePassword handles POST /passwords. Missing required fields answer 400.
func (h *Handler) CreatePassword(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}

	input := model.RecordInput{
		Service:  deref(payload.Service),
		Username: deref(payload.Username),
		Password: deref(payload.Password),
		URL:      deref(payload.URL),
		Notes:    deref(payload.Notes),
		Folder:   deref(payload.Folder),
		Tags:     payload.Tags,
	}
	if payload.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339Nano, *payload.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid expires_at")
			return
		}
		input.ExpiresAt = &t
	}

	rec, err := h.store.Create(r.Context(), input)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.logger.Error("create password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create password")
		return
	}

	writeData(w, http.StatusCreated, toRecordResponse(*rec))
}

// UpdatePassword handles PUT /passwords/{id} with a partial body. Unknown
// IDs answer 404.
func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}

	patch := model.RecordPatch{
		Service:  payload.Service,
		Username: payload.Username,
		Password: payload.Password,
		URL:      payload.URL,
		Notes:    payload.Notes,
		Folder:   payload.Folder,
		Tags:     payload.Tags,
	}
	if payload.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339Nano, *payload.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid expires_at")
			return
		}
		patch.ExpiresAt = &t
	}

	rec, err := h.store.Update(r.Context(), id, patch)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, "password not found")
			return
		}
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.logger.Error("update password", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	writeData(w, http.StatusOK, toRecordResponse(*rec))
}

// DeletePassword handles DELETE /passwords/{id}. The API reports 404 for an
// unknown ID even though the store-level delete is idempotent; clients that
// prefer idempotent semantics map the 404 themselves.
func (h *Handler) DeletePassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		h.logger.Error("delete password", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete password")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "password not found")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete password", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete password")
		return
	}

	writeData(w, http.StatusOK, nil)
}

// Health handles GET /health as a liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request) (recordPayload, bool) {
	var payload recordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return recordPayload{}, false
	}
	return payload, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
