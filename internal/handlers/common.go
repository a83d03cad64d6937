package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lehigh-university-libraries/styleshift/internal/session"
	"github.com/lehigh-university-libraries/styleshift/internal/storage"
)

type Handler struct {
	sessionStore      *storage.SessionStore
	generateRateLimit int
}

// New returns a handler serving sessions from store. generateRateLimit is the
// number of generate calls allowed per client IP per minute, 0 disables it.
func New(store *storage.SessionStore, generateRateLimit int) *Handler {
	return &Handler{
		sessionStore:      store,
		generateRateLimit: generateRateLimit,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "status", code)
	http.Error(w, message, code)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*session.Machine, bool) {
	m, exists := h.sessionStore.Get(chi.URLParam(r, "id"))
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return m, true
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
