package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lehigh-university-libraries/styleshift/internal/catalog"
	"github.com/lehigh-university-libraries/styleshift/internal/models"
	"github.com/lehigh-university-libraries/styleshift/internal/session"
)

func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, catalog.All())
}

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionStore.All()
	sessionList := make([]models.SessionSnapshot, 0, len(sessions))
	for _, m := range sessions {
		sessionList = append(sessionList, m.Snapshot())
	}
	h.writeJSON(w, sessionList)
}

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	m := h.sessionStore.Create()
	h.writeJSONStatus(w, http.StatusCreated, m.Snapshot())
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	m, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, m.Snapshot())
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessionStore.Delete(chi.URLParam(r, "id")) {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// transition wraps an operation that only changes state and returns the snapshot
func (h *Handler) transition(op func(m *session.Machine)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := h.getSessionOrError(w, r)
		if !ok {
			return
		}
		op(m)
		h.writeJSON(w, m.Snapshot())
	}
}

func (h *Handler) HandleClearImage(w http.ResponseWriter, r *http.Request) {
	h.transition((*session.Machine).ClearImage)(w, r)
}

func (h *Handler) HandleClearSelection(w http.ResponseWriter, r *http.Request) {
	h.transition((*session.Machine).ClearSelection)(w, r)
}

func (h *Handler) HandleTryAnother(w http.ResponseWriter, r *http.Request) {
	h.transition((*session.Machine).TryAnother)(w, r)
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.transition((*session.Machine).Reset)(w, r)
}

func (h *Handler) HandleDescription(w http.ResponseWriter, r *http.Request) {
	m, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var request struct {
		Description string `json:"description"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}
	m.EditDescription(request.Description)
	h.writeJSON(w, m.Snapshot())
}

func (h *Handler) HandleSelectEntry(w http.ResponseWriter, r *http.Request) {
	m, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := m.SelectCatalogEntry(chi.URLParam(r, "entryID")); err != nil {
		if errors.Is(err, session.ErrUnknownCatalogEntry) {
			h.writeError(w, "Catalog entry not found", http.StatusNotFound)
			return
		}
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, m.Snapshot())
}

func (h *Handler) HandleSensitive(w http.ResponseWriter, r *http.Request) {
	m, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var request struct {
		Allow *bool `json:"allow"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}
	if request.Allow == nil {
		h.writeError(w, "allow is required", http.StatusBadRequest)
		return
	}
	m.SetAllowSensitive(*request.Allow)
	h.writeJSON(w, m.Snapshot())
}
