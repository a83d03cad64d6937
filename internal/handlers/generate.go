package handlers

import (
	"net/http"
)

// HandleGenerate dispatches a generation request. With ?wait=true the response
// is held until the outcome is applied or the client goes away.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	m, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	done, dispatched := m.Generate(r.Context())
	if !dispatched {
		h.writeJSONStatus(w, http.StatusConflict, m.Snapshot())
		return
	}

	if r.URL.Query().Get("wait") != "true" {
		h.writeJSONStatus(w, http.StatusAccepted, m.Snapshot())
		return
	}

	select {
	case <-done:
		h.writeJSON(w, m.Snapshot())
	case <-r.Context().Done():
	}
}
