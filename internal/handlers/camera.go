package handlers

import (
	"context"
	"net/http"

	"github.com/lehigh-university-libraries/styleshift/internal/session"
)

// cameraOp runs a camera operation. Device failures are reported through the
// session's error message, so the response is always the snapshot.
func (h *Handler) cameraOp(op func(m *session.Machine, ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := h.getSessionOrError(w, r)
		if !ok {
			return
		}
		_ = op(m, r.Context())
		h.writeJSON(w, m.Snapshot())
	}
}

func (h *Handler) HandleOpenCamera(w http.ResponseWriter, r *http.Request) {
	h.cameraOp((*session.Machine).OpenCamera)(w, r)
}

func (h *Handler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	h.cameraOp((*session.Machine).Capture)(w, r)
}

func (h *Handler) HandleSwitchCamera(w http.ResponseWriter, r *http.Request) {
	h.cameraOp((*session.Machine).SwitchCamera)(w, r)
}

func (h *Handler) HandleRetryCamera(w http.ResponseWriter, r *http.Request) {
	h.cameraOp((*session.Machine).RetryCamera)(w, r)
}

func (h *Handler) HandleCancelCamera(w http.ResponseWriter, r *http.Request) {
	h.transition((*session.Machine).CancelCamera)(w, r)
}
