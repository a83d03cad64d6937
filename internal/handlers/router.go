package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router mounts every route on a chi router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", h.HandleCatalog)

		r.Get("/sessions", h.HandleListSessions)
		r.Post("/sessions", h.HandleCreateSession)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetSession)
			r.Delete("/", h.HandleDeleteSession)

			r.Post("/upload", h.HandleUpload)

			r.Post("/camera", h.HandleOpenCamera)
			r.Delete("/camera", h.HandleCancelCamera)
			r.Post("/camera/capture", h.HandleCapture)
			r.Post("/camera/frame", h.HandleFrame)
			r.Post("/camera/switch", h.HandleSwitchCamera)
			r.Post("/camera/retry", h.HandleRetryCamera)

			r.Post("/clear", h.HandleClearImage)
			r.Put("/description", h.HandleDescription)
			r.Put("/catalog/{entryID}", h.HandleSelectEntry)
			r.Delete("/catalog", h.HandleClearSelection)
			r.Put("/sensitive", h.HandleSensitive)

			r.With(h.generateLimiter()).Post("/generate", h.HandleGenerate)
			r.Post("/try-another", h.HandleTryAnother)
			r.Post("/reset", h.HandleReset)

			r.Get("/source", h.HandleSourceImage)
			r.Get("/result", h.HandleResultImage)
			r.Get("/result/download", h.HandleDownload)
		})
	})

	return r
}

func (h *Handler) generateLimiter() func(http.Handler) http.Handler {
	if h.generateRateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	window := time.Minute
	return httprate.Limit(
		h.generateRateLimit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			h.writeError(w, "Too many generation requests. Please try again later.", http.StatusTooManyRequests)
		}),
	)
}
