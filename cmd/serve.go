package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/styleshift/internal/config"
	"github.com/lehigh-university-libraries/styleshift/internal/handlers"
	"github.com/lehigh-university-libraries/styleshift/internal/models"
	"github.com/lehigh-university-libraries/styleshift/internal/storage"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the try-on web API",
		Long: `Starts the StyleShift HTTP API on the specified port.

Clients create a session, upload a photo or capture one from the camera, pick an
outfit and request a generated try-on image (Gemini or OpenAI).`,
		Example: `  # Start server on default port 8888
  styleshift serve

  # Start server on custom port
  styleshift serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			client, release, err := newGenerationClient(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer release()

			device, err := newCameraDevice(cfg)
			if err != nil {
				return err
			}

			store := storage.New(newSessionFactory(cfg, client, device, models.FacingUser))
			defer store.Close()
			handler := handlers.New(store, cfg.GenerateRateLimit)

			sweepCtx, stopSweep := context.WithCancel(context.Background())
			defer stopSweep()
			go sweep(sweepCtx, store, cfg.SessionIdleTTL)

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("StyleShift API available", "addr", addr, "url", "http://localhost"+addr, "provider", cfg.Provider, "camera", cfg.CameraDevice)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}

// sweep closes idle sessions until ctx is done
func sweep(ctx context.Context, store *storage.SessionStore, ttl time.Duration) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := store.Sweep(now, ttl); removed > 0 {
				slog.Info("Swept idle sessions", "removed", removed, "remaining", store.Len())
			}
		}
	}
}
