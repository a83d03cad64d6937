package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/styleshift/internal/camera"
	"github.com/lehigh-university-libraries/styleshift/internal/config"
	"github.com/lehigh-university-libraries/styleshift/internal/generation"
	"github.com/lehigh-university-libraries/styleshift/internal/models"
	"github.com/lehigh-university-libraries/styleshift/internal/moderation"
	"github.com/lehigh-university-libraries/styleshift/internal/session"
	"github.com/lehigh-university-libraries/styleshift/internal/storage"
)

// newGenerationClient builds the configured provider, wrapped with the
// moderation guard when enabled. The returned func releases the client.
func newGenerationClient(ctx context.Context, cfg config.Config) (generation.Client, func(), error) {
	client, err := generation.New(ctx, cfg.Provider, cfg.GenerationOptions())
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if c, ok := client.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				slog.Warn("Failed to close generation client", "err", err)
			}
		}
	}

	if cfg.ModerationEnabled {
		detector, err := moderation.NewAWSDetector(ctx, cfg.AWSRegion)
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("failed to create moderation detector: %w", err)
		}
		slog.Info("Moderation enabled", "region", cfg.AWSRegion, "reject_confidence", cfg.RejectConfidence)
		client = moderation.NewGuard(client, moderation.NewService(detector, cfg.RejectConfidence))
	}
	return client, release, nil
}

// newCameraDevice returns the server-side camera, or nil when frames come
// from the browser.
func newCameraDevice(cfg config.Config) (camera.Device, error) {
	switch cfg.CameraDevice {
	case config.CameraChrome:
		return &camera.ChromeDevice{
			ExecPath:      cfg.ChromePath,
			FakeVideoPath: cfg.CameraFakeVideo,
			FakeDevice:    cfg.CameraFakeVideo != "",
		}, nil
	case config.CameraStill:
		device, err := camera.LoadStillDevice(cfg.CameraStillPath)
		if err != nil {
			return nil, err
		}
		return device, nil
	default:
		return nil, nil
	}
}

func newSessionFactory(cfg config.Config, client generation.Client, device camera.Device, facing models.FacingMode) storage.Factory {
	return func(id string) *session.Machine {
		var adapter *camera.Adapter
		if device != nil {
			adapter = camera.NewAdapter(device, facing)
		}
		return session.New(id, session.Options{
			Camera:   adapter,
			Client:   client,
			Provider: cfg.Provider,
			Timeout:  cfg.GenerationTimeout,
		})
	}
}
