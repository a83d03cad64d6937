package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/renameio/v2"
	"github.com/lehigh-university-libraries/styleshift/internal/camera"
	"github.com/lehigh-university-libraries/styleshift/internal/config"
	"github.com/lehigh-university-libraries/styleshift/internal/models"
	"github.com/lehigh-university-libraries/styleshift/internal/session"
	"github.com/spf13/cobra"
)

func newCaptureCmd() *cobra.Command {
	var (
		facing  string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a single still from the configured camera",
		Long: `Captures one frame from the camera selected by CAMERA_DEVICE and writes it as JPEG.

Front-facing captures are mirrored, the same way the live preview is.`,
		Example: `  CAMERA_DEVICE=chrome styleshift capture --facing environment --out me.jpg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := models.FacingMode(facing)
			if mode != models.FacingUser && mode != models.FacingEnvironment {
				return fmt.Errorf("unknown facing mode %q (use user or environment)", facing)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			device, err := newCameraDevice(cfg)
			if err != nil {
				return err
			}
			if device == nil {
				return errors.New("no camera configured: set CAMERA_DEVICE to chrome or still")
			}

			m := session.New("capture", session.Options{Camera: camera.NewAdapter(device, mode)})
			defer m.Close()

			if err := m.OpenCamera(cmd.Context()); err != nil {
				return fmt.Errorf("%s: %w", camera.Message(err), err)
			}
			if err := m.Capture(cmd.Context()); err != nil {
				return fmt.Errorf("%s: %w", camera.Message(err), err)
			}

			img, ok := m.Source()
			if !ok {
				return errors.New("no frame captured")
			}
			if err := renameio.WriteFile(outPath, img.Data, 0644); err != nil {
				return fmt.Errorf("failed to write capture: %w", err)
			}
			slog.Info("Capture saved", "path", outPath, "facing", mode, "bytes", len(img.Data))
			return nil
		},
	}

	cmd.Flags().StringVar(&facing, "facing", string(models.FacingUser), "Camera facing mode (user or environment)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "capture.jpg", "Output JPEG path")

	return cmd
}
