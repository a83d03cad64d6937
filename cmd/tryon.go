package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/lehigh-university-libraries/styleshift/internal/config"
	"github.com/lehigh-university-libraries/styleshift/internal/handlers"
	"github.com/lehigh-university-libraries/styleshift/internal/intake"
	"github.com/lehigh-university-libraries/styleshift/internal/models"
	"github.com/lehigh-university-libraries/styleshift/internal/session"
	"github.com/spf13/cobra"
)

func newTryOnCmd() *cobra.Command {
	var (
		imagePath      string
		outfit         string
		description    string
		allowSensitive bool
		outPath        string
	)

	cmd := &cobra.Command{
		Use:   "tryon",
		Short: "Generate a single try-on image from a photo",
		Example: `  # Use a catalog outfit
  styleshift tryon --image me.jpg --outfit business

  # Describe the outfit yourself
  styleshift tryon --image me.jpg --description "A green velvet tuxedo" --out tux.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outfit == "" && description == "" {
				return errors.New("one of --outfit or --description is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client, release, err := newGenerationClient(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer release()

			m := session.New("cli", session.Options{
				Client:   client,
				Provider: cfg.Provider,
				Timeout:  cfg.GenerationTimeout,
			})
			defer m.Close()

			if err := uploadFile(m, imagePath); err != nil {
				return err
			}

			m.SetAllowSensitive(allowSensitive)
			if outfit != "" {
				if err := m.SelectCatalogEntry(outfit); err != nil {
					return fmt.Errorf("%w: %s (see styleshift catalog)", err, outfit)
				}
			}
			if description != "" {
				m.EditDescription(description)
			}

			done, ok := m.Generate(cmd.Context())
			if !ok {
				return errors.New("nothing to generate: an image and a non-empty description are required")
			}
			select {
			case <-done:
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}

			state := m.State()
			if state.LastOutcome != models.OutcomeSucceeded {
				return errors.New(state.ErrorMessage)
			}

			data, err := handlers.ToPNG(state.Result)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = handlers.DownloadFilename(time.Now())
			}
			if err := renameio.WriteFile(outPath, data, 0644); err != nil {
				return fmt.Errorf("failed to write result: %w", err)
			}
			slog.Info("Try-on image saved", "path", outPath, "bytes", len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "Photo of the person (PNG, JPEG or WebP)")
	cmd.Flags().StringVar(&outfit, "outfit", "", "Catalog entry id to wear")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Free-text outfit description (overrides --outfit text)")
	cmd.Flags().BoolVar(&allowSensitive, "allow-sensitive", false, "Allow sensitive content")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output PNG path (default styleshift-<unix-ms>.png)")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}

func uploadFile(m *session.Machine, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat image: %w", err)
	}
	if err := m.Upload(filepath.Base(path), "", info.Size(), f); err != nil {
		return errors.New(intake.Message(err))
	}
	return nil
}
