package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/lehigh-university-libraries/styleshift/internal/metrics"
	"github.com/lehigh-university-libraries/styleshift/internal/models"
)

const captureQuality = 90

// Adapter owns the camera device for one session. Start, Switch, Capture and
// Stop are serialized so at most one stream is ever held.
type Adapter struct {
	device Device

	mu     sync.Mutex
	facing models.FacingMode
	stream Stream
	err    error
}

// NewAdapter returns an adapter preferring the given facing mode
func NewAdapter(device Device, facing models.FacingMode) *Adapter {
	if facing == "" {
		facing = models.FacingUser
	}
	return &Adapter{device: device, facing: facing}
}

// Start stops any active stream and runs the fallback cascade for the
// current facing mode. It returns nil on the first attempt that succeeds.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.startLocked(ctx)
}

func (a *Adapter) startLocked(ctx context.Context) error {
	a.stopLocked()
	a.err = nil

	if a.device == nil {
		a.err = errors.Join(ErrUnavailable, ErrNoDevice)
		return a.err
	}

	var lastErr error
	for i, c := range Cascade(a.facing) {
		step := strconv.Itoa(i + 1)
		stream, err := a.device.Open(ctx, c)
		if err != nil {
			metrics.CameraAttempts.WithLabelValues(step, "failed").Inc()
			slog.Warn("Camera attempt failed", "step", step, "constraints", c.String(), "err", err)
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		metrics.CameraAttempts.WithLabelValues(step, "ok").Inc()
		slog.Debug("Camera started", "step", step, "constraints", c.String())
		a.stream = stream
		return nil
	}

	a.err = errors.Join(ErrUnavailable, lastErr)
	return a.err
}

// Switch toggles between front and rear cameras and restarts acquisition.
// A failed switch leaves the adapter in its error state.
func (a *Adapter) Switch(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.facing = a.facing.Toggle()
	return a.startLocked(ctx)
}

// Capture grabs a single still at native resolution and releases the device.
// Front-facing captures are mirrored to match the live preview.
func (a *Adapter) Capture(ctx context.Context) (models.Image, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stream == nil || !a.stream.Active() {
		return models.Image{}, ErrNotStarted
	}

	frame, err := a.stream.Frame(ctx)
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to grab frame: %w", err)
	}
	if frame == nil || frame.Bounds().Dx() == 0 || frame.Bounds().Dy() == 0 {
		return models.Image{}, ErrNoFrame
	}

	var out image.Image = frame
	if a.facing == models.FacingUser {
		out = imaging.FlipH(frame)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(captureQuality)); err != nil {
		return models.Image{}, fmt.Errorf("failed to encode capture: %w", err)
	}

	a.stopLocked()
	slog.Debug("Frame captured", "width", frame.Bounds().Dx(), "height", frame.Bounds().Dy(), "facing", a.facing)
	return models.Image{Data: buf.Bytes(), MIMEType: "image/jpeg"}, nil
}

// Stop releases the device. Safe to call on every exit path.
func (a *Adapter) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *Adapter) stopLocked() {
	if a.stream != nil {
		a.stream.Stop()
		a.stream = nil
	}
}

// Facing returns the preferred facing mode
func (a *Adapter) Facing() models.FacingMode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.facing
}

// Active reports whether a device stream is held
func (a *Adapter) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream != nil && a.stream.Active()
}

// Err returns the error from the last failed start, if any
func (a *Adapter) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Info summarizes the adapter for session snapshots
func (a *Adapter) Info() models.CameraInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return models.CameraInfo{
		FacingMode: a.facing,
		Active:     a.stream != nil && a.stream.Active(),
		Mirrored:   a.facing == models.FacingUser,
	}
}
