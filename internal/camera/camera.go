package camera

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/lehigh-university-libraries/styleshift/internal/models"
)

var (
	// ErrPermissionDenied is returned by devices when camera access was refused
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrNoDevice is returned by devices when no camera is present
	ErrNoDevice = errors.New("no camera found")
	// ErrConstraints is returned by devices that cannot satisfy the requested constraints
	ErrConstraints = errors.New("camera constraints cannot be satisfied")
	// ErrUnavailable means every step of the fallback cascade failed
	ErrUnavailable = errors.New("camera unavailable")
	// ErrNoFrame means the stream has not produced a non-empty frame yet
	ErrNoFrame = errors.New("no video frame available")
	// ErrNotStarted means capture was requested without an active stream
	ErrNotStarted = errors.New("camera not started")
)

// Constraints describe one device acquisition attempt
type Constraints struct {
	FacingMode  models.FacingMode
	IdealWidth  int
	IdealHeight int
	// AnyFacing accepts any video device, ignoring FacingMode
	AnyFacing bool
}

func (c Constraints) String() string {
	switch {
	case c.AnyFacing:
		return "video:any"
	case c.IdealWidth > 0 && c.IdealHeight > 0:
		return fmt.Sprintf("video:%s@%dx%d", c.FacingMode, c.IdealWidth, c.IdealHeight)
	default:
		return fmt.Sprintf("video:%s", c.FacingMode)
	}
}

// Cascade returns the acquisition attempts for a facing mode, most specific first
func Cascade(mode models.FacingMode) []Constraints {
	return []Constraints{
		{FacingMode: mode, IdealWidth: 1280, IdealHeight: 720},
		{FacingMode: mode},
		{AnyFacing: true},
	}
}

// Device opens live video streams
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an open camera feed. Stop must release every track.
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	Stop()
	Active() bool
}

// Message maps an acquisition error to the single message shown to the user
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrNoDevice):
		return "Unable to access camera. Please check permissions or try a different device."
	case errors.Is(err, ErrNoFrame):
		return "The camera is still starting. Please try again in a moment."
	default:
		return "The camera could not be started. Please retry."
	}
}
