package camera

import (
	"context"
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/lehigh-university-libraries/styleshift/internal/models"
)

// StillDevice is a video device that plays a single fixed image. It is used
// for kiosk setups without a real camera and for tests.
type StillDevice struct {
	img     image.Image
	facings []models.FacingMode

	mu   sync.Mutex
	open int
}

// NewStillDevice returns a device serving img. When facings is non-empty,
// requests for any other facing mode fail with ErrConstraints.
func NewStillDevice(img image.Image, facings ...models.FacingMode) *StillDevice {
	return &StillDevice{img: img, facings: facings}
}

// LoadStillDevice reads the image served by the device from disk
func LoadStillDevice(path string, facings ...models.FacingMode) (*StillDevice, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open still image: %w", err)
	}
	return NewStillDevice(img, facings...), nil
}

func (d *StillDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.img == nil {
		return nil, ErrNoDevice
	}
	if !c.AnyFacing && len(d.facings) > 0 && !slices.Contains(d.facings, c.FacingMode) {
		return nil, fmt.Errorf("%w: no %s-facing camera", ErrConstraints, c.FacingMode)
	}

	d.mu.Lock()
	d.open++
	d.mu.Unlock()
	return &stillStream{device: d, active: true}, nil
}

// OpenStreams returns how many streams are currently held
func (d *StillDevice) OpenStreams() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

type stillStream struct {
	device *StillDevice

	mu     sync.Mutex
	active bool
}

func (s *stillStream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return nil, ErrNotStarted
	}
	return imaging.Clone(s.device.img), nil
}

func (s *stillStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	s.device.mu.Lock()
	s.device.open--
	s.device.mu.Unlock()
}

func (s *stillStream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
