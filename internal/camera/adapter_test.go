package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/lehigh-university-libraries/styleshift/internal/models"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedDevice fails the first failures attempts and records every
// constraint set it was asked for.
type scriptedDevice struct {
	failures int
	err      error
	frame    image.Image

	mu        sync.Mutex
	attempts  []Constraints
	open      int
	maxOpen   int
	openOrder []string
}

func (d *scriptedDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts = append(d.attempts, c)
	if len(d.attempts) <= d.failures {
		return nil, d.err
	}
	if d.open > 0 {
		d.openOrder = append(d.openOrder, "overlap")
	}
	d.open++
	if d.open > d.maxOpen {
		d.maxOpen = d.open
	}
	d.openOrder = append(d.openOrder, "open")
	return &scriptedStream{device: d, frame: d.frame, active: true}, nil
}

func (d *scriptedDevice) openStreams() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

type scriptedStream struct {
	device *scriptedDevice
	frame  image.Image
	active bool
}

func (s *scriptedStream) Frame(ctx context.Context) (image.Image, error) {
	return s.frame, nil
}

func (s *scriptedStream) Stop() {
	if !s.active {
		return
	}
	s.active = false
	s.device.mu.Lock()
	s.device.open--
	s.device.openOrder = append(s.device.openOrder, "stop")
	s.device.mu.Unlock()
}

func (s *scriptedStream) Active() bool {
	return s.active
}

// asymmetricFrame is 32x16 with a red left half and a blue right half
func asymmetricFrame() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 32, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 32; x++ {
			if x < 16 {
				img.Set(x, y, color.NRGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.NRGBA{B: 255, A: 255})
			}
		}
	}
	return img
}

func decodeCapture(t *testing.T, img models.Image) image.Image {
	t.Helper()
	if img.MIMEType != "image/jpeg" {
		t.Fatalf("Expected image/jpeg capture, got %s", img.MIMEType)
	}
	decoded, err := imaging.Decode(bytes.NewReader(img.Data))
	if err != nil {
		t.Fatalf("Failed to decode capture: %v", err)
	}
	return decoded
}

func leftIsRed(img image.Image) bool {
	r, _, b, _ := img.At(4, 8).RGBA()
	return r > b
}

func TestCascadeOrder(t *testing.T) {
	steps := Cascade(models.FacingEnvironment)
	if len(steps) != 3 {
		t.Fatalf("Expected 3 cascade steps, got %d", len(steps))
	}
	if steps[0].FacingMode != models.FacingEnvironment || steps[0].IdealWidth != 1280 || steps[0].IdealHeight != 720 {
		t.Errorf("Unexpected first step: %+v", steps[0])
	}
	if steps[1].FacingMode != models.FacingEnvironment || steps[1].IdealWidth != 0 || steps[1].AnyFacing {
		t.Errorf("Unexpected second step: %+v", steps[1])
	}
	if !steps[2].AnyFacing {
		t.Errorf("Expected third step to accept any device: %+v", steps[2])
	}
}

func TestStartFallsBack(t *testing.T) {
	tests := []struct {
		name         string
		failures     int
		wantAttempts int
	}{
		{name: "ideal constraints succeed", failures: 0, wantAttempts: 1},
		{name: "facing mode only", failures: 1, wantAttempts: 2},
		{name: "any device", failures: 2, wantAttempts: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := &scriptedDevice{failures: tt.failures, err: ErrConstraints, frame: asymmetricFrame()}
			adapter := NewAdapter(device, models.FacingUser)
			defer adapter.Stop()

			if err := adapter.Start(context.Background()); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(device.attempts) != tt.wantAttempts {
				t.Errorf("Expected %d attempts, got %d", tt.wantAttempts, len(device.attempts))
			}
			if !adapter.Active() {
				t.Errorf("Expected adapter to hold a stream")
			}
			if adapter.Err() != nil {
				t.Errorf("Expected no error, got %v", adapter.Err())
			}
		})
	}
}

func TestStartAllFallbacksFail(t *testing.T) {
	device := &scriptedDevice{failures: 3, err: ErrPermissionDenied}
	adapter := NewAdapter(device, models.FacingUser)

	err := adapter.Start(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Expected last device error to be kept, got %v", err)
	}
	if adapter.Active() {
		t.Errorf("Expected no active stream after exhausting fallbacks")
	}
	if device.openStreams() != 0 {
		t.Errorf("Expected no open streams, got %d", device.openStreams())
	}
	if adapter.Err() == nil {
		t.Errorf("Expected adapter to report its error state")
	}
	if Message(err) != "Unable to access camera. Please check permissions or try a different device." {
		t.Errorf("Unexpected message: %s", Message(err))
	}
}

func TestRetryRerunsFullCascade(t *testing.T) {
	device := &scriptedDevice{failures: 3, err: errors.New("device busy"), frame: asymmetricFrame()}
	adapter := NewAdapter(device, models.FacingUser)
	defer adapter.Stop()

	if err := adapter.Start(context.Background()); err == nil {
		t.Fatal("Expected first start to fail")
	}
	if err := adapter.Start(context.Background()); err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if len(device.attempts) != 4 {
		t.Errorf("Expected retry to start from the first step (4 attempts), got %d", len(device.attempts))
	}
	if device.attempts[3].IdealWidth != 1280 {
		t.Errorf("Expected retry to begin with ideal constraints, got %+v", device.attempts[3])
	}
}

func TestCaptureMirrorsFrontCamera(t *testing.T) {
	tests := []struct {
		name         string
		facing       models.FacingMode
		wantLeftRed  bool
		wantMirrored bool
	}{
		{name: "user facing is mirrored", facing: models.FacingUser, wantLeftRed: false, wantMirrored: true},
		{name: "environment facing is not mirrored", facing: models.FacingEnvironment, wantLeftRed: true, wantMirrored: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := &scriptedDevice{frame: asymmetricFrame()}
			adapter := NewAdapter(device, tt.facing)
			if err := adapter.Start(context.Background()); err != nil {
				t.Fatalf("Unexpected start error: %v", err)
			}
			if adapter.Info().Mirrored != tt.wantMirrored {
				t.Errorf("Expected mirrored=%v", tt.wantMirrored)
			}

			img, err := adapter.Capture(context.Background())
			if err != nil {
				t.Fatalf("Unexpected capture error: %v", err)
			}
			decoded := decodeCapture(t, img)
			if decoded.Bounds().Dx() != 32 || decoded.Bounds().Dy() != 16 {
				t.Errorf("Expected native 32x16 resolution, got %v", decoded.Bounds())
			}
			if leftIsRed(decoded) != tt.wantLeftRed {
				t.Errorf("Expected left pixel red=%v", tt.wantLeftRed)
			}
			if adapter.Active() || device.openStreams() != 0 {
				t.Errorf("Expected capture to release the device")
			}
		})
	}
}

func TestCaptureWithoutFrame(t *testing.T) {
	device := &scriptedDevice{frame: image.NewNRGBA(image.Rect(0, 0, 0, 0))}
	adapter := NewAdapter(device, models.FacingUser)
	defer adapter.Stop()

	if err := adapter.Start(context.Background()); err != nil {
		t.Fatalf("Unexpected start error: %v", err)
	}
	if _, err := adapter.Capture(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Expected ErrNoFrame, got %v", err)
	}
	if !adapter.Active() {
		t.Errorf("Expected stream to stay open after a failed capture")
	}
}

func TestCaptureBeforeStart(t *testing.T) {
	adapter := NewAdapter(&scriptedDevice{}, models.FacingUser)
	if _, err := adapter.Capture(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Expected ErrNotStarted, got %v", err)
	}
}

func TestSwitchStopsPreviousStreamFirst(t *testing.T) {
	device := &scriptedDevice{frame: asymmetricFrame()}
	adapter := NewAdapter(device, models.FacingUser)
	defer adapter.Stop()

	if err := adapter.Start(context.Background()); err != nil {
		t.Fatalf("Unexpected start error: %v", err)
	}
	if err := adapter.Switch(context.Background()); err != nil {
		t.Fatalf("Unexpected switch error: %v", err)
	}
	if adapter.Facing() != models.FacingEnvironment {
		t.Errorf("Expected environment facing after switch, got %s", adapter.Facing())
	}
	if device.maxOpen != 1 {
		t.Errorf("Expected at most one simultaneous stream, got %d", device.maxOpen)
	}
	want := []string{"open", "stop", "open"}
	if len(device.openOrder) != len(want) {
		t.Fatalf("Expected order %v, got %v", want, device.openOrder)
	}
	for i := range want {
		if device.openOrder[i] != want[i] {
			t.Errorf("Expected order %v, got %v", want, device.openOrder)
			break
		}
	}
	last := device.attempts[len(device.attempts)-1]
	if last.FacingMode != models.FacingEnvironment {
		t.Errorf("Expected switch to request environment camera, got %+v", last)
	}
}

func TestFailedSwitchKeepsErrorState(t *testing.T) {
	device := NewStillDevice(asymmetricFrame(), models.FacingUser)
	adapter := NewAdapter(&failAfterFirst{Device: device}, models.FacingUser)
	defer adapter.Stop()

	if err := adapter.Start(context.Background()); err != nil {
		t.Fatalf("Unexpected start error: %v", err)
	}
	if err := adapter.Switch(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected switch to fail with ErrUnavailable, got %v", err)
	}
	if adapter.Active() {
		t.Errorf("Expected no stream after failed switch")
	}
	if adapter.Facing() != models.FacingEnvironment {
		t.Errorf("Expected failed switch not to fall back to the previous facing mode")
	}
	if device.OpenStreams() != 0 {
		t.Errorf("Expected previous stream released, got %d open", device.OpenStreams())
	}
}

// failAfterFirst lets the first Open through and fails every later one
type failAfterFirst struct {
	Device
	calls int
}

func (f *failAfterFirst) Open(ctx context.Context, c Constraints) (Stream, error) {
	f.calls++
	if f.calls > 1 {
		return nil, ErrNoDevice
	}
	return f.Device.Open(ctx, c)
}

func TestStartCancelledContext(t *testing.T) {
	device := NewStillDevice(asymmetricFrame())
	adapter := NewAdapter(device, models.FacingUser)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := adapter.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if device.OpenStreams() != 0 {
		t.Errorf("Expected no open streams")
	}
}

func TestNilDevice(t *testing.T) {
	adapter := NewAdapter(nil, "")
	if adapter.Facing() != models.FacingUser {
		t.Errorf("Expected default facing mode user, got %s", adapter.Facing())
	}
	if err := adapter.Start(context.Background()); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice, got %v", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	device := NewStillDevice(asymmetricFrame())
	adapter := NewAdapter(device, models.FacingUser)
	if err := adapter.Start(context.Background()); err != nil {
		t.Fatalf("Unexpected start error: %v", err)
	}
	adapter.Stop()
	adapter.Stop()
	if device.OpenStreams() != 0 {
		t.Errorf("Expected 0 open streams, got %d", device.OpenStreams())
	}
}
