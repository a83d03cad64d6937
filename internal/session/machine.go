package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/styleshift/internal/camera"
	"github.com/lehigh-university-libraries/styleshift/internal/catalog"
	"github.com/lehigh-university-libraries/styleshift/internal/generation"
	"github.com/lehigh-university-libraries/styleshift/internal/intake"
	"github.com/lehigh-university-libraries/styleshift/internal/metrics"
	"github.com/lehigh-university-libraries/styleshift/internal/models"
)

var (
	// ErrUnknownCatalogEntry is returned when selecting an id that is not in the catalog
	ErrUnknownCatalogEntry = errors.New("unknown catalog entry")
	// ErrWrongView is returned by operations the current view does not allow
	ErrWrongView = errors.New("not allowed in the current view")
)

// Options configures a Machine
type Options struct {
	// Camera is nil when frames are captured by the client instead of a server device.
	Camera   *camera.Adapter
	Client   generation.Client
	Provider string
	Timeout  time.Duration
	Now      func() time.Time
}

// Machine is one live try-on session
type Machine struct {
	id       string
	camera   *camera.Adapter
	client   generation.Client
	provider string
	timeout  time.Duration
	now      func() time.Time

	mu        sync.Mutex
	state     State
	createdAt time.Time
	updatedAt time.Time

	closed   context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup
}

// New returns a machine in the Upload view
func New(id string, opts Options) *Machine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	closed, shutdown := context.WithCancel(context.Background())
	created := now()
	return &Machine{
		id:        id,
		camera:    opts.Camera,
		client:    opts.Client,
		provider:  opts.Provider,
		timeout:   opts.Timeout,
		now:       now,
		state:     NewState(),
		createdAt: created,
		updatedAt: created,
		closed:    closed,
		shutdown:  shutdown,
	}
}

func (m *Machine) ID() string {
	return m.id
}

// State returns a copy of the current state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) CreatedAt() time.Time {
	return m.createdAt
}

// UpdatedAt is the time of the last accepted or ignored event
func (m *Machine) UpdatedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updatedAt
}

func (m *Machine) apply(ev Event) Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(ev)
}

// applyLocked ignores every event once the machine is closed
func (m *Machine) applyLocked(ev Event) Command {
	if m.closed.Err() != nil {
		return nil
	}
	var cmd Command
	m.state, cmd = Apply(m.state, ev)
	m.updatedAt = m.now()
	return cmd
}

func (m *Machine) execute(ctx context.Context, cmd Command) error {
	switch cmd.(type) {
	case StartCapture, RestartCapture:
		if m.camera == nil {
			return nil
		}
		return m.settleCamera(m.camera.Start(ctx))
	case ReleaseCapture:
		if m.camera != nil {
			m.camera.Stop()
		}
	}
	return nil
}

// settleCamera records an acquisition result. A stream acquired after the
// session left the Camera view or was closed is released straight away.
func (m *Machine) settleCamera(err error) error {
	m.mu.Lock()
	release := m.closed.Err() != nil || m.state.View != models.ViewCamera
	switch {
	case release:
	case err != nil:
		slog.Warn("Camera unavailable", "session", m.id, "err", err)
		m.applyLocked(CameraFailed{Message: camera.Message(err)})
	default:
		m.applyLocked(CameraStarted{})
	}
	m.mu.Unlock()

	// the adapter lock is taken outside the session lock
	if release {
		m.camera.Stop()
	}
	return err
}

// OpenCamera moves to the Camera view and acquires the device
func (m *Machine) OpenCamera(ctx context.Context) error {
	return m.execute(ctx, m.apply(OpenCamera{}))
}

// RetryCamera re-runs the full acquisition cascade
func (m *Machine) RetryCamera(ctx context.Context) error {
	return m.execute(ctx, m.apply(CameraRetry{}))
}

// SwitchCamera toggles between the front and rear camera
func (m *Machine) SwitchCamera(ctx context.Context) error {
	if m.camera == nil || m.State().View != models.ViewCamera {
		return nil
	}
	return m.settleCamera(m.camera.Switch(ctx))
}

// Capture grabs a frame from the server-side camera and moves to the Edit view
func (m *Machine) Capture(ctx context.Context) error {
	if m.State().View != models.ViewCamera {
		return nil
	}
	if m.camera == nil {
		return camera.ErrNotStarted
	}

	img, err := m.camera.Capture(ctx)
	if err != nil {
		m.mu.Lock()
		m.applyLocked(CameraFailed{Message: camera.Message(err)})
		m.mu.Unlock()
		return err
	}
	return m.execute(ctx, m.apply(FrameCaptured{Image: img}))
}

// AcceptFrame takes a frame captured by the client while in the Camera view
func (m *Machine) AcceptFrame(img models.Image) {
	_ = m.execute(context.Background(), m.apply(FrameCaptured{Image: img}))
}

// CancelCamera returns to Upload and releases the device
func (m *Machine) CancelCamera() {
	_ = m.execute(context.Background(), m.apply(CameraCancelled{}))
}

// Upload validates a picked file and moves to the Edit view. The intake error
// is returned so callers can pick a status code. The session carries its message.
// Outside the Upload view it returns ErrWrongView without reading r.
func (m *Machine) Upload(name, mimeType string, size int64, r io.Reader) error {
	if view := m.State().View; view != models.ViewUpload {
		return fmt.Errorf("%w: upload in %s", ErrWrongView, view)
	}

	img, err := intake.Read(r, size, mimeType)
	if err != nil {
		slog.Info("Upload rejected", "session", m.id, "file", name, "size", size, "err", err)
		m.RejectUpload(err)
		return err
	}

	metrics.UploadsTotal.WithLabelValues("accepted").Inc()
	slog.Info("Upload accepted", "session", m.id, "file", name, "mime_type", img.MIMEType, "bytes", len(img.Data))
	m.apply(FileAccepted{Image: img})
	return nil
}

// RejectUpload records an upload that failed before it reached intake
func (m *Machine) RejectUpload(err error) {
	metrics.UploadsTotal.WithLabelValues("rejected").Inc()
	m.apply(FileRejected{Message: intake.Message(err)})
}

func (m *Machine) ClearImage() {
	m.apply(ClearImage{})
}

// SelectCatalogEntry fills the description with the entry's prompt
func (m *Machine) SelectCatalogEntry(id string) error {
	entry, ok := catalog.Lookup(id)
	if !ok {
		return ErrUnknownCatalogEntry
	}
	m.apply(SelectCatalogEntry{Entry: entry})
	return nil
}

func (m *Machine) EditDescription(text string) {
	m.apply(EditDescription{Text: text})
}

func (m *Machine) ClearSelection() {
	m.apply(ClearSelection{})
}

func (m *Machine) SetAllowSensitive(allow bool) {
	m.apply(SetSensitive{Allow: allow})
}

func (m *Machine) TryAnother() {
	m.apply(TryAnother{})
}

// Reset returns to the initial state, keeping the sensitive-content preference
func (m *Machine) Reset() {
	_ = m.execute(context.Background(), m.apply(Reset{}))
}

// Generate dispatches a generation request when the session allows one. The
// returned channel is closed once the outcome has been applied. The request
// outlives ctx cancellation and is bounded by the configured timeout instead.
func (m *Machine) Generate(ctx context.Context) (<-chan struct{}, bool) {
	m.mu.Lock()
	dispatch, ok := m.applyLocked(RequestGeneration{}).(DispatchGeneration)
	if ok {
		m.wg.Add(1)
	}
	m.mu.Unlock()
	if !ok {
		return nil, false
	}

	done := make(chan struct{})
	go func() {
		defer m.wg.Done()
		defer close(done)
		m.runGeneration(context.WithoutCancel(ctx), dispatch)
	}()
	return done, true
}

func (m *Machine) runGeneration(ctx context.Context, d DispatchGeneration) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(m.closed, cancel)
	defer stop()

	slog.Info("Generating try-on image", "session", m.id, "provider", m.provider, "ticket", d.Ticket, "allow_sensitive", d.Request.AllowSensitive)
	start := time.Now()
	img, err := m.generate(ctx, d.Request)
	duration := time.Since(start)
	metrics.GenerationDuration.WithLabelValues(m.provider).Observe(duration.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed.Err() != nil || !current(m.state, d.Ticket) {
		metrics.GenerationDiscarded.Inc()
		slog.Info("Discarding stale generation result", "session", m.id, "ticket", d.Ticket, "err", err)
		return
	}

	if err != nil {
		metrics.GenerationTotal.WithLabelValues(m.provider, "failed").Inc()
		slog.Error("Generation failed", "session", m.id, "duration", duration, "err", err)
		m.applyLocked(GenerationFailed{Ticket: d.Ticket, Reason: generation.Reason(err)})
		return
	}
	metrics.GenerationTotal.WithLabelValues(m.provider, "succeeded").Inc()
	slog.Info("Generation succeeded", "session", m.id, "duration", duration, "bytes", len(img.Data))
	m.applyLocked(GenerationSucceeded{Ticket: d.Ticket, Image: img})
}

func (m *Machine) generate(ctx context.Context, req generation.Request) (models.Image, error) {
	if m.client == nil {
		return models.Image{}, errors.New("no generation client configured")
	}
	return m.client.Generate(ctx, req)
}

// Source returns the current source image, if any
func (m *Machine) Source() (models.Image, bool) {
	s := m.State()
	return s.Source, !s.Source.IsZero()
}

// Result returns the generated image while in the Result view
func (m *Machine) Result() (models.Image, bool) {
	s := m.State()
	return s.Result, !s.Result.IsZero()
}

// Snapshot returns the JSON view of the session
func (m *Machine) Snapshot() models.SessionSnapshot {
	m.mu.Lock()
	s := m.state
	snap := models.SessionSnapshot{
		ID:                    m.id,
		View:                  s.View,
		Description:           s.Description,
		SelectedCatalogEntry:  s.SelectedEntry,
		RequestState:          s.RequestState,
		LastOutcome:           s.LastOutcome,
		ErrorMessage:          s.ErrorMessage,
		AllowSensitiveContent: s.AllowSensitive,
		CreatedAt:             m.createdAt,
		UpdatedAt:             m.updatedAt,
	}
	m.mu.Unlock()

	if !s.Source.IsZero() {
		snap.SourceImage = &models.ImageInfo{MIMEType: s.Source.MIMEType, Size: len(s.Source.Data), URL: "/api/sessions/" + m.id + "/source"}
	}
	if !s.Result.IsZero() {
		snap.ResultImage = &models.ImageInfo{MIMEType: s.Result.MIMEType, Size: len(s.Result.Data), URL: "/api/sessions/" + m.id + "/result"}
	}
	// the adapter lock is taken outside the session lock
	if s.View == models.ViewCamera && m.camera != nil {
		info := m.camera.Info()
		snap.Camera = &info
	}
	return snap
}

// Close cancels in-flight generation, releases the camera and waits for
// background work to finish. Every later operation is a no-op.
func (m *Machine) Close() {
	m.mu.Lock()
	m.shutdown()
	m.mu.Unlock()
	if m.camera != nil {
		m.camera.Stop()
	}
	m.wg.Wait()
}
