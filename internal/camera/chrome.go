package camera

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"sync"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/lehigh-university-libraries/styleshift/internal/models"
)

// ChromeDevice acquires the camera through a headless Chromium using the
// browser's getUserMedia, so a kiosk gets the same constraint handling the
// web front end has.
type ChromeDevice struct {
	// ExecPath overrides the Chromium binary (CHROME_PATH)
	ExecPath string
	// FakeVideoPath feeds a y4m/mjpeg file as the camera when set
	FakeVideoPath string
	// FakeDevice makes Chromium expose its synthetic test camera
	FakeDevice bool
}

type openResult struct {
	OK        bool   `json:"ok"`
	Name      string `json:"name"`
	Message   string `json:"message"`
	PlayError string `json:"playError"`
}

const openScript = `(async () => {
  const constraints = %s;
  try {
    const stream = await navigator.mediaDevices.getUserMedia(constraints);
    const video = document.createElement('video');
    video.muted = true;
    video.playsInline = true;
    video.srcObject = stream;
    document.body.appendChild(video);
    window.__styleshiftStream = stream;
    window.__styleshiftVideo = video;
    try {
      await video.play();
    } catch (e) {
      return {ok: true, playError: String(e)};
    }
    return {ok: true};
  } catch (e) {
    return {ok: false, name: e.name || '', message: e.message || String(e)};
  }
})()`

const frameScript = `(() => {
  const v = window.__styleshiftVideo;
  if (!v || v.videoWidth === 0 || v.videoHeight === 0) return '';
  const c = document.createElement('canvas');
  c.width = v.videoWidth;
  c.height = v.videoHeight;
  c.getContext('2d').drawImage(v, 0, 0, c.width, c.height);
  return c.toDataURL('image/png');
})()`

const stopScript = `(() => {
  const s = window.__styleshiftStream;
  if (s) s.getTracks().forEach(t => t.stop());
  window.__styleshiftStream = null;
  return true;
})()`

// mediaConstraints renders the getUserMedia argument for c
func mediaConstraints(c Constraints) (string, error) {
	var video any = true
	if !c.AnyFacing {
		v := map[string]any{"facingMode": string(c.FacingMode)}
		if c.IdealWidth > 0 && c.IdealHeight > 0 {
			v["width"] = map[string]int{"ideal": c.IdealWidth}
			v["height"] = map[string]int{"ideal": c.IdealHeight}
		}
		video = v
	}
	out, err := json.Marshal(map[string]any{"video": video, "audio": false})
	if err != nil {
		return "", fmt.Errorf("failed to marshal constraints: %w", err)
	}
	return string(out), nil
}

// classify maps a DOMException name to the package error classes
func classify(name, message string) error {
	switch name {
	case "NotAllowedError", "SecurityError", "PermissionDeniedError":
		return fmt.Errorf("%w: %s", ErrPermissionDenied, message)
	case "NotFoundError", "DevicesNotFoundError":
		return fmt.Errorf("%w: %s", ErrNoDevice, message)
	case "OverconstrainedError", "ConstraintNotSatisfiedError":
		return fmt.Errorf("%w: %s", ErrConstraints, message)
	default:
		return fmt.Errorf("getUserMedia failed: %s: %s", name, message)
	}
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

func (d *ChromeDevice) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("use-fake-ui-for-media-stream", true),
	)
	if d.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(d.ExecPath))
	}
	if d.FakeDevice || d.FakeVideoPath != "" {
		opts = append(opts, chromedp.Flag("use-fake-device-for-media-stream", true))
	}
	if d.FakeVideoPath != "" {
		opts = append(opts, chromedp.Flag("use-file-for-fake-video-capture", d.FakeVideoPath))
	}
	return opts
}

// Open starts a browser, requests the camera with c and begins playback.
// The browser lives until the returned stream is stopped.
func (d *ChromeDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	constraints, err := mediaConstraints(c)
	if err != nil {
		return nil, err
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), d.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	release := func() {
		browserCancel()
		allocCancel()
	}

	// abort the browser if the caller gives up while acquisition is in flight
	detach := context.AfterFunc(ctx, release)

	var res openResult
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.Evaluate(fmt.Sprintf(openScript, constraints), &res, awaitPromise),
	)
	if !detach() {
		return nil, ctx.Err()
	}
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to run browser: %w", err)
	}
	if !res.OK {
		release()
		return nil, classify(res.Name, res.Message)
	}
	if res.PlayError != "" {
		slog.Warn("Video play failed", "err", res.PlayError)
	}

	return &chromeStream{ctx: browserCtx, release: release, active: true}, nil
}

type chromeStream struct {
	ctx     context.Context
	release func()

	mu     sync.Mutex
	active bool
}

func (s *chromeStream) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return nil, ErrNotStarted
	}

	var dataURL string
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(frameScript, &dataURL)); err != nil {
		return nil, fmt.Errorf("failed to draw frame: %w", err)
	}
	if dataURL == "" {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0)), nil
	}

	payload, err := models.ParseDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	frame, err := png.Decode(bytes.NewReader(payload.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return frame, nil
}

func (s *chromeStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false

	var stopped bool
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(stopScript, &stopped)); err != nil {
		slog.Warn("Failed to stop media tracks", "err", err)
	}
	s.release()
}

func (s *chromeStream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
