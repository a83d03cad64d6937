package models

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// View is the UI surface a session is currently on. Exactly one is active.
type View string

const (
	ViewUpload View = "UPLOAD"
	ViewCamera View = "CAMERA"
	ViewEdit   View = "EDITOR"
	ViewResult View = "RESULT"
)

// RequestState tracks the generation request lifecycle.
type RequestState string

const (
	RequestIdle      RequestState = "idle"
	RequestPending   RequestState = "loading"
	RequestSucceeded RequestState = "success"
	RequestFailed    RequestState = "error"
)

// Outcome is the result of the most recently completed generation call.
type Outcome string

const (
	OutcomeNone      Outcome = "none"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// FacingMode is the camera orientation preference
type FacingMode string

const (
	FacingUser        FacingMode = "user"
	FacingEnvironment FacingMode = "environment"
)

// Toggle returns the opposite facing mode
func (f FacingMode) Toggle() FacingMode {
	if f == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}

// Image is an encoded image payload (PNG, JPEG, WebP bytes plus MIME type)
type Image struct {
	Data     []byte
	MIMEType string
}

// IsZero reports whether the payload carries no data
func (i Image) IsZero() bool {
	return len(i.Data) == 0
}

// DataURL renders the payload as a base64 data URL
func (i Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Extension returns a file extension (with dot) matching the MIME type
func (i Image) Extension() string {
	switch i.MIMEType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// ParseDataURL decodes a base64 data URL such as "data:image/png;base64,...."
func ParseDataURL(s string) (Image, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return Image{}, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, fmt.Errorf("malformed data URL")
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return Image{}, fmt.Errorf("data URL is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode data URL: %w", err)
	}
	return Image{Data: data, MIMEType: mimeType}, nil
}

// ImageInfo describes an image without carrying its bytes
type ImageInfo struct {
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`
	URL      string `json:"url,omitempty"`
}

// SessionSnapshot is the JSON view of a try-on session
type SessionSnapshot struct {
	ID                    string       `json:"id"`
	View                  View         `json:"view"`
	SourceImage           *ImageInfo   `json:"source_image,omitempty"`
	Description           string       `json:"description"`
	SelectedCatalogEntry  string       `json:"selected_catalog_entry,omitempty"`
	ResultImage           *ImageInfo   `json:"result_image,omitempty"`
	RequestState          RequestState `json:"request_state"`
	LastOutcome           Outcome      `json:"last_outcome"`
	ErrorMessage          string       `json:"error_message,omitempty"`
	AllowSensitiveContent bool         `json:"allow_sensitive_content"`
	Camera                *CameraInfo  `json:"camera,omitempty"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// CameraInfo reports the capture adapter state while the Camera view is active
type CameraInfo struct {
	FacingMode FacingMode `json:"facing_mode"`
	Active     bool       `json:"active"`
	Mirrored   bool       `json:"mirrored"`
}
