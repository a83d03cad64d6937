package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/styleshift/internal/models"
)

// Request is a single try-on generation request
type Request struct {
	Source         models.Image
	Description    string
	AllowSensitive bool
}

// Client renders the person in Source wearing the described outfit.
// Calls are single-shot; implementations must not retry.
type Client interface {
	Generate(ctx context.Context, req Request) (models.Image, error)
}

// ClientFunc adapts a function to the Client interface
type ClientFunc func(ctx context.Context, req Request) (models.Image, error)

func (f ClientFunc) Generate(ctx context.Context, req Request) (models.Image, error) {
	return f(ctx, req)
}

// Error is a generation failure carrying a reason that can be shown to the user verbatim
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Reason != "":
		return e.Reason + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Reason
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Reason extracts the user-facing reason from err, or "" if none was supplied
func Reason(err error) string {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Reason
	}
	return ""
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Options configure a provider
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// New returns the client for the named provider
func New(ctx context.Context, provider string, opts Options) (Client, error) {
	switch provider {
	case "", ProviderGemini:
		return NewGemini(ctx, opts)
	case ProviderOpenAI:
		return NewOpenAI(opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

const msgBlocked = "The request was blocked by the content safety filter. Try a different outfit description or image."

// BuildPrompt builds the try-on instruction sent alongside the source image
func BuildPrompt(description string, allowSensitive bool) string {
	var b strings.Builder
	b.WriteString("You are a virtual fitting room. Edit the provided photo so the same person is wearing the outfit described below.\n\n")
	b.WriteString("RULES:\n")
	b.WriteString("1. Keep the person's face, identity, hairstyle, skin tone, body shape and pose exactly as in the photo.\n")
	b.WriteString("2. Keep the background, lighting and camera framing unchanged.\n")
	b.WriteString("3. Change only the clothing. Make fabrics, folds and fit look photorealistic.\n")
	if allowSensitive {
		b.WriteString("4. The user has allowed mature outfits such as swimwear or lingerie. Keep the result tasteful and non-explicit.\n")
	} else {
		b.WriteString("4. The result must be safe for work. If the outfit would reveal intimate areas, choose a modest version of it.\n")
	}
	b.WriteString("5. Return a single edited image.\n\n")
	b.WriteString("OUTFIT: ")
	b.WriteString(strings.TrimSpace(description))
	return b.String()
}
