package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/styleshift/internal/models"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.5-flash-image"

// Gemini is a provider for Google Gemini image editing
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini returns a new Gemini provider
func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.BaseURL))
	}

	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: client, model: model}, nil
}

// Close releases the underlying client
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Generate sends the source image and try-on prompt to Gemini and returns the first image part
func (g *Gemini) Generate(ctx context.Context, req Request) (models.Image, error) {
	model := g.client.GenerativeModel(g.model)
	model.SafetySettings = safetySettings(req.AllowSensitive)

	format := strings.TrimPrefix(req.Source.MIMEType, "image/")
	resp, err := model.GenerateContent(ctx,
		genai.ImageData(format, req.Source.Data),
		genai.Text(BuildPrompt(req.Description, req.AllowSensitive)),
	)
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return models.Image{}, &Error{Reason: msgBlocked, Err: err}
		}
		return models.Image{}, &Error{Err: fmt.Errorf("failed to generate content: %w", err)}
	}

	img, err := imageFromResponse(resp)
	if err != nil {
		return models.Image{}, err
	}
	slog.Info("Generated try-on image", "provider", ProviderGemini, "model", g.model, "bytes", len(img.Data))
	return img, nil
}

func safetySettings(allowSensitive bool) []*genai.SafetySetting {
	if allowSensitive {
		return []*genai.SafetySetting{
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
		}
	}
	return []*genai.SafetySetting{
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockLowAndAbove},
	}
}

// imageFromResponse picks the first inline image of the first candidate
func imageFromResponse(resp *genai.GenerateContentResponse) (models.Image, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			return models.Image{}, &Error{Reason: msgBlocked}
		}
		return models.Image{}, &Error{Err: fmt.Errorf("no candidates returned from Gemini")}
	}

	candidate := resp.Candidates[0]
	var text []string
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			switch p := part.(type) {
			case genai.Blob:
				if strings.HasPrefix(p.MIMEType, "image/") && len(p.Data) > 0 {
					return models.Image{Data: p.Data, MIMEType: p.MIMEType}, nil
				}
			case genai.Text:
				if s := strings.TrimSpace(string(p)); s != "" {
					text = append(text, s)
				}
			}
		}
	}

	if candidate.FinishReason == genai.FinishReasonSafety {
		return models.Image{}, &Error{Reason: msgBlocked}
	}
	// The model declined and explained itself in text
	if len(text) > 0 {
		return models.Image{}, &Error{Reason: strings.Join(text, " ")}
	}
	return models.Image{}, &Error{Err: fmt.Errorf("no image returned from Gemini (finish reason %s)", candidate.FinishReason)}
}
