package generation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/styleshift/internal/models"
)

const (
	DefaultOpenAIModel   = "gpt-image-1"
	DefaultOpenAIBaseURL = "https://api.openai.com"
)

// OpenAI is a provider for the OpenAI image edit endpoint
type OpenAI struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAI returns a new OpenAI provider
func NewOpenAI(opts Options) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	o := &OpenAI{
		apiKey:     opts.APIKey,
		model:      opts.Model,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
	}
	if o.model == "" {
		o.model = DefaultOpenAIModel
	}
	if o.baseURL == "" {
		o.baseURL = DefaultOpenAIBaseURL
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return o, nil
}

// Generate uploads the source image to /v1/images/edits and decodes the returned image
func (o *OpenAI) Generate(ctx context.Context, req Request) (models.Image, error) {
	body, contentType, err := o.buildForm(req)
	if err != nil {
		return models.Image{}, &Error{Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/v1/images/edits", body)
	if err != nil {
		return models.Image{}, &Error{Err: fmt.Errorf("failed to create new request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return models.Image{}, &Error{Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	var response struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
		Error *struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &response) == nil && response.Error != nil && response.Error.Message != "" {
			return models.Image{}, &Error{
				Reason: response.Error.Message,
				Err:    fmt.Errorf("received non-200 status code: %d", resp.StatusCode),
			}
		}
		return models.Image{}, &Error{Err: fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(raw))}
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return models.Image{}, &Error{Err: fmt.Errorf("failed to decode response body: %w", err)}
	}
	if len(response.Data) == 0 || response.Data[0].B64JSON == "" {
		return models.Image{}, &Error{Err: fmt.Errorf("no image returned from OpenAI")}
	}

	data, err := base64.StdEncoding.DecodeString(response.Data[0].B64JSON)
	if err != nil {
		return models.Image{}, &Error{Err: fmt.Errorf("failed to decode image data: %w", err)}
	}

	slog.Info("Generated try-on image", "provider", ProviderOpenAI, "model", o.model, "bytes", len(data))
	return models.Image{Data: data, MIMEType: "image/png"}, nil
}

func (o *OpenAI) buildForm(req Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("model", o.model); err != nil {
		return nil, "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := w.WriteField("prompt", BuildPrompt(req.Description, req.AllowSensitive)); err != nil {
		return nil, "", fmt.Errorf("failed to write prompt field: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="source`+req.Source.Extension()+`"`)
	header.Set("Content-Type", req.Source.MIMEType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(req.Source.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write image part: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
