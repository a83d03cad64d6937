// Package config reads StyleShift settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/styleshift/internal/generation"
)

// Camera device kinds
const (
	CameraNone   = "none"
	CameraChrome = "chrome"
	CameraStill  = "still"
)

const (
	DefaultGenerationTimeout = 90 * time.Second
	DefaultSessionIdleTTL    = time.Hour
	DefaultRejectConfidence  = 70
	DefaultGenerateRateLimit = 10
)

type Config struct {
	Provider string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	GenerationTimeout time.Duration
	SessionIdleTTL    time.Duration

	CameraDevice    string
	CameraStillPath string
	ChromePath      string
	CameraFakeVideo string

	ModerationEnabled bool
	AWSRegion         string
	RejectConfidence  float64

	// GenerateRateLimit is the number of generate calls allowed per client IP per minute.
	GenerateRateLimit int
}

// Load reads the configuration from the environment, applying defaults
func Load() (Config, error) {
	cfg := Config{
		Provider:        strings.ToLower(getenv("STYLESHIFT_PROVIDER", generation.ProviderGemini)),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getenv("GEMINI_MODEL", generation.DefaultGeminiModel),
		GeminiBaseURL:   os.Getenv("GEMINI_BASE_URL"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     getenv("OPENAI_MODEL", generation.DefaultOpenAIModel),
		OpenAIBaseURL:   getenv("OPENAI_BASE_URL", generation.DefaultOpenAIBaseURL),
		CameraDevice:    strings.ToLower(getenv("CAMERA_DEVICE", CameraNone)),
		CameraStillPath: os.Getenv("CAMERA_STILL_PATH"),
		ChromePath:      os.Getenv("CHROME_PATH"),
		CameraFakeVideo: os.Getenv("CAMERA_FAKE_VIDEO"),
		AWSRegion:       os.Getenv("AWS_REGION"),
	}

	var err error
	if cfg.GenerationTimeout, err = durationEnv("GENERATION_TIMEOUT", DefaultGenerationTimeout); err != nil {
		return Config{}, err
	}
	if cfg.SessionIdleTTL, err = durationEnv("SESSION_IDLE_TTL", DefaultSessionIdleTTL); err != nil {
		return Config{}, err
	}
	if cfg.ModerationEnabled, err = boolEnv("MODERATION_ENABLED", false); err != nil {
		return Config{}, err
	}
	if cfg.RejectConfidence, err = floatEnv("MODERATION_REJECT_CONFIDENCE", DefaultRejectConfidence); err != nil {
		return Config{}, err
	}
	if cfg.GenerateRateLimit, err = intEnv("GENERATE_RATE_LIMIT", DefaultGenerateRateLimit); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that have a fixed set of options
func (c Config) Validate() error {
	switch c.Provider {
	case generation.ProviderGemini, generation.ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported STYLESHIFT_PROVIDER %q (use %s or %s)", c.Provider, generation.ProviderGemini, generation.ProviderOpenAI)
	}

	switch c.CameraDevice {
	case CameraNone, CameraChrome:
	case CameraStill:
		if c.CameraStillPath == "" {
			return fmt.Errorf("CAMERA_STILL_PATH is required when CAMERA_DEVICE=%s", CameraStill)
		}
	default:
		return fmt.Errorf("unsupported CAMERA_DEVICE %q (use none, chrome or still)", c.CameraDevice)
	}

	if c.RejectConfidence <= 0 || c.RejectConfidence > 100 {
		return fmt.Errorf("MODERATION_REJECT_CONFIDENCE must be between 0 and 100, got %v", c.RejectConfidence)
	}
	if c.GenerateRateLimit < 0 {
		return fmt.Errorf("GENERATE_RATE_LIMIT must not be negative, got %d", c.GenerateRateLimit)
	}
	return nil
}

// GenerationOptions returns the client options for the configured provider
func (c Config) GenerationOptions() generation.Options {
	if c.Provider == generation.ProviderOpenAI {
		return generation.Options{APIKey: c.OpenAIAPIKey, Model: c.OpenAIModel, BaseURL: c.OpenAIBaseURL}
	}
	return generation.Options{APIKey: c.GeminiAPIKey, Model: c.GeminiModel, BaseURL: c.GeminiBaseURL}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return i, nil
}
