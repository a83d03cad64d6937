package moderation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/styleshift/internal/generation"
	"github.com/lehigh-university-libraries/styleshift/internal/models"
)

// DefaultRejectConfidence is the label confidence at which an image is rejected
const DefaultRejectConfidence = 70

const (
	msgRejected = "The generated image was blocked by the content filter. Try a different outfit or enable sensitive content."
	msgFailed   = "The generated image could not be checked by the content filter. Please try again."
)

// Label is a moderation label reported by a detector
type Label struct {
	Name       string  `json:"name"`
	ParentName string  `json:"parent_name,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Decision is the verdict for one image
type Decision struct {
	Approved      bool    `json:"approved"`
	MaxConfidence float64 `json:"max_confidence"`
	Labels        []Label `json:"labels,omitempty"`
}

// Detector fetches moderation labels for raw image bytes
type Detector interface {
	DetectModerationLabels(ctx context.Context, imageBytes []byte) ([]Label, error)
}

// Service turns detector labels into approve/reject decisions
type Service struct {
	detector         Detector
	rejectConfidence float64
}

// NewService creates a moderation service using the given detector
func NewService(detector Detector, rejectConfidence float64) *Service {
	if rejectConfidence <= 0 {
		rejectConfidence = DefaultRejectConfidence
	}
	return &Service{detector: detector, rejectConfidence: rejectConfidence}
}

// Moderate rejects the image when any label reaches the confidence threshold
func (s *Service) Moderate(ctx context.Context, imageBytes []byte) (*Decision, error) {
	labels, err := s.detector.DetectModerationLabels(ctx, imageBytes)
	if err != nil {
		return nil, err
	}

	decision := &Decision{Approved: true, Labels: labels}
	for _, label := range labels {
		if label.Confidence > decision.MaxConfidence {
			decision.MaxConfidence = label.Confidence
		}
		if label.Confidence >= s.rejectConfidence {
			decision.Approved = false
		}
	}
	return decision, nil
}

// Guard checks generated images unless the request allows sensitive content
type Guard struct {
	next    generation.Client
	service *Service
}

// NewGuard wraps next with a moderation check
func NewGuard(next generation.Client, service *Service) *Guard {
	return &Guard{next: next, service: service}
}

func (g *Guard) Generate(ctx context.Context, req generation.Request) (models.Image, error) {
	img, err := g.next.Generate(ctx, req)
	if err != nil || req.AllowSensitive {
		return img, err
	}

	decision, err := g.service.Moderate(ctx, img.Data)
	if err != nil {
		return models.Image{}, &generation.Error{Reason: msgFailed, Err: fmt.Errorf("moderation failed: %w", err)}
	}
	if !decision.Approved {
		slog.Info("Generated image rejected by moderation", "max_confidence", decision.MaxConfidence, "labels", len(decision.Labels))
		return models.Image{}, &generation.Error{Reason: msgRejected}
	}
	return img, nil
}
