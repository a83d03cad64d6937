package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/lehigh-university-libraries/styleshift/internal/generation"
	"github.com/lehigh-university-libraries/styleshift/internal/models"
)

type fakeDetector struct {
	labels []Label
	err    error
	calls  int
}

func (f *fakeDetector) DetectModerationLabels(ctx context.Context, imageBytes []byte) ([]Label, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.labels, nil
}

func TestServiceModerate(t *testing.T) {
	tests := []struct {
		name         string
		labels       []Label
		err          error
		threshold    float64
		wantApproved bool
		wantMax      float64
	}{
		{name: "approved when no labels", threshold: 70, wantApproved: true},
		{name: "approved below threshold", labels: []Label{{Name: "Suggestive", Confidence: 42.1}}, threshold: 70, wantApproved: true, wantMax: 42.1},
		{
			name:      "rejected when any label meets threshold",
			labels:    []Label{{Name: "Explicit Nudity", Confidence: 82.3}, {Name: "Violence", Confidence: 50}},
			threshold: 70,
			wantMax:   82.3,
		},
		{name: "default threshold", labels: []Label{{Name: "Suggestive", Confidence: 70}}, threshold: 0, wantMax: 70},
		{name: "detector error", err: errors.New("boom"), threshold: 70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&fakeDetector{labels: tt.labels, err: tt.err}, tt.threshold)
			decision, err := svc.Moderate(context.Background(), []byte("abc"))
			if tt.err != nil {
				if err == nil {
					t.Fatal("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if decision.Approved != tt.wantApproved {
				t.Errorf("Expected approved=%v, got %v", tt.wantApproved, decision.Approved)
			}
			if decision.MaxConfidence != tt.wantMax {
				t.Errorf("Expected max %v, got %v", tt.wantMax, decision.MaxConfidence)
			}
		})
	}
}

func TestGuard(t *testing.T) {
	generated := models.Image{Data: []byte("img"), MIMEType: "image/png"}
	explicit := []Label{{Name: "Explicit Nudity", Confidence: 99}}

	tests := []struct {
		name       string
		allow      bool
		labels     []Label
		detectErr  error
		genErr     error
		wantReason string
		wantErr    bool
		wantCalls  int
	}{
		{name: "approved passes through", wantCalls: 1},
		{name: "rejected becomes generation error", labels: explicit, wantErr: true, wantReason: msgRejected, wantCalls: 1},
		{name: "sensitive allowed skips moderation", allow: true, labels: explicit, wantCalls: 0},
		{name: "detector failure", detectErr: errors.New("throttled"), wantErr: true, wantReason: msgFailed, wantCalls: 1},
		{name: "generation failure skips moderation", genErr: &generation.Error{Reason: "upstream"}, wantErr: true, wantReason: "upstream", wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detector := &fakeDetector{labels: tt.labels, err: tt.detectErr}
			next := generation.ClientFunc(func(ctx context.Context, req generation.Request) (models.Image, error) {
				if tt.genErr != nil {
					return models.Image{}, tt.genErr
				}
				return generated, nil
			})
			guard := NewGuard(next, NewService(detector, 70))

			img, err := guard.Generate(context.Background(), generation.Request{AllowSensitive: tt.allow})
			if detector.calls != tt.wantCalls {
				t.Errorf("Expected %d detector calls, got %d", tt.wantCalls, detector.calls)
			}
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				if got := generation.Reason(err); got != tt.wantReason {
					t.Errorf("Expected reason %q, got %q", tt.wantReason, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if string(img.Data) != "img" {
				t.Errorf("Expected generated image to pass through")
			}
		})
	}
}
