package camera

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/lehigh-university-libraries/styleshift/internal/models"
)

func TestMediaConstraints(t *testing.T) {
	steps := Cascade(models.FacingUser)

	tests := []struct {
		name  string
		c     Constraints
		check func(t *testing.T, video any)
	}{
		{
			name: "ideal resolution",
			c:    steps[0],
			check: func(t *testing.T, video any) {
				v, ok := video.(map[string]any)
				if !ok {
					t.Fatalf("Expected video object, got %T", video)
				}
				if v["facingMode"] != "user" {
					t.Errorf("Expected facingMode user, got %v", v["facingMode"])
				}
				width, _ := v["width"].(map[string]any)
				if width["ideal"] != float64(1280) {
					t.Errorf("Expected ideal width 1280, got %v", width["ideal"])
				}
			},
		},
		{
			name: "facing only",
			c:    steps[1],
			check: func(t *testing.T, video any) {
				v := video.(map[string]any)
				if _, ok := v["width"]; ok {
					t.Errorf("Expected no width constraint")
				}
			},
		},
		{
			name: "any device",
			c:    steps[2],
			check: func(t *testing.T, video any) {
				if video != true {
					t.Errorf("Expected video: true, got %v", video)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := mediaConstraints(tt.c)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			var parsed map[string]any
			if err := json.Unmarshal([]byte(out), &parsed); err != nil {
				t.Fatalf("Invalid JSON %s: %v", out, err)
			}
			if parsed["audio"] != false {
				t.Errorf("Expected audio disabled")
			}
			tt.check(t, parsed["video"])
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want error
	}{
		{name: "NotAllowedError", want: ErrPermissionDenied},
		{name: "SecurityError", want: ErrPermissionDenied},
		{name: "NotFoundError", want: ErrNoDevice},
		{name: "OverconstrainedError", want: ErrConstraints},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := classify(tt.name, "msg"); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	err := classify("AbortError", "device in use")
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected AbortError to be a transient error, got %v", err)
	}
	if Message(err) != "The camera could not be started. Please retry." {
		t.Errorf("Unexpected message for transient error: %s", Message(err))
	}
}
