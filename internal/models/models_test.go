package models

import (
	"bytes"
	"testing"
)

func TestParseDataURL(t *testing.T) {
	img := Image{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"}

	parsed, err := ParseDataURL(img.DataURL())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if parsed.MIMEType != "image/png" {
		t.Errorf("Expected MIME type image/png, got %s", parsed.MIMEType)
	}
	if !bytes.Equal(parsed.Data, img.Data) {
		t.Errorf("Expected data %v, got %v", img.Data, parsed.Data)
	}
}

func TestParseDataURLErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "missing prefix", input: "image/png;base64,AAAA"},
		{name: "missing comma", input: "data:image/png;base64"},
		{name: "not base64", input: "data:text/plain,hello"},
		{name: "bad payload", input: "data:image/png;base64,!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDataURL(tt.input); err == nil {
				t.Errorf("Expected error for %q", tt.input)
			}
		})
	}
}

func TestFacingModeToggle(t *testing.T) {
	if FacingUser.Toggle() != FacingEnvironment {
		t.Errorf("Expected user to toggle to environment")
	}
	if FacingEnvironment.Toggle() != FacingUser {
		t.Errorf("Expected environment to toggle to user")
	}
}

func TestImageExtension(t *testing.T) {
	tests := map[string]string{
		"image/jpeg": ".jpg",
		"image/webp": ".webp",
		"image/png":  ".png",
		"":           ".png",
	}
	for mimeType, want := range tests {
		if got := (Image{MIMEType: mimeType}).Extension(); got != want {
			t.Errorf("Expected %s for %q, got %s", want, mimeType, got)
		}
	}
}
