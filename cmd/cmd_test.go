package cmd

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/styleshift/internal/catalog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Expected error for %q", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Expected %v for %q, got %v (%v)", tt.want, tt.in, got, err)
		}
	}
}

func TestCatalogCmd(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"catalog", "--json"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var entries []catalog.Entry
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatalf("Expected JSON output: %v", err)
	}
	if len(entries) != len(catalog.All()) {
		t.Errorf("Expected %d entries, got %d", len(catalog.All()), len(entries))
	}

	out.Reset()
	root = NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"catalog"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "ID") || !strings.Contains(out.String(), "business") {
		t.Errorf("Unexpected table output:\n%s", out.String())
	}
}

func TestTryOnRequiresOutfit(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"tryon", "--image", "me.jpg"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "--outfit") {
		t.Errorf("Expected missing outfit error, got %v", err)
	}
}

func TestCaptureRejectsUnknownFacing(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"capture", "--facing", "sideways"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "facing") {
		t.Errorf("Expected facing mode error, got %v", err)
	}
}
