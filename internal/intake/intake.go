package intake

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/styleshift/internal/models"
)

// MaxFileSize is the largest accepted upload (5 MiB)
const MaxFileSize = 5 * 1024 * 1024

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported image type")
)

const (
	msgFileTooLarge    = "File size too large. Please choose an image under 5MB."
	msgUnsupportedType = "Unsupported file type. Please choose a PNG, JPEG or WebP image."
)

var acceptedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// Accepted reports whether mimeType is an accepted image type
func Accepted(mimeType string) bool {
	return acceptedTypes[normalizeType(mimeType)]
}

// Read validates the declared size and type, then reads the whole file into
// memory. Oversized files are rejected before any byte is read.
func Read(r io.Reader, size int64, mimeType string) (models.Image, error) {
	if size > MaxFileSize {
		return models.Image{}, ErrFileTooLarge
	}

	mimeType = normalizeType(mimeType)
	if mimeType != "" && !acceptedTypes[mimeType] {
		return models.Image{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to read file contents: %w", err)
	}
	if len(data) > MaxFileSize {
		return models.Image{}, ErrFileTooLarge
	}

	if mimeType == "" {
		mimeType = normalizeType(http.DetectContentType(data))
		if !acceptedTypes[mimeType] {
			return models.Image{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
		}
	}

	return models.Image{Data: data, MIMEType: mimeType}, nil
}

// Message maps an intake error to the text shown to the user
func Message(err error) string {
	switch {
	case errors.Is(err, ErrFileTooLarge):
		return msgFileTooLarge
	case errors.Is(err, ErrUnsupportedType):
		return msgUnsupportedType
	case err != nil:
		return "Failed to read file. Please try another image."
	default:
		return ""
	}
}

func normalizeType(mimeType string) string {
	mimeType, _, _ = strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(mimeType))
}
