package handlers

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/lehigh-university-libraries/styleshift/internal/models"
	_ "golang.org/x/image/webp"
)

func (h *Handler) HandleSourceImage(w http.ResponseWriter, r *http.Request) {
	m, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	img, ok := m.Source()
	if !ok {
		h.writeError(w, "No source image", http.StatusNotFound)
		return
	}
	h.writeImage(w, img)
}

func (h *Handler) HandleResultImage(w http.ResponseWriter, r *http.Request) {
	m, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	img, ok := m.Result()
	if !ok {
		h.writeError(w, "No result image", http.StatusNotFound)
		return
	}
	h.writeImage(w, img)
}

// HandleDownload serves the result as a PNG attachment
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	m, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	img, ok := m.Result()
	if !ok {
		h.writeError(w, "No result image", http.StatusNotFound)
		return
	}

	data, err := ToPNG(img)
	if err != nil {
		h.writeError(w, "Failed to convert result: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, DownloadFilename(time.Now())))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		slog.Error("Unable to write download", "err", err)
	}
}

func (h *Handler) writeImage(w http.ResponseWriter, img models.Image) {
	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(img.Data); err != nil {
		slog.Error("Unable to write image", "err", err)
	}
}

// DownloadFilename names a downloaded result after the time it was saved
func DownloadFilename(now time.Time) string {
	return fmt.Sprintf("styleshift-%d.png", now.UnixMilli())
}

// ToPNG returns the image encoded as PNG, transcoding when needed
func ToPNG(img models.Image) ([]byte, error) {
	if img.MIMEType == "image/png" {
		return img.Data, nil
	}

	decoded, err := imaging.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s image: %w", img.MIMEType, err)
	}
	return encodePNG(decoded)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
