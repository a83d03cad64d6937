package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/styleshift/internal/intake"
	"github.com/lehigh-university-libraries/styleshift/internal/models"
	"github.com/lehigh-university-libraries/styleshift/internal/session"
)

// multipart overhead allowed on top of the file limit
const formOverhead = 1 << 20

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	m, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, intake.MaxFileSize+formOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			m.RejectUpload(intake.ErrFileTooLarge)
			h.writeIntakeError(w, intake.ErrFileTooLarge)
			return
		}
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	if err := m.Upload(header.Filename, header.Header.Get("Content-Type"), header.Size, file); err != nil {
		if errors.Is(err, session.ErrWrongView) {
			h.writeError(w, "Uploads are only accepted before an image is chosen. Reset the session first.", http.StatusConflict)
			return
		}
		h.writeIntakeError(w, err)
		return
	}
	h.writeJSON(w, m.Snapshot())
}

// HandleFrame accepts a frame captured in the browser, either as a multipart
// file or as a JSON data URL.
func (h *Handler) HandleFrame(w http.ResponseWriter, r *http.Request) {
	m, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	img, err := h.readFrame(w, r)
	if err != nil {
		return
	}
	m.AcceptFrame(img)
	h.writeJSON(w, m.Snapshot())
}

func (h *Handler) readFrame(w http.ResponseWriter, r *http.Request) (models.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*intake.MaxFileSize+formOverhead)

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var request struct {
			DataURL string `json:"data_url"`
		}
		if !h.decodeJSON(w, r, &request) {
			return models.Image{}, errors.New("invalid json")
		}
		frame, err := models.ParseDataURL(request.DataURL)
		if err != nil {
			h.writeError(w, "Invalid frame: "+err.Error(), http.StatusBadRequest)
			return models.Image{}, err
		}
		img, err := intake.Read(bytes.NewReader(frame.Data), int64(len(frame.Data)), frame.MIMEType)
		if err != nil {
			h.writeIntakeError(w, err)
			return models.Image{}, err
		}
		return img, nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read frame: "+err.Error(), http.StatusBadRequest)
		return models.Image{}, err
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	img, err := intake.Read(file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		h.writeIntakeError(w, err)
		return models.Image{}, err
	}
	return img, nil
}

func (h *Handler) writeIntakeError(w http.ResponseWriter, err error) {
	code := http.StatusBadRequest
	switch {
	case errors.Is(err, intake.ErrFileTooLarge):
		code = http.StatusRequestEntityTooLarge
	case errors.Is(err, intake.ErrUnsupportedType):
		code = http.StatusUnsupportedMediaType
	}
	h.writeError(w, intake.Message(err), code)
}
