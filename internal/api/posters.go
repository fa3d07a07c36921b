package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	posterFieldName = "poster"
	// maxPosterBytes caps poster uploads at 5 MiB.
	maxPosterBytes = 5 << 20
)

var (
	errPosterNotImage = errors.New("Only image files are allowed")
	errPosterTooLarge = errors.New("Poster must not exceed 5 MiB")
)

// savedPoster describes a poster file already persisted under the upload
// directory.
type savedPoster struct {
	// storedPath is the public-facing relative path recorded on the movie,
	// always of the form uploads/<name>.
	storedPath   string
	storedName   string
	originalName string
	contentType  string
	size         int64
}

// movieForm is the decoded body of a create or update request. Set flags
// distinguish "field absent" from "field present but empty" so partial
// updates keep their semantics.
type movieForm struct {
	title     string
	titleSet  bool
	year      string
	yearSet   bool
	poster    *savedPoster
	posterErr error
}

type movieJSONRequest struct {
	Title          *string `json:"title"`
	PublishingYear *int    `json:"publishingYear"`
}

// parseMovieForm reads either a multipart or a JSON body into a movieForm.
// Poster validation failures (wrong type, oversize) are recorded on the form
// rather than aborting, so they surface as field errors with everything else.
func (h *Handler) parseMovieForm(r *http.Request) (movieForm, error) {
	contentType := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	if strings.HasPrefix(contentType, "multipart/form-data") {
		return h.parseMultipartMovieForm(r)
	}

	var req movieJSONRequest
	if err := decodeJSON(r, &req); err != nil {
		return movieForm{}, fmt.Errorf("decode request body: %w", err)
	}
	form := movieForm{}
	if req.Title != nil {
		form.title = *req.Title
		form.titleSet = true
	}
	if req.PublishingYear != nil {
		form.year = strconv.Itoa(*req.PublishingYear)
		form.yearSet = true
	}
	return form, nil
}

func (h *Handler) parseMultipartMovieForm(r *http.Request) (movieForm, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return movieForm{}, fmt.Errorf("invalid multipart payload: %w", err)
	}
	form := movieForm{}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return movieForm{}, fmt.Errorf("read multipart data: %w", err)
		}
		name := part.FormName()
		if name == "" {
			_ = part.Close()
			continue
		}
		if name == posterFieldName && part.FileName() != "" {
			if form.poster != nil || form.posterErr != nil {
				// only one file per request; extra parts are ignored
				_ = part.Close()
				continue
			}
			saved, saveErr := h.savePosterFile(part)
			if saveErr != nil {
				if errors.Is(saveErr, errPosterNotImage) || errors.Is(saveErr, errPosterTooLarge) {
					form.posterErr = saveErr
					continue
				}
				return movieForm{}, saveErr
			}
			form.poster = saved
			continue
		}
		payload, readErr := io.ReadAll(part)
		_ = part.Close()
		if readErr != nil {
			return movieForm{}, fmt.Errorf("read form field: %w", readErr)
		}
		value := strings.TrimSpace(string(payload))
		switch name {
		case "title":
			form.title = value
			form.titleSet = true
		case "publishingYear":
			form.year = value
			form.yearSet = true
		}
	}
	return form, nil
}

// savePosterFile streams a multipart file part into the upload directory,
// enforcing the image content-type and size limits before the file is kept.
func (h *Handler) savePosterFile(part *multipart.Part) (*savedPoster, error) {
	defer part.Close()

	contentType := strings.TrimSpace(part.Header.Get("Content-Type"))
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, errPosterTypeError(contentType)
	}

	dir := h.posterDir()
	tmp, err := os.CreateTemp(dir, "pending-poster-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()

	written, err := io.Copy(tmp, io.LimitReader(part, maxPosterBytes+1))
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("save poster: %w", err)
	}
	if written > maxPosterBytes {
		_ = os.Remove(tmp.Name())
		return nil, errPosterTooLarge
	}

	storedName := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), sanitizePosterName(part.FileName()))
	finalPath := filepath.Join(dir, storedName)
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("store poster: %w", err)
	}

	return &savedPoster{
		storedPath:   path.Join("uploads", storedName),
		storedName:   storedName,
		originalName: part.FileName(),
		contentType:  contentType,
		size:         written,
	}, nil
}

func errPosterTypeError(contentType string) error {
	if contentType == "" {
		return errPosterNotImage
	}
	return fmt.Errorf("%w (got %s)", errPosterNotImage, contentType)
}

// removePoster deletes a stored poster file, used to clean up after a failed
// create or update.
func (h *Handler) removePoster(poster *savedPoster) {
	if poster == nil || poster.storedName == "" {
		return
	}
	_ = os.Remove(filepath.Join(h.posterDir(), filepath.Base(poster.storedName)))
}

func sanitizePosterName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = strings.ReplaceAll(base, " ", "_")
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "poster"
	}
	return base
}
