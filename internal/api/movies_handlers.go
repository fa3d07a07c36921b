package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"cinevault/internal/models"
	"cinevault/internal/storage"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	// minPublishingYear is the oldest year the catalog accepts.
	minPublishingYear = 1900
)

type movieResponse struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	PublishingYear int     `json:"publishingYear"`
	Poster         *string `json:"poster"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

type listMoviesResponse struct {
	Page        int             `json:"page"`
	Limit       int             `json:"limit"`
	TotalPages  int             `json:"totalPages"`
	TotalMovies int             `json:"totalMovies"`
	Movies      []movieResponse `json:"movies"`
}

func newMovieResponse(movie models.Movie) movieResponse {
	return movieResponse{
		ID:             movie.ID,
		Title:          movie.Title,
		PublishingYear: movie.PublishingYear,
		Poster:         movie.Poster,
		CreatedAt:      movie.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:      movie.UpdatedAt.Format(time.RFC3339Nano),
	}
}

// Movies serves the collection routes: paginated listing and creation.
func (h *Handler) Movies(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listMovies(w, r)
	case http.MethodPost:
		h.createMovie(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeMessage(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

func (h *Handler) listMovies(w http.ResponseWriter, r *http.Request) {
	page := positiveQueryInt(r, "page", defaultPage)
	limit := positiveQueryInt(r, "limit", defaultLimit)
	offset := (page - 1) * limit

	movies, err := h.Store.ListMovies(r.Context(), offset, limit)
	if err != nil {
		h.logger().Error("list movies failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, err)
		return
	}
	total, err := h.Store.CountMovies(r.Context())
	if err != nil {
		h.logger().Error("count movies failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, err)
		return
	}

	response := listMoviesResponse{
		Page:        page,
		Limit:       limit,
		TotalPages:  (total + limit - 1) / limit,
		TotalMovies: total,
		Movies:      make([]movieResponse, 0, len(movies)),
	}
	for _, movie := range movies {
		response.Movies = append(response.Movies, newMovieResponse(movie))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) createMovie(w http.ResponseWriter, r *http.Request) {
	form, err := h.parseMovieForm(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, errors.New("invalid request payload"))
		return
	}

	var errs []fieldError
	if strings.TrimSpace(form.title) == "" {
		errs = append(errs, fieldError{Field: "title", Message: "Title is required and should be a string"})
	}
	year, yearErr := parsePublishingYear(form.year)
	if yearErr != nil {
		errs = append(errs, fieldError{Field: "publishingYear", Message: "Publishing year must be a valid year"})
	}
	switch {
	case form.posterErr != nil:
		errs = append(errs, fieldError{Field: "poster", Message: form.posterErr.Error()})
	case form.poster == nil:
		// a poster file is mandatory at creation, optional on update
		errs = append(errs, fieldError{Field: "poster", Message: "Poster is required"})
	}
	if len(errs) > 0 {
		h.removePoster(form.poster)
		writeValidationErrors(w, errs)
		return
	}

	posterPath := form.poster.storedPath
	movie, err := h.Store.CreateMovie(r.Context(), storage.CreateMovieParams{
		Title:          form.title,
		PublishingYear: year,
		Poster:         &posterPath,
	})
	if err != nil {
		h.removePoster(form.poster)
		h.logger().Error("create movie failed", "error", err)
		writeMessage(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, newMovieResponse(movie))
}

// MovieByID serves the per-record routes; only partial updates are exposed.
func (h *Handler) MovieByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		w.Header().Set("Allow", "PATCH")
		writeMessage(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/movies/")
	if uuid.Validate(id) != nil {
		writeValidationErrors(w, []fieldError{{Field: "id", Message: "Invalid movie ID"}})
		return
	}

	form, err := h.parseMovieForm(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, errors.New("invalid request payload"))
		return
	}

	var errs []fieldError
	update := storage.MovieUpdate{}
	if form.titleSet {
		if strings.TrimSpace(form.title) == "" {
			errs = append(errs, fieldError{Field: "title", Message: "Title should be a string"})
		} else {
			title := form.title
			update.Title = &title
		}
	}
	if form.yearSet {
		year, yearErr := parsePublishingYear(form.year)
		if yearErr != nil {
			errs = append(errs, fieldError{Field: "publishingYear", Message: "Publishing year must be a valid year"})
		} else {
			update.PublishingYear = &year
		}
	}
	if form.posterErr != nil {
		errs = append(errs, fieldError{Field: "poster", Message: form.posterErr.Error()})
	}
	if len(errs) > 0 {
		h.removePoster(form.poster)
		writeValidationErrors(w, errs)
		return
	}
	if form.poster != nil {
		poster := form.poster.storedPath
		update.Poster = &poster
	}

	movie, err := h.Store.UpdateMovie(r.Context(), id, update)
	if err != nil {
		h.removePoster(form.poster)
		if errors.Is(err, storage.ErrMovieNotFound) {
			writeMessage(w, http.StatusNotFound, errors.New("Movie not found"))
			return
		}
		h.logger().Error("update movie failed", "movie_id", id, "error", err)
		writeMessage(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, newMovieResponse(movie))
}

// positiveQueryInt parses a positive integer query parameter, falling back to
// the default on missing, non-numeric, or non-positive values.
func positiveQueryInt(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

func parsePublishingYear(raw string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse publishing year: %w", err)
	}
	if year < minPublishingYear {
		return 0, fmt.Errorf("publishing year %d before %d", year, minPublishingYear)
	}
	return year, nil
}
