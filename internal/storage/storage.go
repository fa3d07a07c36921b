// Package storage persists users and catalog entries. The JSON-file driver in
// this file keeps the full dataset in memory behind a mutex and rewrites the
// backing file after every mutation, which is plenty for development and small
// deployments. The Postgres driver lives in postgres.go.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cinevault/internal/models"
)

type dataset struct {
	Users  map[string]models.User  `json:"users"`
	Movies map[string]models.Movie `json:"movies"`
}

// Storage is the JSON-file backed Repository implementation.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

func newDataset() dataset {
	return dataset{
		Users:  make(map[string]models.User),
		Movies: make(map[string]models.Movie),
	}
}

// NewStorage opens (or creates) the JSON datastore at path.
func NewStorage(path string) (*Storage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("datastore path is required")
	}
	s := &Storage{filePath: path, data: newDataset()}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Storage) load() error {
	payload, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read datastore: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	var data dataset
	if err := json.Unmarshal(payload, &data); err != nil {
		return fmt.Errorf("decode datastore: %w", err)
	}
	if data.Users == nil {
		data.Users = make(map[string]models.User)
	}
	if data.Movies == nil {
		data.Movies = make(map[string]models.Movie)
	}
	s.data = data
	return nil
}

func (s *Storage) persist() error {
	if s.persistOverride != nil {
		return s.persistOverride(s.data)
	}
	payload, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode datastore: %w", err)
	}
	if dir := filepath.Dir(s.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create datastore directory: %w", err)
		}
	}
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write datastore: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		return fmt.Errorf("replace datastore: %w", err)
	}
	return nil
}

// Ping reports whether the backing file's directory is still reachable.
func (s *Storage) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := os.Stat(filepath.Dir(s.filePath))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("datastore unavailable: %w", err)
	}
	return nil
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" {
		return models.User{}, errors.New("username is required")
	}
	passwordHash, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.data.Users {
		if user.Username == username {
			return models.User{}, ErrUserExists
		}
	}

	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.data.Users[user.ID] = user
	if err := s.persist(); err != nil {
		delete(s.data.Users, user.ID)
		return models.User{}, err
	}
	return user, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (models.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.data.Users {
		if user.Username == username {
			return user, true, nil
		}
	}
	return models.User{}, false, nil
}

func (s *Storage) AuthenticateUser(ctx context.Context, username, password string) (models.User, error) {
	user, ok, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	if err := verifyPassword(user.PasswordHash, password); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Movie operations

func (s *Storage) CreateMovie(ctx context.Context, params CreateMovieParams) (models.Movie, error) {
	if strings.TrimSpace(params.Title) == "" {
		return models.Movie{}, errors.New("title is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	movie := models.Movie{
		ID:             uuid.NewString(),
		Title:          params.Title,
		PublishingYear: params.PublishingYear,
		Poster:         params.Poster,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.data.Movies[movie.ID] = movie
	if err := s.persist(); err != nil {
		delete(s.data.Movies, movie.ID)
		return models.Movie{}, err
	}
	return movie, nil
}

func (s *Storage) GetMovie(ctx context.Context, id string) (models.Movie, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	movie, ok := s.data.Movies[id]
	return movie, ok, nil
}

func (s *Storage) UpdateMovie(ctx context.Context, id string, update MovieUpdate) (models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	movie, ok := s.data.Movies[id]
	if !ok {
		return models.Movie{}, ErrMovieNotFound
	}
	previous := movie
	if update.Title != nil {
		movie.Title = *update.Title
	}
	if update.PublishingYear != nil {
		movie.PublishingYear = *update.PublishingYear
	}
	if update.Poster != nil {
		poster := *update.Poster
		movie.Poster = &poster
	}
	movie.UpdatedAt = time.Now().UTC()

	s.data.Movies[id] = movie
	if err := s.persist(); err != nil {
		s.data.Movies[id] = previous
		return models.Movie{}, err
	}
	return movie, nil
}

// ListMovies returns at most limit movies starting at offset, in creation
// order. Ties on the creation timestamp fall back to ID so pages stay stable.
func (s *Storage) ListMovies(ctx context.Context, offset, limit int) ([]models.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	movies := make([]models.Movie, 0, len(s.data.Movies))
	for _, movie := range s.data.Movies {
		movies = append(movies, movie)
	}
	sort.Slice(movies, func(i, j int) bool {
		if movies[i].CreatedAt.Equal(movies[j].CreatedAt) {
			return movies[i].ID < movies[j].ID
		}
		return movies[i].CreatedAt.Before(movies[j].CreatedAt)
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(movies) {
		return []models.Movie{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(movies) {
		end = len(movies)
	}
	return movies[offset:end], nil
}

func (s *Storage) CountMovies(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.Movies), nil
}

var _ Repository = (*Storage)(nil)
