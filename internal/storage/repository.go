package storage

import (
	"context"
	"errors"

	"cinevault/internal/models"
)

// Repository exposes the datastore operations required by the API handlers.
// Two drivers implement it: the JSON-file store for development and the
// Postgres store for production deployments.
type Repository interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, bool, error)

	CreateMovie(ctx context.Context, params CreateMovieParams) (models.Movie, error)
	GetMovie(ctx context.Context, id string) (models.Movie, bool, error)
	UpdateMovie(ctx context.Context, id string, update MovieUpdate) (models.Movie, error)
	ListMovies(ctx context.Context, offset, limit int) ([]models.Movie, error)
	CountMovies(ctx context.Context) (int, error)
}

// CreateUserParams carries the inputs for registering a new account. Password
// is the plaintext credential; it is hashed before it reaches any store.
type CreateUserParams struct {
	Username string
	Password string
}

// CreateMovieParams carries the validated inputs for a new catalog entry.
type CreateMovieParams struct {
	Title          string
	PublishingYear int
	Poster         *string
}

// MovieUpdate applies partial-update semantics: nil fields are left untouched.
type MovieUpdate struct {
	Title          *string
	PublishingYear *int
	Poster         *string
}

var (
	// ErrUserExists signals a registration attempt for a taken username.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound signals a login attempt for an unknown username.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials signals a password mismatch during login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMovieNotFound signals an update against a missing catalog entry.
	ErrMovieNotFound = errors.New("movie not found")
)
