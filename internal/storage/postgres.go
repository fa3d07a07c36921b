package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cinevault/internal/models"
)

// PostgresConfig tunes the connection pool behind the Postgres repository.
type PostgresConfig struct {
	DSN             string
	MaxConnections  int32
	MinConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ApplicationName string
}

// PostgresRepository is the pgx-backed Repository implementation.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository opens a Postgres-backed repository and ensures the
// schema exists before returning.
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	repo := &PostgresRepository{pool: pool}
	if err := repo.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

// Close releases the connection pool, bounded by the provided context.
func (r *PostgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *PostgresRepository) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS movies (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			publishing_year INTEGER NOT NULL,
			poster TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS movies_created_at_idx ON movies (created_at, id)`,
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Ping verifies the database connection is usable.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// User operations

func (r *PostgresRepository) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" {
		return models.User{}, errors.New("username is required")
	}
	passwordHash, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err = r.pool.Exec(ctx, `
INSERT INTO users (id, username, password_hash, created_at)
VALUES ($1, $2, $3, $4)
`, user.ID, user.Username, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrUserExists
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (models.User, bool, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, username, password_hash, created_at
FROM users
WHERE username = $1
`, username)
	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, false, nil
		}
		return models.User{}, false, fmt.Errorf("query user: %w", err)
	}
	return user, true, nil
}

func (r *PostgresRepository) AuthenticateUser(ctx context.Context, username, password string) (models.User, error) {
	user, ok, err := r.GetUserByUsername(ctx, username)
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

func (r *PostgresRepository) CreateMovie(ctx context.Context, params CreateMovieParams) (models.Movie, error) {
	if strings.TrimSpace(params.Title) == "" {
		return models.Movie{}, errors.New("title is required")
	}
	now := time.Now().UTC()
	movie := models.Movie{
		ID:             uuid.NewString(),
		Title:          params.Title,
		PublishingYear: params.PublishingYear,
		Poster:         params.Poster,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO movies (id, title, publishing_year, poster, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, movie.ID, movie.Title, movie.PublishingYear, movie.Poster, movie.CreatedAt, movie.UpdatedAt)
	if err != nil {
		return models.Movie{}, fmt.Errorf("insert movie: %w", err)
	}
	return movie, nil
}

func (r *PostgresRepository) GetMovie(ctx context.Context, id string) (models.Movie, bool, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, title, publishing_year, poster, created_at, updated_at
FROM movies
WHERE id = $1
`, id)
	movie, err := scanMovie(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Movie{}, false, nil
		}
		return models.Movie{}, false, fmt.Errorf("query movie: %w", err)
	}
	return movie, true, nil
}

func (r *PostgresRepository) UpdateMovie(ctx context.Context, id string, update MovieUpdate) (models.Movie, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE movies
SET title = COALESCE($2, title),
    publishing_year = COALESCE($3, publishing_year),
    poster = COALESCE($4, poster),
    updated_at = $5
WHERE id = $1
RETURNING id, title, publishing_year, poster, created_at, updated_at
`, id, update.Title, update.PublishingYear, update.Poster, time.Now().UTC())
	movie, err := scanMovie(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Movie{}, ErrMovieNotFound
		}
		return models.Movie{}, fmt.Errorf("update movie: %w", err)
	}
	return movie, nil
}

func (r *PostgresRepository) ListMovies(ctx context.Context, offset, limit int) ([]models.Movie, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, title, publishing_year, poster, created_at, updated_at
FROM movies
ORDER BY created_at, id
OFFSET $1 LIMIT $2
`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	movies := make([]models.Movie, 0, limit)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		movies = append(movies, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	return movies, nil
}

func (r *PostgresRepository) CountMovies(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM movies`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	return count, nil
}

func scanMovie(row pgx.Row) (models.Movie, error) {
	var movie models.Movie
	err := row.Scan(&movie.ID, &movie.Title, &movie.PublishingYear, &movie.Poster, &movie.CreatedAt, &movie.UpdatedAt)
	return movie, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Repository = (*PostgresRepository)(nil)
