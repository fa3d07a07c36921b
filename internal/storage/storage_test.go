package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	return store
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, CreateUserParams{Username: "alice", Password: "s3cret"})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected a generated user ID")
	}
	if user.PasswordHash == "s3cret" {
		t.Fatal("password stored in clear text")
	}

	if _, err := store.CreateUser(ctx, CreateUserParams{Username: "alice", Password: "other"}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthenticateUser(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, CreateUserParams{Username: "alice", Password: "s3cret"}); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	user, err := store.AuthenticateUser(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("AuthenticateUser returned error: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("expected username alice, got %q", user.Username)
	}

	if _, err := store.AuthenticateUser(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := store.AuthenticateUser(ctx, "bob", "s3cret"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMovieLifecycle(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	poster := "uploads/1-poster.png"
	created, err := store.CreateMovie(ctx, CreateMovieParams{Title: "Arrival", PublishingYear: 2016, Poster: &poster})
	if err != nil {
		t.Fatalf("CreateMovie returned error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected a generated movie ID")
	}

	fetched, ok, err := store.GetMovie(ctx, created.ID)
	if err != nil || !ok {
		t.Fatalf("GetMovie = (%v, %v, %v)", fetched, ok, err)
	}
	if fetched.Title != "Arrival" || fetched.PublishingYear != 2016 {
		t.Fatalf("unexpected movie %+v", fetched)
	}
	if fetched.Poster == nil || *fetched.Poster != poster {
		t.Fatalf("unexpected poster %v", fetched.Poster)
	}

	newTitle := "Arrival (2016)"
	updated, err := store.UpdateMovie(ctx, created.ID, MovieUpdate{Title: &newTitle})
	if err != nil {
		t.Fatalf("UpdateMovie returned error: %v", err)
	}
	if updated.Title != newTitle {
		t.Fatalf("expected updated title, got %q", updated.Title)
	}
	if updated.PublishingYear != 2016 {
		t.Fatalf("year changed unexpectedly: %d", updated.PublishingYear)
	}
	if updated.Poster == nil || *updated.Poster != poster {
		t.Fatalf("poster changed unexpectedly: %v", updated.Poster)
	}
	if !updated.UpdatedAt.After(created.CreatedAt) && !updated.UpdatedAt.Equal(created.CreatedAt) {
		t.Fatalf("UpdatedAt went backwards: %v < %v", updated.UpdatedAt, created.CreatedAt)
	}

	if _, err := store.UpdateMovie(ctx, "missing", MovieUpdate{Title: &newTitle}); !errors.Is(err, ErrMovieNotFound) {
		t.Fatalf("expected ErrMovieNotFound, got %v", err)
	}
}

func TestListMoviesPagination(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	titles := []string{"One", "Two", "Three", "Four", "Five"}
	for _, title := range titles {
		if _, err := store.CreateMovie(ctx, CreateMovieParams{Title: title, PublishingYear: 2000}); err != nil {
			t.Fatalf("CreateMovie(%q) returned error: %v", title, err)
		}
	}

	total, err := store.CountMovies(ctx)
	if err != nil {
		t.Fatalf("CountMovies returned error: %v", err)
	}
	if total != len(titles) {
		t.Fatalf("expected %d movies, got %d", len(titles), total)
	}

	cases := []struct {
		name   string
		offset int
		limit  int
		want   int
	}{
		{name: "first page", offset: 0, limit: 2, want: 2},
		{name: "middle page", offset: 2, limit: 2, want: 2},
		{name: "short last page", offset: 4, limit: 2, want: 1},
		{name: "past the end", offset: 10, limit: 2, want: 0},
		{name: "no limit", offset: 0, limit: 0, want: 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := store.ListMovies(ctx, tc.offset, tc.limit)
			if err != nil {
				t.Fatalf("ListMovies returned error: %v", err)
			}
			if len(page) != tc.want {
				t.Fatalf("expected %d movies, got %d", tc.want, len(page))
			}
		})
	}

	// Pages must not overlap.
	first, _ := store.ListMovies(ctx, 0, 2)
	second, _ := store.ListMovies(ctx, 2, 2)
	for _, a := range first {
		for _, b := range second {
			if a.ID == b.ID {
				t.Fatalf("movie %s appeared on two pages", a.ID)
			}
		}
	}
}

func TestPersistFailureRollsBack(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	movie, err := store.CreateMovie(ctx, CreateMovieParams{Title: "Keeper", PublishingYear: 1999})
	if err != nil {
		t.Fatalf("CreateMovie returned error: %v", err)
	}

	persistErr := errors.New("disk full")
	store.persistOverride = func(dataset) error { return persistErr }

	if _, err := store.CreateMovie(ctx, CreateMovieParams{Title: "Ghost", PublishingYear: 2001}); !errors.Is(err, persistErr) {
		t.Fatalf("expected persist error, got %v", err)
	}
	if total, _ := store.CountMovies(ctx); total != 1 {
		t.Fatalf("failed create left %d movies", total)
	}

	newTitle := "Changed"
	if _, err := store.UpdateMovie(ctx, movie.ID, MovieUpdate{Title: &newTitle}); !errors.Is(err, persistErr) {
		t.Fatalf("expected persist error, got %v", err)
	}
	current, ok, _ := store.GetMovie(ctx, movie.ID)
	if !ok || current.Title != "Keeper" {
		t.Fatalf("failed update was not rolled back: %+v", current)
	}

	if _, err := store.CreateUser(ctx, CreateUserParams{Username: "alice", Password: "pw"}); !errors.Is(err, persistErr) {
		t.Fatalf("expected persist error, got %v", err)
	}
	if _, ok, _ := store.GetUserByUsername(ctx, "alice"); ok {
		t.Fatal("failed user create was not rolled back")
	}
}

func TestStorageReloadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	ctx := context.Background()

	store, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	created, err := store.CreateMovie(ctx, CreateMovieParams{Title: "Persisted", PublishingYear: 2010})
	if err != nil {
		t.Fatalf("CreateMovie returned error: %v", err)
	}

	reopened, err := NewStorage(path)
	if err != nil {
		t.Fatalf("reopening datastore returned error: %v", err)
	}
	movie, ok, err := reopened.GetMovie(ctx, created.ID)
	if err != nil || !ok {
		t.Fatalf("GetMovie after reload = (%v, %v, %v)", movie, ok, err)
	}
	if movie.Title != "Persisted" {
		t.Fatalf("unexpected title after reload: %q", movie.Title)
	}
}
