package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cinevault/internal/auth"
	"cinevault/internal/storage"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("failed to open datastore: %v", err)
	}
	tokens, err := auth.NewTokenManager([]byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("failed to build token manager: %v", err)
	}
	handler := NewHandler(store, tokens)
	handler.UploadDir = t.TempDir()
	return handler
}

func jsonBody(t *testing.T, payload interface{}) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to encode payload: %v", err)
	}
	return bytes.NewReader(data)
}

// multipartMovie builds a multipart body with the given text fields and an
// optional poster file part.
func multipartMovie(t *testing.T, fields map[string]string, posterName, posterType string, poster []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("failed to write field %s: %v", name, err)
		}
	}
	if posterName != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="poster"; filename="`+posterName+`"`)
		header.Set("Content-Type", posterType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("failed to create poster part: %v", err)
		}
		if _, err := part.Write(poster); err != nil {
			t.Fatalf("failed to write poster bytes: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
}

func createTestMovie(t *testing.T, handler *Handler, title string, year string) movieResponse {
	t.Helper()
	body, contentType := multipartMovie(t, map[string]string{
		"title":          title,
		"publishingYear": year,
	}, "poster.png", "image/png", []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/movies", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.Movies(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create movie returned %d: %s", rec.Code, rec.Body.String())
	}
	var movie movieResponse
	decodeBody(t, rec, &movie)
	return movie
}

func validationMessages(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var payload struct {
		Errors []fieldError `json:"errors"`
	}
	decodeBody(t, rec, &payload)
	messages := make(map[string]string, len(payload.Errors))
	for _, fe := range payload.Errors {
		messages[fe.Field] = fe.Message
	}
	return messages
}

func registerTestUser(t *testing.T, handler *Handler, username, password string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/register", jsonBody(t, map[string]string{
		"username": username,
		"password": password,
	}))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", rec.Code, rec.Body.String())
	}
}

func requireBody(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if got := strings.TrimSpace(string(body)); got != want {
		t.Fatalf("expected body %q, got %q", want, got)
	}
}
