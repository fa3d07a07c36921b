package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cinevault/internal/storage"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Register creates a new account. Responses are plain text, matching the
// contract the service has always exposed.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeText(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
		return
	}

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeText(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeText(w, http.StatusBadRequest, "username and password are required")
		return
	}

	_, err := h.Store.CreateUser(r.Context(), storage.CreateUserParams{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			writeText(w, http.StatusBadRequest, "User already exists")
			return
		}
		h.logger().Error("register failed", "username", req.Username, "error", err)
		writeText(w, http.StatusInternalServerError, "Error registering user")
		return
	}

	writeText(w, http.StatusCreated, "User registered successfully")
}

// Login verifies credentials and issues a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeText(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeText(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Store.AuthenticateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUserNotFound):
			writeText(w, http.StatusBadRequest, "Username or password is incorrect")
		case errors.Is(err, storage.ErrInvalidCredentials):
			writeText(w, http.StatusBadRequest, "Invalid password")
		default:
			h.logger().Error("login failed", "username", req.Username, "error", err)
			writeText(w, http.StatusInternalServerError, "Error logging in")
		}
		return
	}

	token, _, err := h.Tokens.Issue(user.ID, user.Username)
	if err != nil {
		h.logger().Error("token issue failed", "user_id", user.ID, "error", err)
		writeText(w, http.StatusInternalServerError, "Error logging in")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}
