package api

import (
	"context"
	"net/http"
	"strings"

	"cinevault/internal/auth"
)

type contextKey string

const identityContextKey contextKey = "authenticatedIdentity"

// ContextWithIdentity stores the verified token identity in the context.
func ContextWithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the verified identity from context if present.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(auth.Identity)
	return identity, ok
}

// BearerToken extracts the token from a strict "Bearer <token>" Authorization
// header. The scheme comparison is case-insensitive; raw tokens without the
// prefix are rejected.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
