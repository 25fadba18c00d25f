package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"reelshare/internal/models"
	"reelshare/internal/storage"
)

type contextKey string

const userContextKey contextKey = "authenticatedUser"

// ContextWithUser stores the authenticated user in the provided context.
func ContextWithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user from context if present.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// AuthenticateRequest validates the session token on the request and returns
// the account it belongs to.
func (h *Handler) AuthenticateRequest(r *http.Request) (models.User, error) {
	token := ExtractToken(r)
	if token == "" {
		return models.User{}, fmt.Errorf("missing session token")
	}
	claims, err := h.Tokens.Validate(token)
	if err != nil {
		return models.User{}, fmt.Errorf("invalid or expired session")
	}
	repo, err := h.Gateway.Connect(r.Context())
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrDatastoreUnavailable, err)
	}
	user, err := repo.GetUser(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.User{}, fmt.Errorf("account not found")
		}
		return models.User{}, fmt.Errorf("%w: %v", ErrDatastoreUnavailable, err)
	}
	return user, nil
}

func (h *Handler) requireAuthenticatedUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return models.User{}, false
	}
	return user, true
}

// ExtractToken pulls the session token from the Authorization header or the
// session cookie.
func ExtractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
