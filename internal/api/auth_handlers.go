package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"reelshare/internal/models"
	"reelshare/internal/storage"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type identityResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type authResponse struct {
	User      identityResponse `json:"user"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

func newAuthResponse(user models.User, expiresAt time.Time) authResponse {
	return authResponse{
		User:      identityResponse{ID: user.ID, Email: user.Email},
		ExpiresAt: expiresAt.UTC(),
	}
}

// Register creates an account and starts a session for it.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST", r.Method)
		return
	}

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("password must be at least 8 characters"))
		return
	}

	repo, ok := h.repository(w, r)
	if !ok {
		return
	}
	user, err := repo.CreateUser(r.Context(), storage.CreateUserParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEmailInUse):
			writeError(w, http.StatusBadRequest, fmt.Errorf("email already in use"))
		case errors.Is(err, storage.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err)
		default:
			h.logError(r, "register failed", err)
			writeError(w, http.StatusInternalServerError, errInternal)
		}
		return
	}

	token, err := h.Tokens.Issue(user)
	if err != nil {
		h.logError(r, "issue session token failed", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	h.recorder().ObserveAuthEvent("register")

	expiresAt := time.Now().UTC().Add(h.Tokens.TTL())
	h.setSessionCookie(w, r, token, expiresAt)
	writeJSON(w, http.StatusCreated, newAuthResponse(user, expiresAt))
}

// Login verifies credentials and starts a session. Every failure mode shares
// one generic message so account existence cannot be probed.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST", r.Method)
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	repo, ok := h.repository(w, r)
	if !ok {
		return
	}
	user, err := repo.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidCredentials) {
			h.recorder().ObserveAuthEvent("login_failure")
			writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid email or password"))
			return
		}
		h.logError(r, "login failed", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	token, err := h.Tokens.Issue(user)
	if err != nil {
		h.logError(r, "issue session token failed", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	h.recorder().ObserveAuthEvent("login_success")

	expiresAt := time.Now().UTC().Add(h.Tokens.TTL())
	h.setSessionCookie(w, r, token, expiresAt)
	writeJSON(w, http.StatusOK, newAuthResponse(user, expiresAt))
}

// Session reports or ends the caller's session. Tokens are stateless, so
// DELETE only clears the cookie; the token itself stays valid until expiry.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		token := ExtractToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("missing session token"))
			return
		}
		claims, err := h.Tokens.Validate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid or expired session"))
			return
		}
		repo, ok := h.repository(w, r)
		if !ok {
			return
		}
		user, err := repo.GetUser(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, fmt.Errorf("account not found"))
				return
			}
			h.logError(r, "session lookup failed", err)
			writeError(w, http.StatusInternalServerError, errInternal)
			return
		}
		writeJSON(w, http.StatusOK, newAuthResponse(user, claims.ExpiresAt.Time))
	case http.MethodDelete:
		h.ClearSessionCookie(w, r)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET, DELETE", r.Method)
	}
}
