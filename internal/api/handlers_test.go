package api

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"reelshare/internal/auth"
	"reelshare/internal/imagekit"
	"reelshare/internal/models"
	"reelshare/internal/storage"
)

func newTestHandler(t *testing.T) (*Handler, *storage.Storage) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	store, err := storage.NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage error: %v", err)
	}
	tokens, err := auth.NewTokenManager("handler-test-secret", 0)
	if err != nil {
		t.Fatalf("NewTokenManager error: %v", err)
	}
	signer, err := imagekit.NewSigner(imagekit.Config{
		PublicKey:   "public_test_key",
		PrivateKey:  "private_test_key",
		URLEndpoint: "https://ik.imagekit.io/reelshare",
	})
	if err != nil {
		t.Fatalf("NewSigner error: %v", err)
	}
	gateway := storage.NewGateway(func(ctx context.Context) (storage.Repository, error) {
		return store, nil
	})
	handler := NewHandler(gateway, tokens)
	handler.Signer = signer
	return handler, store
}

func findCookie(t *testing.T, cookies []*http.Cookie, name string) *http.Cookie {
	t.Helper()
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

// newSessionToken registers an account directly in the store and returns a
// valid bearer token for it.
func newSessionToken(t *testing.T, handler *Handler, store *storage.Storage, email string) (models.User, string) {
	t.Helper()
	user, err := store.CreateUser(context.Background(), storage.CreateUserParams{
		Email:    email,
		Password: "supersecret",
	})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	token, err := handler.Tokens.Issue(user)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	return user, token
}
