package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"reelshare/internal/storage"
)

func TestMediaAuthRequiresAuthentication(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/media/auth", nil)
	rec := httptest.NewRecorder()

	handler.MediaAuth(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestMediaAuthReturnsSignedUploadParams(t *testing.T) {
	handler, store := newTestHandler(t)

	req := authedRequest(t, handler, store, http.MethodGet, "/api/media/auth", nil)
	rec := httptest.NewRecorder()

	handler.MediaAuth(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp uploadAuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}
	if resp.PublicKey != "public_test_key" {
		t.Fatalf("publicKey = %q, want the configured key", resp.PublicKey)
	}
	now := time.Now().Unix()
	if resp.Expire <= now || resp.Expire > now+31*60 {
		t.Fatalf("expire = %d, want roughly 30 minutes out from %d", resp.Expire, now)
	}

	mac := hmac.New(sha1.New, []byte("private_test_key"))
	mac.Write([]byte(resp.Token + strconv.FormatInt(resp.Expire, 10)))
	want := hex.EncodeToString(mac.Sum(nil))
	if resp.Signature != want {
		t.Fatalf("signature = %q, want %q", resp.Signature, want)
	}
}

func TestHealthReportsDatastore(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.Health(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("status = %q, want ok", resp.Status)
	}
	if resp.Components["datastore"].Status != "ok" {
		t.Fatalf("datastore = %q, want ok", resp.Components["datastore"].Status)
	}
}

func TestHealthDegradedWhenDatastoreUnavailable(t *testing.T) {
	handler, _ := newTestHandler(t)
	handler.Gateway = storage.NewGateway(func(ctx context.Context) (storage.Repository, error) {
		return nil, errors.New("dial failed")
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.Health(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}

	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Status != "degraded" {
		t.Fatalf("status = %q, want degraded", resp.Status)
	}
}
