// Package imagekit issues the short-lived upload authentication parameters
// the browser hands to the media CDN when uploading directly.
package imagekit

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultUploadTTL bounds how long issued upload parameters stay valid.
const DefaultUploadTTL = 30 * time.Minute

// Config carries the CDN account credentials. PrivateKey signs upload
// parameters and never leaves the process.
type Config struct {
	PublicKey   string
	PrivateKey  string
	URLEndpoint string
	UploadTTL   time.Duration
}

// UploadAuthParams is the handshake payload the upload widget expects.
type UploadAuthParams struct {
	Token     string `json:"token"`
	Expire    int64  `json:"expire"`
	Signature string `json:"signature"`
}

// Signer mints upload authentication parameters.
type Signer struct {
	cfg Config
	now func() time.Time
}

// NewSigner validates the credentials and builds a signer. A zero UploadTTL
// falls back to DefaultUploadTTL.
func NewSigner(cfg Config) (*Signer, error) {
	if strings.TrimSpace(cfg.PublicKey) == "" {
		return nil, errors.New("imagekit public key required")
	}
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, errors.New("imagekit private key required")
	}
	if strings.TrimSpace(cfg.URLEndpoint) == "" {
		return nil, errors.New("imagekit url endpoint required")
	}
	if cfg.UploadTTL <= 0 {
		cfg.UploadTTL = DefaultUploadTTL
	}
	return &Signer{cfg: cfg, now: time.Now}, nil
}

// UploadAuth returns a fresh single-use token, its expiry as unix seconds,
// and the hex HMAC-SHA1 signature over token+expire.
func (s *Signer) UploadAuth() (UploadAuthParams, error) {
	token, err := uuid.NewRandom()
	if err != nil {
		return UploadAuthParams{}, fmt.Errorf("generate upload token: %w", err)
	}
	expire := s.now().Add(s.cfg.UploadTTL).Unix()

	mac := hmac.New(sha1.New, []byte(s.cfg.PrivateKey))
	mac.Write([]byte(token.String() + strconv.FormatInt(expire, 10)))
	signature := hex.EncodeToString(mac.Sum(nil))

	return UploadAuthParams{
		Token:     token.String(),
		Expire:    expire,
		Signature: signature,
	}, nil
}

// PublicKey exposes the account's public key for client configuration.
func (s *Signer) PublicKey() string {
	return s.cfg.PublicKey
}

// URLEndpoint exposes the CDN base URL for client configuration.
func (s *Signer) URLEndpoint() string {
	return s.cfg.URLEndpoint
}
