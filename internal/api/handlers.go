package api

import (
	"errors"
	"log/slog"
	"net/http"

	"reelshare/internal/auth"
	"reelshare/internal/imagekit"
	"reelshare/internal/observability/logging"
	"reelshare/internal/observability/metrics"
	"reelshare/internal/storage"
)

// errInternal is the only message unexpected failures ever surface; details
// stay in the server log.
var errInternal = errors.New("internal server error")

// ErrDatastoreUnavailable marks authentication failures caused by the
// backing store rather than by the presented credentials. Callers must not
// surface it to clients as an authorization problem.
var ErrDatastoreUnavailable = errors.New("datastore unavailable")

// WriteInternalError answers with the generic 500 body. The caller is
// responsible for logging the underlying detail.
func WriteInternalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, errInternal)
}

type Handler struct {
	Gateway             *storage.Gateway
	Tokens              *auth.TokenManager
	Signer              *imagekit.Signer
	Logger              *slog.Logger
	Metrics             *metrics.Recorder
	SessionCookiePolicy SessionCookiePolicy
}

func NewHandler(gateway *storage.Gateway, tokens *auth.TokenManager) *Handler {
	return &Handler{
		Gateway: gateway,
		Tokens:  tokens,
		Metrics: metrics.Default(),
	}
}

func (h *Handler) recorder() *metrics.Recorder {
	if h.Metrics == nil {
		return metrics.Default()
	}
	return h.Metrics
}

// repository resolves the datastore handle, answering 500 itself when the
// connect fails.
func (h *Handler) repository(w http.ResponseWriter, r *http.Request) (storage.Repository, bool) {
	repo, err := h.Gateway.Connect(r.Context())
	if err != nil {
		h.logError(r, "datastore connect failed", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return nil, false
	}
	return repo, true
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logging.WithContext(r.Context(), logger).Error(msg, "error", err, "path", r.URL.Path)
}

func methodNotAllowed(w http.ResponseWriter, allow string, method string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, errors.New("method "+method+" not allowed"))
}
