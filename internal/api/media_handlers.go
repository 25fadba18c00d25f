package api

import (
	"fmt"
	"net/http"
)

type uploadAuthResponse struct {
	Token     string `json:"token"`
	Expire    int64  `json:"expire"`
	Signature string `json:"signature"`
	PublicKey string `json:"publicKey"`
}

// MediaAuth hands an authenticated caller one-time upload credentials for the
// media CDN. The signature is only valid until the embedded expiry.
func (h *Handler) MediaAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET", r.Method)
		return
	}
	if _, ok := h.requireAuthenticatedUser(w, r); !ok {
		return
	}
	if h.Signer == nil {
		h.logError(r, "media auth unavailable", fmt.Errorf("upload signer not configured"))
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	params, err := h.Signer.UploadAuth()
	if err != nil {
		h.logError(r, "sign upload auth failed", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	h.recorder().ObserveAuthEvent("upload_auth")
	writeJSON(w, http.StatusOK, uploadAuthResponse{
		Token:     params.Token,
		Expire:    params.Expire,
		Signature: params.Signature,
		PublicKey: h.Signer.PublicKey(),
	})
}
