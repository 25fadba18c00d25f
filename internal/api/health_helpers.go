package api

import (
	"net/http"
	"time"
)

type componentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
	CheckedAt  time.Time                  `json:"checkedAt"`
}

// Health reports process liveness and datastore reachability. The endpoint is
// public so orchestrators can probe it without a session.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, "GET, HEAD", r.Method)
		return
	}

	datastore := componentStatus{Status: "ok"}
	repo, err := h.Gateway.Connect(r.Context())
	if err == nil {
		err = repo.Ping(r.Context())
	}
	if err != nil {
		datastore = componentStatus{Status: "unavailable", Error: err.Error()}
	}
	h.recorder().SetDatastoreHealth(datastore.Status)

	resp := healthResponse{
		Status:     "ok",
		Components: map[string]componentStatus{"datastore": datastore},
		CheckedAt:  time.Now().UTC(),
	}
	code := http.StatusOK
	if datastore.Status != "ok" {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}
