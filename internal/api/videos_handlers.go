package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"reelshare/internal/models"
	"reelshare/internal/storage"
)

// createVideoRequest accepts the whole video document the web client posts
// back, including a nested transformation; only the fields below are honored
// on create, the rest are server-assigned.
type createVideoRequest struct {
	Title          string                      `json:"title"`
	Description    string                      `json:"description"`
	VideoURL       string                      `json:"videoUrl"`
	ThumbnailURL   string                      `json:"thumbnailUrl"`
	Controls       *bool                       `json:"controls"`
	Quality        int                         `json:"quality"`
	Transformation *models.VideoTransformation `json:"transformation"`
	Duration       string                      `json:"duration"`
}

type updateVideoRequest struct {
	Title          *string                     `json:"title"`
	Description    *string                     `json:"description"`
	VideoURL       *string                     `json:"videoUrl"`
	ThumbnailURL   *string                     `json:"thumbnailUrl"`
	Controls       *bool                       `json:"controls"`
	Transformation *models.VideoTransformation `json:"transformation"`
	LikesCount     *int                        `json:"likesCount"`
	CommentsCount  *int                        `json:"commentsCount"`
	Duration       *string                     `json:"duration"`
	Comments       *[]models.VideoComment      `json:"comments"`
}

// Videos serves the collection routes: a public newest-first listing and
// authenticated creation.
func (h *Handler) Videos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		repo, ok := h.repository(w, r)
		if !ok {
			return
		}
		videos, err := repo.ListVideos(r.Context())
		if err != nil {
			h.logError(r, "list videos failed", err)
			writeError(w, http.StatusInternalServerError, errInternal)
			return
		}
		if videos == nil {
			videos = []models.Video{}
		}
		writeJSON(w, http.StatusOK, videos)
	case http.MethodPost:
		h.createVideo(w, r)
	default:
		methodNotAllowed(w, "GET, HEAD, POST", r.Method)
	}
}

func (h *Handler) createVideo(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	var req createVideoRequest
	if err := decodeJSONOpen(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	quality := req.Quality
	if quality == 0 && req.Transformation != nil {
		quality = req.Transformation.Video.Quality
	}

	repo, ok := h.repository(w, r)
	if !ok {
		return
	}
	video, err := repo.CreateVideo(r.Context(), storage.CreateVideoParams{
		Title:        req.Title,
		Description:  req.Description,
		VideoURL:     req.VideoURL,
		ThumbnailURL: req.ThumbnailURL,
		Controls:     req.Controls,
		Quality:      quality,
		Creator:      user.Email,
		Duration:     req.Duration,
	})
	if err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		h.logError(r, "create video failed", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	h.recorder().ObserveVideoEvent("created")
	writeJSON(w, http.StatusCreated, video)
}

// VideoByID serves the item routes. The path remainder after /api/videos/ is
// either a document identifier or, for reads only, a stored video URL.
func (h *Handler) VideoByID(w http.ResponseWriter, r *http.Request) {
	candidate := strings.TrimPrefix(r.URL.Path, "/api/videos/")
	if candidate == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("video identifier required"))
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.fetchVideo(w, r, candidate)
	case http.MethodPut:
		h.updateVideo(w, r, candidate)
	case http.MethodDelete:
		h.deleteVideo(w, r, candidate)
	default:
		methodNotAllowed(w, "GET, HEAD, PUT, DELETE", r.Method)
	}
}

func (h *Handler) fetchVideo(w http.ResponseWriter, r *http.Request, candidate string) {
	repo, ok := h.repository(w, r)
	if !ok {
		return
	}

	var (
		video models.Video
		err   error
	)
	if models.ValidID(candidate) {
		video, err = repo.GetVideo(r.Context(), candidate)
	} else {
		video, err = repo.FindVideoByURL(r.Context(), candidate)
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Errorf("video not found"))
			return
		}
		h.logError(r, "fetch video failed", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	writeJSON(w, http.StatusOK, video)
}

func (h *Handler) updateVideo(w http.ResponseWriter, r *http.Request, candidate string) {
	if _, ok := h.requireAuthenticatedUser(w, r); !ok {
		return
	}
	if !models.ValidID(candidate) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid video id"))
		return
	}

	var req updateVideoRequest
	if err := decodeJSONOpen(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	repo, ok := h.repository(w, r)
	if !ok {
		return
	}
	video, err := repo.UpdateVideo(r.Context(), candidate, storage.VideoUpdate{
		Title:          req.Title,
		Description:    req.Description,
		VideoURL:       req.VideoURL,
		ThumbnailURL:   req.ThumbnailURL,
		Controls:       req.Controls,
		Transformation: req.Transformation,
		LikesCount:     req.LikesCount,
		CommentsCount:  req.CommentsCount,
		Duration:       req.Duration,
		Comments:       req.Comments,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, fmt.Errorf("video not found"))
		case errors.Is(err, storage.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err)
		default:
			h.logError(r, "update video failed", err)
			writeError(w, http.StatusInternalServerError, errInternal)
		}
		return
	}
	h.recorder().ObserveVideoEvent("updated")
	writeJSON(w, http.StatusOK, video)
}

func (h *Handler) deleteVideo(w http.ResponseWriter, r *http.Request, candidate string) {
	if _, ok := h.requireAuthenticatedUser(w, r); !ok {
		return
	}
	if !models.ValidID(candidate) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid video id"))
		return
	}

	repo, ok := h.repository(w, r)
	if !ok {
		return
	}
	if err := repo.DeleteVideo(r.Context(), candidate); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Errorf("video not found"))
			return
		}
		h.logError(r, "delete video failed", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	h.recorder().ObserveVideoEvent("deleted")
	writeJSON(w, http.StatusOK, map[string]string{"message": "video deleted"})
}
