package storage

import (
	"fmt"
	"strings"
	"time"

	"reelshare/internal/models"
)

// CreateUserParams captures the attributes that can be set when registering
// an account.
type CreateUserParams struct {
	Email    string
	Password string
}

// CreateVideoParams captures the attributes accepted when publishing a video.
// Controls defaults to enabled when nil; Quality falls back to the create
// default when zero.
type CreateVideoParams struct {
	Title        string
	Description  string
	VideoURL     string
	ThumbnailURL string
	Controls     *bool
	Quality      int
	Creator      string
	Duration     string
}

// VideoUpdate represents a partial merge: nil fields keep their stored value.
type VideoUpdate struct {
	Title          *string
	Description    *string
	VideoURL       *string
	ThumbnailURL   *string
	Controls       *bool
	Transformation *models.VideoTransformation
	Creator        *string
	LikesCount     *int
	CommentsCount  *int
	Duration       *string
	Comments       *[]models.VideoComment
}

// newVideoFromParams validates required fields and applies creation defaults.
// ID and timestamps are assigned by the calling backend.
func newVideoFromParams(params CreateVideoParams) (models.Video, error) {
	title := strings.TrimSpace(params.Title)
	description := strings.TrimSpace(params.Description)
	videoURL := strings.TrimSpace(params.VideoURL)
	thumbnailURL := strings.TrimSpace(params.ThumbnailURL)
	switch {
	case title == "":
		return models.Video{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	case description == "":
		return models.Video{}, fmt.Errorf("%w: description is required", ErrInvalidInput)
	case videoURL == "":
		return models.Video{}, fmt.Errorf("%w: videoUrl is required", ErrInvalidInput)
	case thumbnailURL == "":
		return models.Video{}, fmt.Errorf("%w: thumbnailUrl is required", ErrInvalidInput)
	}
	if params.Quality < 0 || params.Quality > 100 {
		return models.Video{}, fmt.Errorf("%w: quality must be between 0 and 100", ErrInvalidInput)
	}

	controls := true
	if params.Controls != nil {
		controls = *params.Controls
	}
	transformation := models.DefaultTransformation()
	if params.Quality > 0 {
		transformation.Video.Quality = params.Quality
	}

	return models.Video{
		Title:          title,
		Description:    description,
		VideoURL:       videoURL,
		ThumbnailURL:   thumbnailURL,
		Controls:       controls,
		Transformation: transformation,
		Creator:        strings.TrimSpace(params.Creator),
		Duration:       strings.TrimSpace(params.Duration),
	}, nil
}

// applyVideoUpdate merges the supplied fields into the stored record and
// stamps UpdatedAt. The update never touches ID or CreatedAt.
func applyVideoUpdate(video models.Video, update VideoUpdate, now time.Time) (models.Video, error) {
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return models.Video{}, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		video.Title = title
	}
	if update.Description != nil {
		description := strings.TrimSpace(*update.Description)
		if description == "" {
			return models.Video{}, fmt.Errorf("%w: description cannot be empty", ErrInvalidInput)
		}
		video.Description = description
	}
	if update.VideoURL != nil {
		videoURL := strings.TrimSpace(*update.VideoURL)
		if videoURL == "" {
			return models.Video{}, fmt.Errorf("%w: videoUrl cannot be empty", ErrInvalidInput)
		}
		video.VideoURL = videoURL
	}
	if update.ThumbnailURL != nil {
		thumbnailURL := strings.TrimSpace(*update.ThumbnailURL)
		if thumbnailURL == "" {
			return models.Video{}, fmt.Errorf("%w: thumbnailUrl cannot be empty", ErrInvalidInput)
		}
		video.ThumbnailURL = thumbnailURL
	}
	if update.Controls != nil {
		video.Controls = *update.Controls
	}
	if update.Transformation != nil {
		quality := update.Transformation.Video.Quality
		if quality < 0 || quality > 100 {
			return models.Video{}, fmt.Errorf("%w: quality must be between 0 and 100", ErrInvalidInput)
		}
		video.Transformation = *update.Transformation
	}
	if update.Creator != nil {
		video.Creator = strings.TrimSpace(*update.Creator)
	}
	if update.LikesCount != nil {
		if *update.LikesCount < 0 {
			return models.Video{}, fmt.Errorf("%w: likesCount cannot be negative", ErrInvalidInput)
		}
		video.LikesCount = *update.LikesCount
	}
	if update.CommentsCount != nil {
		if *update.CommentsCount < 0 {
			return models.Video{}, fmt.Errorf("%w: commentsCount cannot be negative", ErrInvalidInput)
		}
		video.CommentsCount = *update.CommentsCount
	}
	if update.Duration != nil {
		video.Duration = strings.TrimSpace(*update.Duration)
	}
	if update.Comments != nil {
		video.Comments = append([]models.VideoComment(nil), (*update.Comments)...)
	}
	video.UpdatedAt = now
	return video, nil
}
