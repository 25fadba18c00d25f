package models

import (
	"strings"
	"time"
)

// Default rendering parameters applied when a video is created without an
// explicit transformation. Portrait 9:16 short-form clips.
const (
	DefaultVideoWidth  = 1080
	DefaultVideoHeight = 1920

	// Quality stamped on new records when the creator does not supply one.
	DefaultCreateQuality = 100
	// Quality the presentation layer falls back to when a stored record
	// carries none.
	DefaultDisplayQuality = 80

	DefaultThumbnailWidth  = 320
	DefaultThumbnailHeight = 180
)

// User is an account record. PasswordHash carries the salted one-way hash and
// is never serialized into API responses; handlers copy id/email into
// dedicated response types instead.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// VideoTransformation describes the rendition the CDN is asked to produce for
// playback and for the poster thumbnail.
type VideoTransformation struct {
	Video     VideoFrame     `json:"video"`
	Thumbnail ThumbnailFrame `json:"thumbnail"`
}

type VideoFrame struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	Quality int `json:"quality,omitempty"`
}

type ThumbnailFrame struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// VideoComment is an embedded comment entry. Comments live in display order on
// the video document itself; there is no standalone comment resource.
type VideoComment struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Video is the metadata record for one uploaded clip. VideoURL and
// ThumbnailURL are opaque paths issued by the media CDN; the API stores them
// as-is. A video is never persisted without title, description, videoUrl, and
// thumbnailUrl.
type Video struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	VideoURL       string              `json:"videoUrl"`
	ThumbnailURL   string              `json:"thumbnailUrl"`
	Controls       bool                `json:"controls"`
	Transformation VideoTransformation `json:"transformation"`
	Creator        string              `json:"creator,omitempty"`
	LikesCount     int                 `json:"likesCount"`
	CommentsCount  int                 `json:"commentsCount"`
	Duration       string              `json:"duration,omitempty"`
	Comments       []VideoComment      `json:"comments,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// DefaultTransformation returns the transformation applied on create when the
// caller supplies none.
func DefaultTransformation() VideoTransformation {
	return VideoTransformation{
		Video: VideoFrame{
			Width:   DefaultVideoWidth,
			Height:  DefaultVideoHeight,
			Quality: DefaultCreateQuality,
		},
		Thumbnail: ThumbnailFrame{
			Width:  DefaultThumbnailWidth,
			Height: DefaultThumbnailHeight,
		},
	}
}

// ValidID reports whether the value is a well-formed store-native identifier:
// 32 lowercase hex characters, the format the storage layer generates.
func ValidID(id string) bool {
	if len(id) != 32 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}

// NormalizeEmail lowercases and trims an address so lookups and the
// uniqueness constraint agree on one canonical form.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
