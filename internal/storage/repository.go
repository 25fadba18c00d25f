package storage

import (
	"context"
	"errors"

	"reelshare/internal/models"
)

var (
	// ErrNotFound reports that no record matches the requested identifier.
	ErrNotFound = errors.New("record not found")
	// ErrEmailInUse reports a registration attempt with an already-claimed email.
	ErrEmailInUse = errors.New("email already in use")
	// ErrInvalidCredentials is the single failure every login path collapses
	// to, so responses cannot distinguish unknown accounts from bad passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput wraps validation failures on write operations; nothing
	// is persisted when it is returned.
	ErrInvalidInput = errors.New("invalid input")
)

// Repository exposes the datastore operations required by the API handlers.
// Implementations are safe for concurrent use.
type Repository interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, error)

	CreateVideo(ctx context.Context, params CreateVideoParams) (models.Video, error)
	ListVideos(ctx context.Context) ([]models.Video, error)
	GetVideo(ctx context.Context, id string) (models.Video, error)
	FindVideoByURL(ctx context.Context, videoURL string) (models.Video, error)
	UpdateVideo(ctx context.Context, id string, update VideoUpdate) (models.Video, error)
	DeleteVideo(ctx context.Context, id string) error
}

var _ Repository = (*Storage)(nil)
