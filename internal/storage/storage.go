package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"reelshare/internal/models"
)

type dataset struct {
	Users  map[string]models.User  `json:"users"`
	Videos map[string]models.Video `json:"videos"`
}

// Storage is a JSON-file backed repository. All reads are served from memory;
// every mutation rewrites the backing file atomically before it is visible.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

func newDataset() dataset {
	return dataset{
		Users:  make(map[string]models.User),
		Videos: make(map[string]models.Video),
	}
}

func (s *Storage) ensureDatasetInitializedLocked() {
	if s.data.Users == nil {
		s.data.Users = make(map[string]models.User)
	}
	if s.data.Videos == nil {
		s.data.Videos = make(map[string]models.Video)
	}
}

// NewStorage opens (or creates) the JSON store at path.
func NewStorage(path string, opts ...Option) (*Storage, error) {
	store := &Storage{filePath: path}
	for _, opt := range opts {
		if opt != nil {
			opt.applyJSON(store)
		}
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = newDataset()
		return nil
	} else if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode store file: %w", err)
	}

	s.ensureDatasetInitializedLocked()

	return nil
}

func (s *Storage) persist() error {
	return s.persistDataset(s.data)
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		if err := s.persistOverride(data); err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("flush store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	success = true
	return nil
}

func cloneVideo(video models.Video) models.Video {
	cloned := video
	if video.Comments != nil {
		cloned.Comments = append([]models.VideoComment(nil), video.Comments...)
	}
	return cloned
}

// Ping reports store health; the in-memory dataset is always reachable once
// loaded.
func (s *Storage) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.Users == nil || s.data.Videos == nil {
		return errors.New("store not initialized")
	}
	return nil
}

// Close is a no-op for the JSON store; the file is rewritten on every
// mutation, so there is nothing left to flush.
func (s *Storage) Close(ctx context.Context) error {
	return nil
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	normalizedEmail := models.NormalizeEmail(params.Email)
	if normalizedEmail == "" {
		return models.User{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if params.Password == "" {
		return models.User{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	for _, user := range s.data.Users {
		if user.Email == normalizedEmail {
			return models.User{}, ErrEmailInUse
		}
	}

	id, err := generateID()
	if err != nil {
		return models.User{}, err
	}
	passwordHash, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:           id,
		Email:        normalizedEmail,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	s.data.Users[id] = user
	if err := s.persist(); err != nil {
		delete(s.data.Users, id)
		return models.User{}, err
	}

	return user, nil
}

func (s *Storage) GetUser(ctx context.Context, id string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

// FindUserByEmail looks up a user by their normalized email address.
func (s *Storage) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	normalizedEmail := models.NormalizeEmail(email)
	for _, user := range s.data.Users {
		if user.Email == normalizedEmail {
			return user, nil
		}
	}
	return models.User{}, ErrNotFound
}

// Video operations

func (s *Storage) CreateVideo(ctx context.Context, params CreateVideoParams) (models.Video, error) {
	if err := ctx.Err(); err != nil {
		return models.Video{}, err
	}

	video, err := newVideoFromParams(params)
	if err != nil {
		return models.Video{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := generateID()
	if err != nil {
		return models.Video{}, err
	}
	now := time.Now().UTC()
	video.ID = id
	video.CreatedAt = now
	video.UpdatedAt = now

	s.data.Videos[id] = video
	if err := s.persist(); err != nil {
		delete(s.data.Videos, id)
		return models.Video{}, err
	}

	return cloneVideo(video), nil
}

// ListVideos returns every video, newest first.
func (s *Storage) ListVideos(ctx context.Context) ([]models.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	videos := make([]models.Video, 0, len(s.data.Videos))
	for _, video := range s.data.Videos {
		videos = append(videos, cloneVideo(video))
	}
	sort.Slice(videos, func(i, j int) bool {
		if videos[i].CreatedAt.Equal(videos[j].CreatedAt) {
			return videos[i].ID > videos[j].ID
		}
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})
	return videos, nil
}

func (s *Storage) GetVideo(ctx context.Context, id string) (models.Video, error) {
	if err := ctx.Err(); err != nil {
		return models.Video{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	video, ok := s.data.Videos[id]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	return cloneVideo(video), nil
}

// FindVideoByURL matches the stored videoUrl exactly, ignoring case.
func (s *Storage) FindVideoByURL(ctx context.Context, videoURL string) (models.Video, error) {
	if err := ctx.Err(); err != nil {
		return models.Video{}, err
	}
	trimmed := strings.TrimSpace(videoURL)
	if trimmed == "" {
		return models.Video{}, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, video := range s.data.Videos {
		if strings.EqualFold(video.VideoURL, trimmed) {
			return cloneVideo(video), nil
		}
	}
	return models.Video{}, ErrNotFound
}

func (s *Storage) UpdateVideo(ctx context.Context, id string, update VideoUpdate) (models.Video, error) {
	if err := ctx.Err(); err != nil {
		return models.Video{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data.Videos[id]
	if !ok {
		return models.Video{}, ErrNotFound
	}

	updated, err := applyVideoUpdate(cloneVideo(existing), update, time.Now().UTC())
	if err != nil {
		return models.Video{}, err
	}

	s.data.Videos[id] = updated
	if err := s.persist(); err != nil {
		s.data.Videos[id] = existing
		return models.Video{}, err
	}

	return cloneVideo(updated), nil
}

func (s *Storage) DeleteVideo(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data.Videos[id]
	if !ok {
		return ErrNotFound
	}

	delete(s.data.Videos, id)
	if err := s.persist(); err != nil {
		s.data.Videos[id] = existing
		return err
	}

	return nil
}
