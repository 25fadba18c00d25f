package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"reelshare/internal/models"

	"github.com/jackc/pgx/v5"
)

// SnapshotImporter is implemented by backends that can ingest a JSON-store
// snapshot, currently only Postgres.
type SnapshotImporter interface {
	ImportSnapshot(ctx context.Context, snapshot *Snapshot) error
}

// Snapshot is a point-in-time copy of the JSON store, used to migrate
// datasets into Postgres.
type Snapshot struct {
	Users  map[string]models.User  `json:"users"`
	Videos map[string]models.Video `json:"videos"`
}

// Snapshot returns a deep copy of the current dataset.
func (s *Storage) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := &Snapshot{
		Users:  make(map[string]models.User, len(s.data.Users)),
		Videos: make(map[string]models.Video, len(s.data.Videos)),
	}
	for id, user := range s.data.Users {
		snapshot.Users[id] = user
	}
	for id, video := range s.data.Videos {
		snapshot.Videos[id] = cloneVideo(video)
	}
	return snapshot
}

// ImportSnapshot loads a JSON-store snapshot into Postgres inside one
// transaction. Existing rows with matching ids are left untouched.
func (r *postgresRepository) ImportSnapshot(ctx context.Context, snapshot *Snapshot) error {
	if snapshot == nil {
		return nil
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer rollbackTx(ctx, tx)

	if err := importSnapshotUsers(ctx, tx, snapshot.Users); err != nil {
		return err
	}
	if err := importSnapshotVideos(ctx, tx, snapshot.Videos); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot import: %w", err)
	}
	return nil
}

func importSnapshotUsers(ctx context.Context, tx pgx.Tx, users map[string]models.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]string, 0, len(users))
	for id := range users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, key := range ids {
		user := users[key]
		id := strings.TrimSpace(user.ID)
		if id == "" {
			id = key
		}
		createdAt := user.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		} else {
			createdAt = createdAt.UTC()
		}
		_, err := tx.Exec(ctx, `
INSERT INTO users (id, email, password_hash, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO NOTHING
`, id, models.NormalizeEmail(user.Email), strings.TrimSpace(user.PasswordHash), createdAt)
		if err != nil {
			return fmt.Errorf("insert user %s: %w", id, err)
		}
	}
	return nil
}

func importSnapshotVideos(ctx context.Context, tx pgx.Tx, videos map[string]models.Video) error {
	if len(videos) == 0 {
		return nil
	}
	ids := make([]string, 0, len(videos))
	for id := range videos {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, key := range ids {
		video := videos[key]
		if strings.TrimSpace(video.ID) == "" {
			video.ID = key
		}
		if video.CreatedAt.IsZero() {
			video.CreatedAt = time.Now().UTC()
		}
		if video.UpdatedAt.IsZero() {
			video.UpdatedAt = video.CreatedAt
		}
		doc, err := json.Marshal(video)
		if err != nil {
			return fmt.Errorf("encode video %s: %w", video.ID, err)
		}
		_, err = tx.Exec(ctx, `
INSERT INTO videos (id, video_url, doc, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO NOTHING
`, video.ID, video.VideoURL, doc, video.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("insert video %s: %w", video.ID, err)
		}
	}
	return nil
}
