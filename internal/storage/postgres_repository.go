package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"reelshare/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepository struct {
	pool *pgxpool.Pool
	cfg  PostgresConfig
}

// NewPostgresRepository opens a Postgres-backed repository and ensures its
// schema exists.
func NewPostgresRepository(ctx context.Context, dsn string, opts ...Option) (Repository, error) {
	cfg := newPostgresConfig(dsn, opts...)
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections >= 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	repo := &postgresRepository{pool: pool, cfg: cfg}
	if err := repo.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (r *postgresRepository) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS videos (
			id TEXT PRIMARY KEY,
			video_url TEXT NOT NULL,
			doc JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS videos_video_url_lower_idx ON videos (lower(video_url))`,
		`CREATE INDEX IF NOT EXISTS videos_created_at_idx ON videos (created_at DESC, id DESC)`,
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return errors.New("postgres pool not configured")
	}
	return r.pool.Ping(ctx)
}

func (r *postgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *postgresRepository) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	normalizedEmail := models.NormalizeEmail(params.Email)
	if normalizedEmail == "" {
		return models.User{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if params.Password == "" {
		return models.User{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
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

	tag, err := r.pool.Exec(ctx, `
INSERT INTO users (id, email, password_hash, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (email) DO NOTHING
`, user.ID, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.User{}, ErrEmailInUse
	}
	return user, nil
}

func (r *postgresRepository) AuthenticateUser(ctx context.Context, email, password string) (models.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return models.User{}, ErrInvalidCredentials
	}
	user, err := r.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if err := verifyPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *postgresRepository) GetUser(ctx context.Context, id string) (models.User, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, email, password_hash, created_at
FROM users
WHERE id = $1
`, id)
	return scanUser(row)
}

func (r *postgresRepository) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, email, password_hash, created_at
FROM users
WHERE email = $1
`, models.NormalizeEmail(email))
	return scanUser(row)
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

func (r *postgresRepository) CreateVideo(ctx context.Context, params CreateVideoParams) (models.Video, error) {
	video, err := newVideoFromParams(params)
	if err != nil {
		return models.Video{}, err
	}

	id, err := generateID()
	if err != nil {
		return models.Video{}, err
	}
	now := time.Now().UTC()
	video.ID = id
	video.CreatedAt = now
	video.UpdatedAt = now

	if err := r.insertVideo(ctx, video); err != nil {
		return models.Video{}, err
	}
	return video, nil
}

func (r *postgresRepository) insertVideo(ctx context.Context, video models.Video) error {
	doc, err := json.Marshal(video)
	if err != nil {
		return fmt.Errorf("encode video: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
INSERT INTO videos (id, video_url, doc, created_at)
VALUES ($1, $2, $3, $4)
`, video.ID, video.VideoURL, doc, video.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListVideos(ctx context.Context) ([]models.Video, error) {
	rows, err := r.pool.Query(ctx, `
SELECT doc
FROM videos
ORDER BY created_at DESC, id DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	videos := make([]models.Video, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		var video models.Video
		if err := json.Unmarshal(doc, &video); err != nil {
			return nil, fmt.Errorf("decode video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return videos, nil
}

func (r *postgresRepository) GetVideo(ctx context.Context, id string) (models.Video, error) {
	return r.queryVideo(ctx, `SELECT doc FROM videos WHERE id = $1`, id)
}

func (r *postgresRepository) FindVideoByURL(ctx context.Context, videoURL string) (models.Video, error) {
	trimmed := strings.TrimSpace(videoURL)
	if trimmed == "" {
		return models.Video{}, ErrNotFound
	}
	return r.queryVideo(ctx, `SELECT doc FROM videos WHERE lower(video_url) = lower($1) LIMIT 1`, trimmed)
}

func (r *postgresRepository) queryVideo(ctx context.Context, query string, args ...any) (models.Video, error) {
	var doc []byte
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("query video: %w", err)
	}
	var video models.Video
	if err := json.Unmarshal(doc, &video); err != nil {
		return models.Video{}, fmt.Errorf("decode video: %w", err)
	}
	return video, nil
}

func (r *postgresRepository) UpdateVideo(ctx context.Context, id string, update VideoUpdate) (models.Video, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Video{}, fmt.Errorf("begin update: %w", err)
	}
	defer rollbackTx(ctx, tx)

	var doc []byte
	err = tx.QueryRow(ctx, `SELECT doc FROM videos WHERE id = $1 FOR UPDATE`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("lock video: %w", err)
	}
	var video models.Video
	if err := json.Unmarshal(doc, &video); err != nil {
		return models.Video{}, fmt.Errorf("decode video: %w", err)
	}

	updated, err := applyVideoUpdate(video, update, time.Now().UTC())
	if err != nil {
		return models.Video{}, err
	}
	encoded, err := json.Marshal(updated)
	if err != nil {
		return models.Video{}, fmt.Errorf("encode video: %w", err)
	}
	if _, err := tx.Exec(ctx, `
UPDATE videos SET video_url = $2, doc = $3 WHERE id = $1
`, id, updated.VideoURL, encoded); err != nil {
		return models.Video{}, fmt.Errorf("update video: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Video{}, fmt.Errorf("commit update: %w", err)
	}
	return updated, nil
}

func (r *postgresRepository) DeleteVideo(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func rollbackTx(ctx context.Context, tx pgx.Tx) {
	_ = tx.Rollback(ctx)
}

var _ Repository = (*postgresRepository)(nil)
