//go:build postgres

package storage_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"reelshare/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresRepositoryFactory opens a Postgres-backed repository for integration
// scenarios, truncating tables between tests. The factory requires
// REELSHARE_TEST_POSTGRES_DSN to point at a database dedicated to automated
// runs.
func postgresRepositoryFactory(t *testing.T, opts ...storage.Option) storage.Repository {
	t.Helper()
	dsn := os.Getenv("REELSHARE_TEST_POSTGRES_DSN")
	if strings.TrimSpace(dsn) == "" {
		t.Skip("REELSHARE_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	repo, err := storage.NewPostgresRepository(ctx, dsn, opts...)
	if err != nil {
		t.Fatalf("open postgres repository: %v", err)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse postgres config: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		t.Fatalf("open postgres pool: %v", err)
	}
	truncate := func() {
		if _, err := pool.Exec(context.Background(), "TRUNCATE TABLE users, videos"); err != nil {
			t.Fatalf("truncate tables: %v", err)
		}
	}
	truncate()
	t.Cleanup(func() {
		truncate()
		pool.Close()
		_ = repo.Close(context.Background())
	})
	return repo
}

func TestPostgresUserLifecycle(t *testing.T) {
	repo := postgresRepositoryFactory(t)
	ctx := context.Background()

	created, err := repo.CreateUser(ctx, storage.CreateUserParams{Email: "Alice@Example.com", Password: "secret-pass"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.Email != "alice@example.com" {
		t.Fatalf("email = %q, want normalized", created.Email)
	}

	if _, err := repo.CreateUser(ctx, storage.CreateUserParams{Email: "alice@example.com", Password: "other"}); !errors.Is(err, storage.ErrEmailInUse) {
		t.Fatalf("duplicate err = %v, want ErrEmailInUse", err)
	}

	authed, err := repo.AuthenticateUser(ctx, "alice@example.com", "secret-pass")
	if err != nil {
		t.Fatalf("AuthenticateUser: %v", err)
	}
	if authed.ID != created.ID {
		t.Fatalf("id = %s, want %s", authed.ID, created.ID)
	}

	if _, err := repo.AuthenticateUser(ctx, "alice@example.com", "wrong"); !errors.Is(err, storage.ErrInvalidCredentials) {
		t.Fatalf("bad password err = %v, want ErrInvalidCredentials", err)
	}
}

func TestPostgresVideoLifecycle(t *testing.T) {
	repo := postgresRepositoryFactory(t)
	ctx := context.Background()

	created, err := repo.CreateVideo(ctx, storage.CreateVideoParams{
		Title:        "clip",
		Description:  "desc",
		VideoURL:     "/Videos/Clip.MP4",
		ThumbnailURL: "/videos/clip.jpg",
	})
	if err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}

	byURL, err := repo.FindVideoByURL(ctx, "/videos/clip.mp4")
	if err != nil {
		t.Fatalf("FindVideoByURL: %v", err)
	}
	if byURL.ID != created.ID {
		t.Fatalf("id = %s, want %s", byURL.ID, created.ID)
	}

	title := "renamed"
	updated, err := repo.UpdateVideo(ctx, created.ID, storage.VideoUpdate{Title: &title})
	if err != nil {
		t.Fatalf("UpdateVideo: %v", err)
	}
	if updated.Title != "renamed" || updated.Description != "desc" {
		t.Fatalf("merge result = %q/%q", updated.Title, updated.Description)
	}

	videos, err := repo.ListVideos(ctx)
	if err != nil {
		t.Fatalf("ListVideos: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("len(videos) = %d, want 1", len(videos))
	}

	if err := repo.DeleteVideo(ctx, created.ID); err != nil {
		t.Fatalf("DeleteVideo: %v", err)
	}
	if _, err := repo.GetVideo(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetVideo after delete err = %v, want ErrNotFound", err)
	}
}
