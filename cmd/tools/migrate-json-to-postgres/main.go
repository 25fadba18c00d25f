// Command migrate-json-to-postgres copies stored data from the JSON datastore
// into Postgres.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"reelshare/internal/storage"
)

func main() {
	jsonPath := flag.String("json", "data/store.json", "path to the JSON datastore to migrate")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	dsn := strings.TrimSpace(*postgresDSN)
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("REELSHARE_POSTGRES_DSN"))
	}
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		logger.Error("postgres DSN required", "hint", "set --postgres-dsn, REELSHARE_POSTGRES_DSN, or DATABASE_URL")
		os.Exit(1)
	}

	store, err := storage.NewStorage(*jsonPath)
	if err != nil {
		logger.Error("failed to open JSON datastore", "error", err)
		os.Exit(1)
	}
	snapshot := store.Snapshot()
	logger.Info("loaded JSON snapshot", "path", *jsonPath, "users", len(snapshot.Users), "videos", len(snapshot.Videos))

	ctx := context.Background()
	repo, err := storage.NewPostgresRepository(ctx, dsn)
	if err != nil {
		logger.Error("failed to open postgres repository", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = repo.Close(context.Background())
	}()

	importer, ok := repo.(storage.SnapshotImporter)
	if !ok {
		logger.Error("postgres repository does not support snapshot import")
		os.Exit(1)
	}
	if err := importer.ImportSnapshot(ctx, snapshot); err != nil {
		logger.Error("failed to import snapshot", "error", err)
		os.Exit(1)
	}

	if err := verifyCounts(ctx, dsn, len(snapshot.Users), len(snapshot.Videos)); err != nil {
		logger.Error("verification failed", "error", err)
		os.Exit(1)
	}

	logger.Info("migration completed", "users", len(snapshot.Users), "videos", len(snapshot.Videos))
}

func verifyCounts(ctx context.Context, dsn string, users, videos int) error {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse verification config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open verification connection: %w", err)
	}
	defer pool.Close()

	checks := []struct {
		name     string
		query    string
		expected int
	}{
		{"users", "SELECT COUNT(*) FROM users", users},
		{"videos", "SELECT COUNT(*) FROM videos", videos},
	}

	for _, check := range checks {
		var actual int
		if err := pool.QueryRow(ctx, check.query).Scan(&actual); err != nil {
			return fmt.Errorf("query %s: %w", check.name, err)
		}
		if actual < check.expected {
			return fmt.Errorf("mismatch for %s: expected at least %d, got %d", check.name, check.expected, actual)
		}
	}
	return nil
}
