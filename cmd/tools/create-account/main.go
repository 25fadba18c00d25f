// Command create-account seeds an account in the datastore, useful before a
// frontend exists or when provisioning test environments.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"reelshare/internal/storage"
)

func main() {
	var (
		jsonPath    string
		postgresDSN string
		email       string
		password    string
	)

	flag.StringVar(&jsonPath, "json", "", "Path to the JSON datastore (store.json)")
	flag.StringVar(&postgresDSN, "postgres-dsn", "", "Postgres connection string")
	flag.StringVar(&email, "email", "", "Email address for the account")
	flag.StringVar(&password, "password", "", "Password for the account")
	flag.Parse()

	if jsonPath == "" && postgresDSN == "" {
		fatalf("either --json or --postgres-dsn must be provided")
	}
	if jsonPath != "" && postgresDSN != "" {
		fatalf("only one datastore option may be provided")
	}
	if strings.TrimSpace(email) == "" {
		fatalf("--email is required")
	}
	if len(password) < 8 {
		fatalf("--password must be at least 8 characters")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := openRepository(ctx, jsonPath, postgresDSN)
	if err != nil {
		fatalf("open datastore: %v", err)
	}
	defer func() {
		_ = repo.Close(context.Background())
	}()

	user, err := repo.CreateUser(ctx, storage.CreateUserParams{
		Email:    email,
		Password: password,
	})
	if err != nil {
		if errors.Is(err, storage.ErrEmailInUse) {
			fatalf("account %s already exists", strings.ToLower(strings.TrimSpace(email)))
		}
		fatalf("create account: %v", err)
	}

	fmt.Printf("Account %s (%s) created successfully.\n", user.Email, user.ID)
	fmt.Println("Remember to rotate this password after the first login.")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func openRepository(ctx context.Context, jsonPath, postgresDSN string) (storage.Repository, error) {
	if jsonPath != "" {
		return storage.NewJSONRepository(jsonPath)
	}
	return storage.NewPostgresRepository(ctx, postgresDSN)
}
