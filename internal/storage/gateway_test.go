package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

func TestGatewayOpensOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	var opens atomic.Int32
	gateway := NewGateway(func(ctx context.Context) (Repository, error) {
		opens.Add(1)
		return NewJSONRepository(path)
	})

	var wg sync.WaitGroup
	repos := make([]Repository, 8)
	for i := range repos {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			repo, err := gateway.Connect(context.Background())
			if err != nil {
				t.Errorf("Connect: %v", err)
				return
			}
			repos[i] = repo
		}(i)
	}
	wg.Wait()

	if got := opens.Load(); got != 1 {
		t.Fatalf("opener calls = %d, want 1", got)
	}
	for i, repo := range repos {
		if repo != repos[0] {
			t.Fatalf("repos[%d] differs from repos[0]; Connect must return the shared handle", i)
		}
	}
}

func TestGatewayRetriesAfterFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	var calls atomic.Int32
	gateway := NewGateway(func(ctx context.Context) (Repository, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("connection refused")
		}
		return NewJSONRepository(path)
	})

	if _, err := gateway.Connect(context.Background()); err == nil {
		t.Fatalf("first Connect succeeded, want failure")
	}
	repo, err := gateway.Connect(context.Background())
	if err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	if repo == nil {
		t.Fatalf("second Connect returned nil repository")
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("opener calls = %d, want 2", got)
	}
}

func TestGatewayNotConfigured(t *testing.T) {
	var gateway *Gateway
	if _, err := gateway.Connect(context.Background()); err == nil {
		t.Fatalf("nil gateway Connect succeeded")
	}
	if _, err := NewGateway(nil).Connect(context.Background()); err == nil {
		t.Fatalf("nil opener Connect succeeded")
	}
}

func TestGatewayCloseReleasesHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	var opens atomic.Int32
	gateway := NewGateway(func(ctx context.Context) (Repository, error) {
		opens.Add(1)
		return NewJSONRepository(path)
	})

	if _, err := gateway.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := gateway.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := gateway.Connect(context.Background()); err != nil {
		t.Fatalf("Connect after Close: %v", err)
	}
	if got := opens.Load(); got != 2 {
		t.Fatalf("opener calls = %d, want reopen after Close", got)
	}
}
