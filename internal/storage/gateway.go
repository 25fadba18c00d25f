package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Opener produces a ready repository. It is invoked lazily on the first
// request that needs the datastore.
type Opener func(ctx context.Context) (Repository, error)

// Gateway hands out a shared Repository, opening it on first use. Concurrent
// first calls share a single in-flight open; a failed open is not cached, so
// the next call retries, while a successful open is reused for the process
// lifetime.
type Gateway struct {
	opener Opener

	mu     sync.RWMutex
	repo   Repository
	flight singleflight.Group
}

// NewGateway wraps the opener. The opener must not be nil.
func NewGateway(opener Opener) *Gateway {
	return &Gateway{opener: opener}
}

// Connect returns the cached repository, opening it if needed.
func (g *Gateway) Connect(ctx context.Context) (Repository, error) {
	if g == nil || g.opener == nil {
		return nil, errors.New("storage gateway not configured")
	}

	g.mu.RLock()
	repo := g.repo
	g.mu.RUnlock()
	if repo != nil {
		return repo, nil
	}

	result, err, _ := g.flight.Do("connect", func() (any, error) {
		g.mu.RLock()
		cached := g.repo
		g.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		opened, err := g.opener(ctx)
		if err != nil {
			return nil, fmt.Errorf("open repository: %w", err)
		}

		g.mu.Lock()
		g.repo = opened
		g.mu.Unlock()
		return opened, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(Repository), nil
}

// Close releases the cached repository if one was opened.
func (g *Gateway) Close(ctx context.Context) error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	repo := g.repo
	g.repo = nil
	g.mu.Unlock()
	if repo == nil {
		return nil
	}
	return repo.Close(ctx)
}
