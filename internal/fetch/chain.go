package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
)

// Chain searches several tile stores.
// Stores are searched in reverse order (last added = highest priority).
type Chain struct {
	fetchers []Fetcher
	mu       sync.RWMutex
}

// NewChain creates a chain over the given stores.
func NewChain(fetchers ...Fetcher) *Chain {
	return &Chain{fetchers: fetchers}
}

// Add appends a store with the highest priority.
func (c *Chain) Add(f Fetcher) {
	c.mu.Lock()
	c.fetchers = append(c.fetchers, f)
	c.mu.Unlock()
}

// Len returns the number of stores.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.fetchers)
}

// Fetch returns the first store's hit. ErrNotFound from one store moves the
// search on; any other error stops it.
func (c *Chain) Fetch(ctx context.Context, req Request) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := len(c.fetchers) - 1; i >= 0; i-- {
		data, err := c.fetchers[i].Fetch(ctx, req)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, req.URL)
}

// Close closes every store that holds resources.
func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	for _, f := range c.fetchers {
		if closer, ok := f.(io.Closer); ok {
			err = multierr.Append(err, closer.Close())
		}
	}
	c.fetchers = nil
	return err
}
