package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirFetcher reads tiles from a directory tree. The request URL is the
// tile's path; relative paths are resolved against Root.
type DirFetcher struct {
	Root string
}

// NewDirFetcher creates a fetcher rooted at dir.
func NewDirFetcher(dir string) *DirFetcher {
	return &DirFetcher{Root: dir}
}

// Fetch reads the file named by req.URL.
func (d *DirFetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.FromSlash(req.URL)
	if !filepath.IsAbs(path) {
		path = filepath.Join(d.Root, path)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading tile %s: %w", path, err)
	}
	return data, nil
}
