// ABOUTME: Named asset caches stored as subdirectories of a cache root
// ABOUTME: Lists, fills, reads and deletes caches; satisfies monitor.CacheStorage

package assetcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrInvalidName is returned for cache names that are not a single path element.
var ErrInvalidName = errors.New("invalid cache name")

// Dir is a set of named caches under one root directory.
type Dir struct {
	root string
}

// New returns a Dir rooted at root, creating it if needed.
func New(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating cache root: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the cache root directory.
func (d *Dir) Root() string { return d.root }

// Keys returns the cache names, sorted.
func (d *Dir) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("reading cache root: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a cache and everything in it. It reports false when the
// cache did not exist.
func (d *Dir) Delete(ctx context.Context, name string) (bool, error) {
	path, err := d.cachePath(name)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := os.RemoveAll(path); err != nil {
		return false, fmt.Errorf("removing cache %s: %w", name, err)
	}
	return true, nil
}

// Put stores body under key in the named cache, creating the cache.
func (d *Dir) Put(name, key string, body []byte) error {
	path, err := d.cachePath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("creating cache %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(path, entryName(key)), body, 0644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Get returns the body stored under key in the named cache.
func (d *Dir) Get(name, key string) ([]byte, bool, error) {
	path, err := d.cachePath(name)
	if err != nil {
		return nil, false, err
	}
	body, err := os.ReadFile(filepath.Join(path, entryName(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}
	return body, true, nil
}

func (d *Dir) cachePath(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(d.root, name), nil
}

// entryName maps a request key such as "/app.js?v=2" to a flat file name.
func entryName(key string) string {
	return url.PathEscape(key)
}
