// ABOUTME: JSON file implementation of the version Store
// ABOUTME: Optionally caches the parsed record and invalidates it via fsnotify

package versionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileOptions configures a FileStore.
type FileOptions struct {
	// Watch caches the parsed record and drops the cache whenever the file
	// changes on disk. Without it every Load reads the file.
	Watch  bool
	Logger *slog.Logger
}

// FileStore keeps the record in a version.json file.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu         sync.Mutex
	cached     *Record
	generation uint64

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewFileStore opens a file-backed store. The file does not need to exist
// yet; Load reports ErrUnavailable until it does.
func NewFileStore(path string, opts FileOptions) (*FileStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &FileStore{
		path:   path,
		logger: logger.With("component", "versionstore", "path", path),
		done:   make(chan struct{}),
	}

	if opts.Watch {
		if err := s.startWatch(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// startWatch watches the parent directory so atomic renames are observed.
func (s *FileStore) startWatch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		_ = w.Close()
		return fmt.Errorf("creating store directory: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	s.watcher = w
	s.wg.Add(1)
	go s.watchLoop()
	return nil
}

func (s *FileStore) watchLoop() {
	defer s.wg.Done()
	name := filepath.Clean(s.path)

	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			s.logger.Debug("version file changed", "op", ev.Op.String())
			s.invalidate()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("file watcher error", "error", err)
			s.invalidate()
		}
	}
}

func (s *FileStore) invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.generation++
	s.mu.Unlock()
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.mu.Lock()
	if s.cached != nil {
		rec := s.cached.Clone()
		s.mu.Unlock()
		return rec, nil
	}
	gen := s.generation
	s.mu.Unlock()

	rec, err := readRecordFile(s.path)
	if err != nil {
		return nil, err
	}

	if s.watcher != nil {
		s.mu.Lock()
		if s.generation == gen {
			s.cached = rec.Clone()
		}
		s.mu.Unlock()
	}
	return rec, nil
}

func readRecordFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrUnavailable, path, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrUnavailable, path, err)
	}
	return &rec, nil
}

// Save implements Store. The file is replaced atomically.
func (s *FileStore) Save(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := rec.Clone()
	if out.Changelog == nil {
		out.Changelog = []ChangelogEntry{}
	}
	out.normalize()

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding version record: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".version-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}

	s.invalidate()
	return nil
}

// Close stops the watcher, if any. It is safe to call more than once.
func (s *FileStore) Close() error {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return nil
	default:
		close(s.done)
	}
	s.mu.Unlock()

	var err error
	if s.watcher != nil {
		err = s.watcher.Close()
	}
	s.wg.Wait()
	return err
}
