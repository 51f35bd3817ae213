package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// fileDebounce coalesces bursts of write events (temp file create, rename,
// chmod) into a single re-read.
const fileDebounce = 150 * time.Millisecond

// FileDB is a realtime database backed by a single JSON document on disk.
// Any process that rewrites the document (including Push from another
// tail-runs process) triggers fresh snapshots for every subscriber.
type FileDB struct {
	path     string
	debounce time.Duration
	log      *slog.Logger

	// Serializes read-modify-write cycles from this process.
	mu sync.Mutex
}

// OpenFile returns a FileDB for the document at path, creating its parent
// directory. The document itself is created lazily by the first Push.
func OpenFile(path string, logger *slog.Logger) (*FileDB, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FileDB{
		path:     abs,
		debounce: fileDebounce,
		log:      logger.With("backend", "file", "path", abs),
	}, nil
}

// Path is the absolute path of the backing document.
func (db *FileDB) Path() string { return db.path }

// Subscribe watches the document and publishes the value at path on every
// change. The watch goroutine exits when ctx is cancelled or the
// subscription is closed.
func (db *FileDB) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	// Watch the directory, not the file: atomic renames replace the inode
	// and a file watch would go deaf after the first write.
	if err := watcher.Add(filepath.Dir(db.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(db.path), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := newSubscription(path, cancel)
	go db.watch(ctx, sub, watcher)
	return sub, nil
}

// watch owns sub's delivery channels. All reads happen on this goroutine;
// the debounce timer only sends a signal.
func (db *FileDB) watch(ctx context.Context, sub *Subscription, watcher *fsnotify.Watcher) {
	defer sub.finish()
	defer watcher.Close()

	parts := splitPath(sub.path)
	signals := make(chan struct{}, 1)
	signal := func() {
		select {
		case signals <- struct{}{}:
		default:
		}
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	var last json.RawMessage
	first := true
	emit := func() {
		value, err := db.readAt(parts)
		if err != nil {
			db.log.Warn("snapshot read failed", "sub", sub.path, "err", err)
			sub.fail(err)
			return
		}
		if !first && bytes.Equal(last, value) {
			return
		}
		first = false
		last = value
		sub.publish(NewSnapshot(sub.path, value))
	}

	emit()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case <-signals:
			emit()
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != db.path {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(db.debounce, signal)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			sub.fail(err)
		}
	}
}

// readAt loads the document and returns the value at parts. A missing
// document reads as null.
func (db *FileDB) readAt(parts []string) (json.RawMessage, error) {
	data, err := os.ReadFile(db.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", db.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("document %s is not valid JSON", db.path)
	}
	return lookup(data, parts), nil
}

// Push stores value under a fresh key below path and rewrites the document
// atomically.
func (db *FileDB) Push(ctx context.Context, path string, value any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encoding value: %w", err)
	}
	key, err := newPushKey()
	if err != nil {
		return "", err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	doc, err := os.ReadFile(db.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("reading %s: %w", db.path, err)
	}
	updated, err := setChild(doc, splitPath(path), key, encoded)
	if err != nil {
		return "", fmt.Errorf("updating document: %w", err)
	}
	if err := writeAtomic(db.path, updated); err != nil {
		return "", err
	}
	db.log.Debug("pushed", "key", key, "parent", CleanPath(path))
	return key, nil
}

// writeAtomic writes data to a temp file next to path and renames it over
// path, so readers never observe a partial document.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tail-runs-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
