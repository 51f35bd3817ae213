// Package realtime provides live-query clients for a JSON tree database.
// A subscription delivers the full value at a path whenever it changes;
// consumers always get the latest snapshot, never a diff.
package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
)

// ErrClosed is returned by operations on a closed database.
var ErrClosed = errors.New("realtime: database closed")

// Database is the realtime data collaborator.
type Database interface {
	// Subscribe opens a live query at path. The first snapshot is delivered
	// as soon as it is read; later snapshots arrive on every change.
	Subscribe(ctx context.Context, path string) (*Subscription, error)
	// Push stores value under a new time-ordered child key of path and
	// returns the key.
	Push(ctx context.Context, path string, value any) (string, error)
}

// Snapshot is a point-in-time materialization of the value at Path.
type Snapshot struct {
	Path string
	raw  json.RawMessage
}

// NewSnapshot wraps a raw JSON value. A nil or "null" value is an absent
// snapshot.
func NewSnapshot(path string, raw json.RawMessage) Snapshot {
	return Snapshot{Path: CleanPath(path), raw: raw}
}

// Val returns the raw JSON value, or "null" when nothing is stored.
func (s Snapshot) Val() json.RawMessage {
	if !s.Exists() {
		return json.RawMessage("null")
	}
	return s.raw
}

// Exists reports whether the snapshot holds a value.
func (s Snapshot) Exists() bool {
	trimmed := bytes.TrimSpace(s.raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// CleanPath normalizes "/runs/", "runs" and "runs/" to "runs". The root is "".
func CleanPath(path string) string {
	parts := splitPath(path)
	return strings.Join(parts, "/")
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Subscription is a cancelable live query. Updates and Errors are closed
// once the subscription stops, so receivers never block forever.
type Subscription struct {
	path    string
	updates chan Snapshot
	errc    chan error
	done    chan struct{}

	once    sync.Once
	stopped chan struct{}
	cancel  func()
}

func newSubscription(path string, cancel func()) *Subscription {
	return &Subscription{
		path:    CleanPath(path),
		updates: make(chan Snapshot, 1),
		errc:    make(chan error, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		cancel:  cancel,
	}
}

// Path is the cleaned path this subscription watches.
func (s *Subscription) Path() string { return s.path }

// Updates delivers snapshots. Only the newest undelivered snapshot is kept.
func (s *Subscription) Updates() <-chan Snapshot { return s.updates }

// Errors delivers non-fatal backend errors. The subscription keeps running.
func (s *Subscription) Errors() <-chan error { return s.errc }

// Done is closed when Close is called.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close stops the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// publish does a latest-wins send: if a snapshot is still pending, it is
// replaced. Only the backend goroutine that owns the subscription calls it.
func (s *Subscription) publish(snap Snapshot) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.updates <- snap:
	default:
		select {
		case <-s.updates:
		default:
		}
		s.updates <- snap
	}
}

// fail forwards an error without blocking. Errors are dropped while one is
// already pending.
func (s *Subscription) fail(err error) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.errc <- err:
	default:
	}
}

// finish closes the delivery channels. Called once by the owning goroutine
// on exit.
func (s *Subscription) finish() {
	close(s.updates)
	close(s.errc)
	close(s.stopped)
}

// Stopped is closed after the backend goroutine has exited and the delivery
// channels are closed.
func (s *Subscription) Stopped() <-chan struct{} { return s.stopped }

// lookup walks a decoded JSON tree along parts. Missing children and
// non-object intermediate nodes yield nil.
func lookup(tree json.RawMessage, parts []string) json.RawMessage {
	node := tree
	for _, p := range parts {
		var children map[string]json.RawMessage
		if err := json.Unmarshal(node, &children); err != nil {
			return nil
		}
		child, ok := children[p]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

// setChild returns tree with value stored at parts+key. Intermediate nodes
// that are missing or not objects are replaced with objects.
func setChild(tree json.RawMessage, parts []string, key string, value json.RawMessage) (json.RawMessage, error) {
	if len(parts) == 0 {
		var children map[string]json.RawMessage
		if err := json.Unmarshal(tree, &children); err != nil || children == nil {
			children = make(map[string]json.RawMessage)
		}
		children[key] = value
		return json.Marshal(children)
	}

	var children map[string]json.RawMessage
	if err := json.Unmarshal(tree, &children); err != nil || children == nil {
		children = make(map[string]json.RawMessage)
	}
	updated, err := setChild(children[parts[0]], parts[1:], key, value)
	if err != nil {
		return nil, err
	}
	children[parts[0]] = updated
	return json.Marshal(children)
}
