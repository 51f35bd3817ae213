package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryDB is an in-process Database. Used by tests and the demo mode.
type MemoryDB struct {
	mu     sync.Mutex
	tree   json.RawMessage
	subs   map[*Subscription]struct{}
	closed bool
}

// NewMemory returns an empty in-memory database.
func NewMemory() *MemoryDB {
	return &MemoryDB{subs: make(map[*Subscription]struct{})}
}

// Subscribe delivers the current value at path immediately, then again on
// every Set or Push that touches it.
func (db *MemoryDB) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, ErrClosed
	}

	var sub *Subscription
	sub = newSubscription(path, func() { db.remove(sub) })
	db.subs[sub] = struct{}{}
	sub.publish(NewSnapshot(sub.path, lookup(db.tree, splitPath(sub.path))))

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				sub.Close()
			case <-sub.done:
			}
		}()
	}
	return sub, nil
}

func (db *MemoryDB) remove(sub *Subscription) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.subs[sub]; !ok {
		return
	}
	delete(db.subs, sub)
	sub.finish()
}

// Set replaces the value at path. value is marshaled to JSON; nil stores null.
func (db *MemoryDB) Set(path string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	parts := splitPath(path)
	if len(parts) == 0 {
		db.tree = encoded
	} else {
		updated, err := setChild(db.tree, parts[:len(parts)-1], parts[len(parts)-1], encoded)
		if err != nil {
			return err
		}
		db.tree = updated
	}
	db.broadcast()
	return nil
}

// Push stores value under a fresh key below path.
func (db *MemoryDB) Push(ctx context.Context, path string, value any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := newPushKey()
	if err != nil {
		return "", err
	}
	if err := db.Set(CleanPath(path)+"/"+key, value); err != nil {
		return "", err
	}
	return key, nil
}

// Fail sends err to every subscriber of path. Lets tests exercise backend
// error delivery.
func (db *MemoryDB) Fail(path string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	want := CleanPath(path)
	for sub := range db.subs {
		if sub.path == want {
			sub.fail(err)
		}
	}
}

// Subscribers reports the number of open subscriptions.
func (db *MemoryDB) Subscribers() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.subs)
}

// Close ends every subscription and rejects further use.
func (db *MemoryDB) Close() {
	db.mu.Lock()
	subs := make([]*Subscription, 0, len(db.subs))
	for sub := range db.subs {
		subs = append(subs, sub)
	}
	db.closed = true
	db.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

// broadcast publishes fresh snapshots to all subscribers. Caller holds mu.
func (db *MemoryDB) broadcast() {
	for sub := range db.subs {
		sub.publish(NewSnapshot(sub.path, lookup(db.tree, splitPath(sub.path))))
	}
}
