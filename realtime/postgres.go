package realtime

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// notifyChannel is the LISTEN/NOTIFY channel the change trigger publishes on.
// Payload is the parent path of the changed row.
const notifyChannel = "realtime_nodes"

const schema = `
CREATE TABLE IF NOT EXISTS realtime_nodes (
	parent     TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (parent, key)
);

CREATE OR REPLACE FUNCTION realtime_nodes_notify() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('realtime_nodes', COALESCE(NEW.parent, OLD.parent));
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS realtime_nodes_changed ON realtime_nodes;
CREATE TRIGGER realtime_nodes_changed
	AFTER INSERT OR UPDATE OR DELETE ON realtime_nodes
	FOR EACH ROW EXECUTE FUNCTION realtime_nodes_notify();
`

// snapshotQuery folds a parent's children into one JSON object, or null
// when there are none.
const snapshotQuery = `
SELECT COALESCE(jsonb_object_agg(key, value ORDER BY key), 'null'::jsonb)
FROM realtime_nodes
WHERE parent = $1`

const pushQuery = `
INSERT INTO realtime_nodes (parent, key, value) VALUES ($1, $2, $3)
ON CONFLICT (parent, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

// PostgresDB stores one level of children per parent path in Postgres and
// streams changes with LISTEN/NOTIFY. Only direct children of a subscribed
// path are materialized, which is all the runs screen reads.
type PostgresDB struct {
	db      *sql.DB
	connStr string
	log     *slog.Logger

	minReconnect time.Duration
	maxReconnect time.Duration
}

// OpenPostgres connects, verifies the connection and installs the schema.
func OpenPostgres(ctx context.Context, connStr string, logger *slog.Logger) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("installing schema: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PostgresDB{
		db:           db,
		connStr:      connStr,
		log:          logger.With("backend", "postgres"),
		minReconnect: 2 * time.Second,
		maxReconnect: time.Minute,
	}, nil
}

// Close releases the connection pool.
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

// Subscribe opens a dedicated listener connection and re-queries path
// whenever a notification for it arrives or the listener reconnects.
func (p *PostgresDB) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := newSubscription(path, cancel)

	// The callback runs on pq's goroutine; it only hands events to watch,
	// which owns the subscription's channels.
	events := make(chan listenerEvent, 4)
	listener := pq.NewListener(p.connStr, p.minReconnect, p.maxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				p.log.Warn("listener event", "event", listenerEventName(ev), "err", err)
			}
			select {
			case events <- listenerEvent{typ: ev, err: err}:
			default:
			}
		})
	if err := listener.Listen(notifyChannel); err != nil {
		listener.Close()
		cancel()
		return nil, fmt.Errorf("listening on %s: %w", notifyChannel, err)
	}

	go p.watch(ctx, sub, listener, events)
	return sub, nil
}

type listenerEvent struct {
	typ pq.ListenerEventType
	err error
}

func (p *PostgresDB) watch(ctx context.Context, sub *Subscription, listener *pq.Listener, events <-chan listenerEvent) {
	defer sub.finish()
	defer listener.Close()

	emit := func() {
		value, err := p.snapshot(ctx, sub.path)
		if err != nil {
			if ctx.Err() == nil {
				sub.fail(err)
			}
			return
		}
		sub.publish(NewSnapshot(sub.path, value))
	}

	emit()

	// Ping periodically so a silently dead connection is noticed.
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case n := <-listener.Notify:
			// nil means the connection was re-established and notifications
			// may have been missed.
			if n == nil || n.Extra == sub.path {
				emit()
			}
		case ev := <-events:
			if ev.err != nil {
				sub.fail(ev.err)
			}
			if ev.typ == pq.ListenerEventReconnected {
				emit()
			}
		case <-ping.C:
			go func() {
				if err := listener.Ping(); err != nil {
					p.log.Debug("listener ping failed", "err", err)
				}
			}()
		}
	}
}

func (p *PostgresDB) snapshot(ctx context.Context, parent string) (json.RawMessage, error) {
	var raw []byte
	if err := p.db.QueryRowContext(ctx, snapshotQuery, parent).Scan(&raw); err != nil {
		return nil, fmt.Errorf("querying %q: %w", parent, err)
	}
	return json.RawMessage(raw), nil
}

// Push inserts value as a new child of path. The trigger notifies every
// subscriber of path, including this process's own.
func (p *PostgresDB) Push(ctx context.Context, path string, value any) (string, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encoding value: %w", err)
	}
	key, err := newPushKey()
	if err != nil {
		return "", err
	}
	if _, err := p.db.ExecContext(ctx, pushQuery, CleanPath(path), key, string(encoded)); err != nil {
		return "", fmt.Errorf("inserting %s/%s: %w", CleanPath(path), key, err)
	}
	return key, nil
}

func listenerEventName(ev pq.ListenerEventType) string {
	switch ev {
	case pq.ListenerEventConnected:
		return "connected"
	case pq.ListenerEventDisconnected:
		return "disconnected"
	case pq.ListenerEventReconnected:
		return "reconnected"
	case pq.ListenerEventConnectionAttemptFailed:
		return "connection_attempt_failed"
	default:
		return "unknown"
	}
}
