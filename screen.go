package main

import (
	"context"
	"log/slog"

	"github.com/kylesnowschwartz/tail-runs/auth"
	"github.com/kylesnowschwartz/tail-runs/realtime"
	"github.com/kylesnowschwartz/tail-runs/runs"

	tea "charm.land/bubbletea/v2"
)

// runsPath is where run records live in the realtime database.
const runsPath = "/runs/"

// snapshotMsg carries a live-query snapshot. fetch identifies the
// subscription that produced it so snapshots from a superseded
// subscription are dropped.
type snapshotMsg struct {
	fetch int
	snap  realtime.Snapshot
}

// snapshotErrMsg reports a backend error on the subscription.
type snapshotErrMsg struct {
	fetch int
	err   error
}

// subscribedMsg reports the outcome of opening the subscription for fetch.
type subscribedMsg struct {
	fetch int
	sub   *realtime.Subscription
	err   error
}

// authStateMsg carries an auth-state emission for focus session `session`.
type authStateMsg struct {
	session int
	user    *auth.User
}

// runsScreen owns the runs list state and the two live resources behind it:
// the auth listener (one per focus session) and the data subscription (one
// per signed-in user within a session). enter and exit are the only ways
// those resources are acquired and released.
//
// All methods run on the Bubble Tea update goroutine and never block: the
// auth read and the subscribe call happen in commands.
type runsScreen struct {
	db   realtime.Database
	auth auth.Provider
	log  *slog.Logger

	focused bool
	session int // bumped on every enter and exit
	fetch   int // bumped on every subscription change

	user        *auth.User
	listener    *auth.Listener
	sub         *realtime.Subscription
	cancelFetch context.CancelFunc // non-nil while a subscription is open or opening

	resolved bool // the session's first auth state has arrived
	loaded   bool // the current fetch has settled: first snapshot or failure
	signedIn bool
	runs     []runs.Run
}

func newRunsScreen(db realtime.Database, provider auth.Provider, logger *slog.Logger) *runsScreen {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &runsScreen{
		db:   db,
		auth: provider,
		log:  logger.With("screen", "runs"),
		runs: []runs.Run{},
	}
}

// enter starts a focus session. Safe to call while already focused: the
// previous session's listener and subscription are released first, and
// anything they still deliver is ignored. The listener's first emission is
// the session's initial auth state; the fetch starts when it arrives.
func (s *runsScreen) enter() tea.Cmd {
	s.release()
	s.session++
	s.focused = true
	s.resolved = false
	s.log.Debug("focus gained", "session", s.session)

	s.listener = s.auth.Listen()
	return waitForAuthState(s.session, s.listener)
}

// ready reports whether the session has settled on something to show:
// signed out, or signed in with the first snapshot (or failure) handled.
func (s *runsScreen) ready() bool {
	return s.resolved && (s.user == nil || s.loaded)
}

// exit ends the focus session, releasing both the auth listener and the
// data subscription. State is kept so the last list stays on screen.
func (s *runsScreen) exit() {
	if !s.focused {
		return
	}
	s.release()
	s.session++
	s.fetch++
	s.focused = false
	s.log.Debug("focus lost", "session", s.session)
}

// release closes the live resources without touching state.
func (s *runsScreen) release() {
	s.closeSubscription()
	if s.listener != nil {
		s.listener.Close()
		s.listener = nil
	}
}

func (s *runsScreen) closeSubscription() {
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}
}

// fetchRuns points the screen at u: signed out clears the list and opens
// nothing; signed in returns a command opening a fresh subscription to the
// runs collection.
func (s *runsScreen) fetchRuns(u *auth.User) tea.Cmd {
	s.closeSubscription()
	s.fetch++

	prev := s.user
	s.user = u
	s.loaded = false
	if u == nil {
		s.signedIn = false
		s.runs = []runs.Run{}
		return nil
	}

	s.signedIn = true
	// A different user must never see the previous user's rows, even
	// before the first snapshot arrives.
	if prev == nil || prev.UID != u.UID {
		s.runs = []runs.Run{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelFetch = cancel
	return subscribe(ctx, s.fetch, s.db)
}

// handleSubscribed adopts the subscription opened for the current fetch.
// One that arrives after the fetch was superseded is closed unused.
func (s *runsScreen) handleSubscribed(msg subscribedMsg) tea.Cmd {
	if msg.fetch != s.fetch || s.cancelFetch == nil {
		if msg.sub != nil {
			msg.sub.Close()
		}
		return nil
	}
	if msg.err != nil {
		s.log.Error("subscribe failed", "path", runsPath, "err", msg.err)
		s.closeSubscription()
		s.loaded = true
		return nil
	}
	s.sub = msg.sub
	return waitForSnapshot(s.fetch, s.sub)
}

// handleSnapshot replaces the list with the user's runs from msg.
func (s *runsScreen) handleSnapshot(msg snapshotMsg) tea.Cmd {
	if msg.fetch != s.fetch || s.sub == nil || s.user == nil {
		return nil
	}
	s.runs = runs.ForUser(runs.DecodeSnapshot(msg.snap.Val()), s.user.UID)
	s.loaded = true
	return waitForSnapshot(s.fetch, s.sub)
}

// handleSnapshotErr logs a backend error. The list keeps its last state and
// the subscription keeps running.
func (s *runsScreen) handleSnapshotErr(msg snapshotErrMsg) tea.Cmd {
	if msg.fetch != s.fetch || s.sub == nil {
		return nil
	}
	s.log.Error("subscription error", "path", runsPath, "err", msg.err)
	return waitForSnapshot(s.fetch, s.sub)
}

// handleAuthState re-runs the fetch when the signed-in identity changed, or
// when a signed-in session has no subscription yet (its first emission).
func (s *runsScreen) handleAuthState(msg authStateMsg) tea.Cmd {
	if msg.session != s.session || s.listener == nil {
		return nil
	}
	first := !s.resolved
	s.resolved = true

	var fetchCmd tea.Cmd
	switch {
	case !sameIdentity(s.user, msg.user):
		s.log.Info("auth state changed", "signed_in", msg.user != nil)
		fetchCmd = s.fetchRuns(msg.user)
	case first:
		fetchCmd = s.fetchRuns(msg.user)
	}
	return tea.Batch(fetchCmd, waitForAuthState(s.session, s.listener))
}

func sameIdentity(a, b *auth.User) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UID == b.UID
}

// subscribe opens the runs subscription off the update goroutine. The
// subscription ends with ctx.
func subscribe(ctx context.Context, fetch int, db realtime.Database) tea.Cmd {
	return func() tea.Msg {
		sub, err := db.Subscribe(ctx, runsPath)
		return subscribedMsg{fetch: fetch, sub: sub, err: err}
	}
}

// waitForSnapshot blocks on the subscription and wraps the next snapshot or
// error for the Bubble Tea runtime. Returns nil once the subscription is
// closed, so the goroutine never outlives it.
func waitForSnapshot(fetch int, sub *realtime.Subscription) tea.Cmd {
	updates, errc := sub.Updates(), sub.Errors()
	return func() tea.Msg {
		select {
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			return snapshotMsg{fetch: fetch, snap: snap}
		case err, ok := <-errc:
			if !ok {
				return nil
			}
			return snapshotErrMsg{fetch: fetch, err: err}
		}
	}
}

// waitForAuthState blocks on the auth listener. Returns nil once the
// listener is closed.
func waitForAuthState(session int, l *auth.Listener) tea.Cmd {
	c := l.C()
	return func() tea.Msg {
		u, ok := <-c
		if !ok {
			return nil
		}
		return authStateMsg{session: session, user: u}
	}
}
