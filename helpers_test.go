package main

import (
	"testing"
	"time"

	"github.com/kylesnowschwartz/tail-runs/auth"
	"github.com/kylesnowschwartz/tail-runs/realtime"
	"github.com/kylesnowschwartz/tail-runs/runs"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
)

// key constructs a tea.KeyPressMsg from a string like "j", "enter", "ctrl+c".
// Single-character strings become printable keys; named keys get their
// corresponding key code.
func key(s string) tea.KeyPressMsg {
	switch s {
	case "enter":
		return tea.KeyPressMsg{Code: tea.KeyEnter}
	case "esc", "escape":
		return tea.KeyPressMsg{Code: tea.KeyEscape}
	case "backspace":
		return tea.KeyPressMsg{Code: tea.KeyBackspace}
	case "up":
		return tea.KeyPressMsg{Code: tea.KeyUp}
	case "down":
		return tea.KeyPressMsg{Code: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl}
	case "ctrl+d":
		return tea.KeyPressMsg{Code: 'd', Mod: tea.ModCtrl}
	case "ctrl+u":
		return tea.KeyPressMsg{Code: 'u', Mod: tea.ModCtrl}
	default:
		return tea.KeyPressMsg{Code: []rune(s)[0], Text: s}
	}
}

// asModel extracts the model from an Update return value.
// Panics when the type assertion fails, which is a test bug.
func asModel(t tea.Model) model {
	return t.(model)
}

// isQuit returns true when cmd is the Quit command.
func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

// plain strips ANSI styling so assertions can match visible text.
func plain(s string) string {
	return ansi.Strip(s)
}

var (
	alice = auth.User{UID: "alice", Email: "alice@example.com"}
	bob   = auth.User{UID: "bob"}
)

// aliceRun, bobRun build records with sensible defaults.
func aliceRun(date string, km float64) runs.Run {
	return runs.Run{UserID: alice.UID, Date: runs.Text(date), Distance: runs.Number(km), Duration: runs.Text("30:00"), AverageSpeed: runs.Number(10)}
}

func bobRun(date string, km float64) runs.Run {
	return runs.Run{UserID: bob.UID, Date: runs.Text(date), Distance: runs.Number(km), Duration: runs.Text("45:00"), AverageSpeed: runs.Number(12)}
}

// fixture bundles a model with the fakes behind it. Commands started with
// run execute on their own goroutines like under the Bubble Tea runtime;
// their messages queue on msgs until a wait helper feeds them to Update.
type fixture struct {
	t    *testing.T
	db   *realtime.MemoryDB
	auth *auth.Memory
	m    model
	msgs chan tea.Msg
	done chan struct{}
}

// newFixture returns an unfocused model over in-memory backends with u
// signed in (nil for signed out), width=100 and height=40.
func newFixture(t *testing.T, u *auth.User, seed ...runs.Run) *fixture {
	t.Helper()
	db := realtime.NewMemory()
	t.Cleanup(db.Close)
	for i, r := range seed {
		if err := db.Set(runsPath+seedKey(i), r); err != nil {
			t.Fatal(err)
		}
	}
	provider := auth.NewMemory(u)
	m := initialModel(newRunsScreen(db, provider, nil), true)
	m.width = 100
	m.height = 40
	f := &fixture{t: t, db: db, auth: provider, m: m, msgs: make(chan tea.Msg, 64), done: make(chan struct{})}
	t.Cleanup(func() {
		f.m.screen.exit()
		close(f.done)
	})
	return f
}

// seedKey gives seeded records deterministic, ordered keys.
func seedKey(i int) string {
	return "k" + string(rune('a'+i))
}

// run starts cmd in the background, flattening batches.
func (f *fixture) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() {
		msg := cmd()
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, c := range batch {
				f.run(c)
			}
			return
		}
		if msg == nil {
			return
		}
		select {
		case f.msgs <- msg:
		case <-f.done:
		}
	}()
}

// dispatch feeds msg through Update and starts the command it returns.
func (f *fixture) dispatch(msg tea.Msg) {
	f.run(f.send(msg))
}

// until feeds queued messages through Update until cond holds.
func (f *fixture) until(t *testing.T, what string, cond func() bool) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for !cond() {
		select {
		case msg := <-f.msgs:
			f.dispatch(msg)
		case <-timeout:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

// await feeds queued messages through Update up to and including the first
// one match accepts.
func (f *fixture) await(t *testing.T, what string, match func(tea.Msg) bool) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case msg := <-f.msgs:
			f.dispatch(msg)
			if match(msg) {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

// enter runs Init and waits for the session to settle: the first auth state
// handled and, when signed in, the subscription open.
func (f *fixture) enter() {
	f.t.Helper()
	f.run(f.m.Init())
	f.settle(f.t)
}

// settle waits until the focused screen has resolved auth and holds the
// subscription it needs.
func (f *fixture) settle(t *testing.T) {
	t.Helper()
	s := f.m.screen
	f.until(t, "screen to settle", func() bool {
		return s.resolved && (s.user == nil || s.sub != nil)
	})
}

// deliverSnapshot feeds queued messages through Update up to the current
// subscription's next snapshot.
func (f *fixture) deliverSnapshot(t *testing.T) {
	t.Helper()
	f.await(t, "snapshot", func(msg tea.Msg) bool {
		snap, ok := msg.(snapshotMsg)
		return ok && snap.fetch == f.m.screen.fetch
	})
}

// deliverAuth feeds queued messages through Update up to the current
// session's next auth state.
func (f *fixture) deliverAuth(t *testing.T) {
	t.Helper()
	f.await(t, "auth state", func(msg tea.Msg) bool {
		state, ok := msg.(authStateMsg)
		return ok && state.session == f.m.screen.session
	})
}

// currentSnapshot reads the runs collection through a subscription of its
// own, leaving the screen's untouched.
func currentSnapshot(t *testing.T, db *realtime.MemoryDB) realtime.Snapshot {
	t.Helper()
	sub, err := db.Subscribe(t.Context(), runsPath)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	select {
	case snap := <-sub.Updates():
		return snap
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return realtime.Snapshot{}
	}
}

// send feeds msg through Update and returns the command.
func (f *fixture) send(msg tea.Msg) tea.Cmd {
	result, cmd := f.m.Update(msg)
	f.m = asModel(result)
	return cmd
}

// view renders the current frame without styling.
func (f *fixture) view() string {
	return plain(f.m.render())
}
