// Package auth reports who is signed in and notifies on changes.
package auth

import (
	"errors"
	"sync"
)

var (
	// ErrNotSignedIn means no session exists.
	ErrNotSignedIn = errors.New("auth: not signed in")
	// ErrInvalidSession means a session exists but could not be trusted.
	ErrInvalidSession = errors.New("auth: invalid session")
)

// User is a signed-in identity.
type User struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
}

// Provider is the auth collaborator. CurrentUser returns nil when nobody is
// signed in and may block on verification. Listen never blocks: it emits
// the current state first, as soon as it is known, then every transition.
type Provider interface {
	CurrentUser() *User
	Listen() *Listener
}

// Listener delivers auth-state changes. A nil *User on C means signed out.
type Listener struct {
	c    chan *User
	done chan struct{}
	once sync.Once

	// Called once by Close; lets the provider drop the listener.
	release func()
}

func newListener(release func()) *Listener {
	return &Listener{
		c:       make(chan *User, 1),
		done:    make(chan struct{}),
		release: release,
	}
}

// C delivers the latest state. Closed after Close.
func (l *Listener) C() <-chan *User { return l.c }

// Close unregisters the listener. Safe to call more than once.
func (l *Listener) Close() {
	l.once.Do(func() {
		close(l.done)
		if l.release != nil {
			l.release()
		}
	})
}

// send delivers u, replacing any state the receiver has not read yet.
// The provider serializes calls to send and to finish.
func (l *Listener) send(u *User) {
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.c <- u:
	default:
		select {
		case <-l.c:
		default:
		}
		l.c <- u
	}
}

func (l *Listener) finish() {
	close(l.c)
}

// sameUser compares identities by UID; nil means signed out.
func sameUser(a, b *User) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UID == b.UID
}
