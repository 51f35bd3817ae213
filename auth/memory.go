package auth

import "sync"

// Memory is an in-process Provider. SetUser switches identity and notifies
// listeners; tests use it in place of a real session store.
type Memory struct {
	mu        sync.Mutex
	user      *User
	listeners map[*Listener]struct{}
}

// NewMemory returns a provider with u signed in, or signed out when u is nil.
func NewMemory(u *User) *Memory {
	return &Memory{user: u, listeners: make(map[*Listener]struct{})}
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (m *Memory) CurrentUser() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyUser(m.user)
}

// SetUser changes the signed-in user. nil signs out. Listeners are only
// notified when the identity actually changes.
func (m *Memory) SetUser(u *User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sameUser(m.user, u) {
		return
	}
	m.user = copyUser(u)
	for l := range m.listeners {
		l.send(copyUser(m.user))
	}
}

// Listen registers a listener and emits the current state on it.
func (m *Memory) Listen() *Listener {
	m.mu.Lock()
	defer m.mu.Unlock()

	var l *Listener
	l = newListener(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.listeners[l]; ok {
			delete(m.listeners, l)
			l.finish()
		}
	})
	m.listeners[l] = struct{}{}
	l.send(copyUser(m.user))
	return l
}

// Listeners reports how many listeners are registered.
func (m *Memory) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
