package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/fsnotify/fsnotify"
)

const (
	// sessionDebounce coalesces the create/write/rename burst of a session
	// rewrite into one re-read.
	sessionDebounce = 100 * time.Millisecond

	// sessionRecheck re-evaluates the session periodically so an expiring
	// id_token signs the user out without any file event.
	sessionRecheck = time.Minute

	verifyTimeout = 10 * time.Second
)

// Session is the on-disk sign-in record.
type Session struct {
	UID        string    `json:"uid,omitempty"`
	Email      string    `json:"email,omitempty"`
	IDToken    string    `json:"id_token,omitempty"`
	SignedInAt time.Time `json:"signed_in_at"`
}

// SessionStore is a Provider backed by a session file. With a verifier set,
// only sessions carrying a valid id_token count, and the user id is the
// token subject. Without one, the stored uid is trusted as-is.
type SessionStore struct {
	path     string
	verifier *oidc.IDTokenVerifier
	log      *slog.Logger
	debounce time.Duration
	recheck  time.Duration

	mu        sync.Mutex
	listeners map[*Listener]struct{}
	last      *User
	resolved  bool          // last holds the watch's first read
	stop      chan struct{} // non-nil while the watch goroutine runs
}

// NewSessionStore returns a store for the session file at path. verifier
// may be nil.
func NewSessionStore(path string, verifier *oidc.IDTokenVerifier, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &SessionStore{
		path:      path,
		verifier:  verifier,
		log:       logger.With("component", "session", "path", path),
		debounce:  sessionDebounce,
		recheck:   sessionRecheck,
		listeners: make(map[*Listener]struct{}),
	}
}

// NewOIDCVerifier discovers issuerURL and returns an id_token verifier for
// clientID.
func NewOIDCVerifier(ctx context.Context, issuerURL, clientID string) (*oidc.IDTokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}
	return provider.Verifier(&oidc.Config{ClientID: clientID}), nil
}

// Path is the absolute session file path.
func (s *SessionStore) Path() string { return s.path }

// Load reads and validates the session. It returns ErrNotSignedIn when no
// session exists and wraps ErrInvalidSession when one cannot be trusted.
func (s *SessionStore) Load(ctx context.Context) (*User, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotSignedIn
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	if s.verifier == nil {
		if strings.TrimSpace(sess.UID) == "" {
			return nil, fmt.Errorf("%w: missing uid", ErrInvalidSession)
		}
		return &User{UID: sess.UID, Email: sess.Email}, nil
	}

	if sess.IDToken == "" {
		return nil, fmt.Errorf("%w: missing id_token", ErrInvalidSession)
	}
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()
	tok, err := s.verifier.Verify(ctx, sess.IDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	var claims struct {
		Email             string `json:"email"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := tok.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	email := claims.Email
	if email == "" {
		email = claims.PreferredUsername
	}
	return &User{UID: tok.Subject, Email: email}, nil
}

// CurrentUser returns the signed-in user, or nil. Invalid sessions are
// logged and treated as signed out.
func (s *SessionStore) CurrentUser() *User {
	u, err := s.Load(context.Background())
	if err != nil {
		if !errors.Is(err, ErrNotSignedIn) {
			s.log.Warn("session rejected", "err", err)
		}
		return nil
	}
	return u
}

// SignIn writes sess to disk, replacing any previous session.
func (s *SessionStore) SignIn(sess Session) error {
	if sess.UID == "" && sess.IDToken == "" {
		return fmt.Errorf("%w: need a uid or an id_token", ErrInvalidSession)
	}
	if sess.SignedInAt.IsZero() {
		sess.SignedInAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp session: %w", err)
	}
	tmpName := tmp.Name()
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing session: %w", errors.Join(werr, cerr))
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing session: %w", err)
	}
	return nil
}

// SignOut removes the session. Signing out twice is not an error.
func (s *SessionStore) SignOut() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}

// Listen registers a listener without touching the session file: the
// current state is read, and verified, once by the watch goroutine and
// shared with every listener. The watch runs while at least one listener is
// registered.
func (s *SessionStore) Listen() *Listener {
	s.mu.Lock()
	defer s.mu.Unlock()

	var l *Listener
	l = newListener(func() { s.unlisten(l) })
	s.listeners[l] = struct{}{}

	if s.stop != nil {
		if s.resolved {
			l.send(copyUser(s.last))
		}
		return l
	}
	s.stop = make(chan struct{})
	go s.watch(s.stop)
	return l
}

func (s *SessionStore) unlisten(l *Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listeners[l]; !ok {
		return
	}
	delete(s.listeners, l)
	l.finish()
	if len(s.listeners) == 0 && s.stop != nil {
		close(s.stop)
		s.stop = nil
		s.resolved = false
		s.last = nil
	}
}

// newWatcher watches the session file's directory. The file itself may not
// exist yet, and rewrites replace it by rename.
func (s *SessionStore) newWatcher() (*fsnotify.Watcher, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating session dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	return watcher, nil
}

// watch publishes the initial state, then re-reads the session on file
// events and on a periodic recheck, notifying listeners on identity changes.
func (s *SessionStore) watch(stop <-chan struct{}) {
	// The watcher goes first so a rewrite during the initial read is not
	// missed.
	watcher, err := s.newWatcher()
	if err != nil {
		s.log.Error("session watch unavailable", "err", err)
	}
	s.publish(stop, true)
	if watcher == nil {
		// Listeners keep the initial state; they just won't see later
		// changes.
		return
	}
	defer watcher.Close()

	signals := make(chan struct{}, 1)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	recheck := time.NewTicker(s.recheck)
	defer recheck.Stop()

	for {
		select {
		case <-stop:
			return
		case <-signals:
			s.publish(stop, false)
		case <-recheck.C:
			s.publish(stop, false)
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(s.debounce, func() {
				select {
				case signals <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("session watch error", "err", err)
		}
	}
}

// publish re-reads the session and broadcasts it: always when initial,
// otherwise only when the identity changed. A watch that was stopped while
// reading publishes nothing.
func (s *SessionStore) publish(stop <-chan struct{}, initial bool) {
	current := s.CurrentUser()

	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-stop:
		return
	default:
	}
	if !initial && sameUser(s.last, current) {
		return
	}
	if !initial {
		s.log.Info("auth state changed", "signed_in", current != nil)
	}
	s.last = current
	s.resolved = true
	for l := range s.listeners {
		l.send(copyUser(current))
	}
}
