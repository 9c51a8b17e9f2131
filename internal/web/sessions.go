package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/snapgram/internal/client/store"
	"github.com/dmitrijs2005/snapgram/internal/logging"
	"github.com/dmitrijs2005/snapgram/internal/notify"
	"github.com/google/uuid"
)

const (
	sessionCookieName  = "session_id"
	defaultIdleTimeout = 30 * time.Minute
	defaultSweepEvery  = time.Minute
)

// Session is the per-browser context: its own store, its own backend
// session and its own toast channel.
type Session struct {
	ID     string
	Store  *store.AuthStore
	Toasts *notify.Hub
	closer io.Closer

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close drops the store's subscriptions, waits for its background tasks and
// releases the backend client.
func (s *Session) Close() error {
	s.Store.Close()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// SessionFactory builds a fresh session for a new browser.
type SessionFactory func(ctx context.Context, id string) (*Session, error)

type sessionKey struct{}

// SessionFromContext returns the session the registry middleware attached.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok
}

// Registry maps session cookies to live sessions and retires idle ones.
type Registry struct {
	factory SessionFactory
	idle    time.Duration
	logger  logging.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(factory SessionFactory, idle time.Duration, logger logging.Logger) *Registry {
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	return &Registry{
		factory:  factory,
		idle:     idle,
		logger:   logger.With("module", "sessions"),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (reg *Registry) Get(id string) (*Session, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	s, ok := reg.sessions[id]
	return s, ok
}

func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.sessions)
}

// Middleware attaches the caller's session to the request context, creating
// one (and setting the cookie) for unknown browsers.
func (reg *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := reg.resolve(w, r)
		if err != nil {
			reg.logger.Error(r.Context(), "session setup failed", "error", err)
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, s)))
	})
}

func (reg *Registry) resolve(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if s, ok := reg.Get(c.Value); ok {
			s.touch(reg.now())
			return s, nil
		}
	}

	id := uuid.NewString()
	s, err := reg.factory(context.WithoutCancel(r.Context()), id)
	if err != nil {
		return nil, err
	}
	s.touch(reg.now())

	reg.mu.Lock()
	reg.sessions[id] = s
	reg.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	reg.logger.Debug(r.Context(), "session created", "session_id", id)
	return s, nil
}

// Sweep closes sessions idle for longer than the idle timeout. Sessions with
// a connected toast socket are kept.
func (reg *Registry) Sweep(ctx context.Context) int {
	cutoff := reg.now().Add(-reg.idle)

	reg.mu.Lock()
	var stale []*Session
	for id, s := range reg.sessions {
		if s.idleSince().Before(cutoff) && s.Toasts.Subscribers() == 0 {
			stale = append(stale, s)
			delete(reg.sessions, id)
		}
	}
	reg.mu.Unlock()

	for _, s := range stale {
		if err := s.Close(); err != nil {
			reg.logger.Warn(ctx, "closing idle session", "session_id", s.ID, "error", err)
		}
	}
	if len(stale) > 0 {
		reg.logger.Info(ctx, "idle sessions removed", "count", len(stale))
	}
	return len(stale)
}

// Run sweeps on every tick until ctx is done.
func (reg *Registry) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = defaultSweepEvery
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reg.Sweep(ctx)
		}
	}
}

// CloseAll closes and forgets every session.
func (reg *Registry) CloseAll() error {
	reg.mu.Lock()
	all := reg.sessions
	reg.sessions = make(map[string]*Session)
	reg.mu.Unlock()

	var errs []error
	for _, s := range all {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
