// internal/session/session.go
//
// Brunch – signup session store.
//
// Context
//   Every browser filling in the signup form owns one signup.Controller.
//   The controller lives in memory, keyed by a random id carried in the
//   “brunch_signup” cookie.  Entries expire after an idle TTL and the store
//   is capped; the least recently used session goes first when full.
//
// Workflow
//   •  Resolve returns the caller's Entry, creating one (and setting the
//      cookie) when the cookie is absent, unknown, or expired.
//   •  Every hit re-arms the idle TTL.
//   •  Run sweeps expired entries until its context ends.
//
// Style
//   Two-space sentence spacing, terse inline notes.
//
//------------------------------------------------------------------------------

package session

import (
	"context"
	"net/http"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/yanizio/brunch/internal/metrics"
	"github.com/yanizio/brunch/internal/signup"
	"github.com/yanizio/brunch/internal/ua"
)

// CookieName carries the session id.
const CookieName = "brunch_signup"

// SweepInterval is how often Run drops expired sessions.
const SweepInterval = time.Minute

// Entry is one browser's signup state.
type Entry struct {
	ID         string
	Controller *signup.Controller
	// Checks throttles duplicate checks so one tab cannot hammer the
	// member directory.
	Checks *rate.Limiter
	Agent  ua.Info
}

// Factory builds the controller for a new session.
type Factory func(agent ua.Info) *signup.Controller

// Options configures a Store.
type Options struct {
	IdleTTL    time.Duration
	MaxEntries int
	CheckRate  float64 // checks per second
	CheckBurst int
}

// Store holds live sessions.
type Store struct {
	entries cache.Cache[string, *Entry]
	build   Factory
	opts    Options
}

// New returns an empty store.  build is called once per new session.
func New(opts Options, build Factory) *Store {
	c := cache.NewCache[string, *Entry]().
		WithMaxKeys(opts.MaxEntries).
		WithLRU().
		WithTTL(opts.IdleTTL).
		WithOnEvicted(func(string, *Entry) { metrics.ActiveSessions.Dec() })
	return &Store{entries: c, build: build, opts: opts}
}

// Resolve returns the session for r, creating one when needed.  A new
// session sets the cookie on w.
func (s *Store) Resolve(w http.ResponseWriter, r *http.Request) *Entry {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		if e, ok := s.entries.Get(c.Value); ok {
			s.entries.Set(e.ID, e, 0) // re-arm idle TTL
			return e
		}
	}

	agent := ua.Parse(r.UserAgent())
	e := &Entry{
		ID:         uuid.NewString(),
		Controller: s.build(agent),
		Checks:     rate.NewLimiter(rate.Limit(s.opts.CheckRate), s.opts.CheckBurst),
		Agent:      agent,
	}
	s.entries.Set(e.ID, e, 0)
	metrics.ActiveSessions.Inc()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    e.ID,
		Path:     "/signup",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.opts.IdleTTL / time.Second),
	})
	return e
}

// Drop forgets id.
func (s *Store) Drop(id string) { s.entries.Invalidate(id) }

// Len reports live sessions, expired ones included until the next sweep.
func (s *Store) Len() int { return s.entries.Len() }

// Run sweeps expired sessions every SweepInterval until ctx ends.
func (s *Store) Run(ctx context.Context) {
	t := time.NewTicker(SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.entries.DeleteExpired()
		}
	}
}
