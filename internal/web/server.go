// internal/web/server.go
//
// Brunch – signup HTTP host.
//
// Context
//   The web layer is a thin adapter: it finds the caller's signup session,
//   turns a request into one Controller intent, and writes the resulting
//   Snapshot back as HTML (page load) or JSON (everything else).  No form
//   rule or gate decision lives here.
//
// Routes
//   GET  /signup                  form page, rendered from the snapshot
//   GET  /signup/state            current snapshot (JSON)
//   GET  /signup/static/signup.js page script
//   POST /signup/fields/{field}   edit one field
//   POST /signup/checks/{field}   run the duplicate check
//   POST /signup/submit           register
//   POST /signup/reset            start over
//   GET  /healthz, GET /metrics
//
// Notes
//   •  POSTs require the session-bound CSRF token (X-CSRF-Token header or
//      csrf_token form value).
//   •  Check and submit run detached from the request context: a closed tab
//      must not turn an answered registration into a transport failure.
//
//------------------------------------------------------------------------------

package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/brunch/internal/audit"
	"github.com/yanizio/brunch/internal/dupcheck"
	"github.com/yanizio/brunch/internal/form"
	"github.com/yanizio/brunch/internal/middleware"
	"github.com/yanizio/brunch/internal/session"
	"github.com/yanizio/brunch/internal/signup"
	"github.com/yanizio/brunch/internal/ua"
)

// Deps wires the host.  Audit may be nil.
type Deps struct {
	Spec       *form.Spec
	Directory  dupcheck.Directory
	Registrar  signup.Registrar
	Audit      *audit.Store
	CSRF       *form.CSRF
	Sessions   session.Options
	ForceHTTPS bool
	Logger     *zap.SugaredLogger
}

// Server serves the signup flow.
type Server struct {
	spec     *form.Spec
	csrf     *form.CSRF
	sessions *session.Store
	force    bool
	log      *zap.SugaredLogger
}

// New builds a Server and its session store.
func New(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Server{spec: d.Spec, csrf: d.CSRF, force: d.ForceHTTPS, log: log}
	s.sessions = session.New(d.Sessions, func(agent ua.Info) *signup.Controller {
		var rec signup.Recorder = audit.Noop{}
		if d.Audit != nil {
			rec = audit.Recorder{Store: d.Audit, Agent: agent}
		}
		return signup.NewController(signup.Options{
			Spec:      d.Spec,
			Directory: d.Directory,
			Registrar: d.Registrar,
			Recorder:  rec,
			Logger:    log,
		})
	})
	return s
}

// Sessions exposes the store so main can run its sweeper.
func (s *Server) Sessions() *session.Store { return s.sessions }

// Routes returns the root handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	if s.force {
		r.Use(middleware.ForceHTTPS)
	}
	r.Use(middleware.Security)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/signup", func(r chi.Router) {
		r.Get("/static/signup.js", s.handleScript)

		r.Group(func(r chi.Router) {
			r.Use(s.withSession)
			r.Get("/", s.handlePage)
			r.Get("/state", s.handleState)

			r.Group(func(r chi.Router) {
				r.Use(s.requireCSRF)
				r.Post("/fields/{field}", s.handleEdit)
				r.Post("/checks/{field}", s.handleCheck)
				r.Post("/submit", s.handleSubmit)
				r.Post("/reset", s.handleReset)
			})
		})
	})
	return r
}

// -----------------------------------------------------------------------------
// Session and CSRF middleware
// -----------------------------------------------------------------------------

type ctxKey struct{}

func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e := s.sessions.Resolve(w, r)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, e)))
	})
}

func entryFrom(r *http.Request) *session.Entry {
	e, _ := r.Context().Value(ctxKey{}).(*session.Entry)
	return e
}

func (s *Server) requireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		tok := r.Header.Get("X-CSRF-Token")
		if tok == "" {
			tok = r.PostFormValue("csrf_token")
		}
		e := entryFrom(r)
		if !s.csrf.Verify(e.ID, tok) {
			s.log.Infow("csrf rejected", "path", r.URL.Path, "request_id", chimw.GetReqID(r.Context()))
			writeJSON(w, http.StatusForbidden, response{
				Snapshot: e.Controller.Snapshot(),
				Error:    &apiError{Code: "csrf", Message: "페이지를 새로고침한 뒤 다시 시도해주세요."},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
