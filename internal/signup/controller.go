// internal/signup/controller.go
//
// Brunch – signup form controller.
//
// Context
//   The Controller is the single writer of a Session.  It accepts user
//   intents (edit, check, submit), applies them under one mutex, and publishes
//   a fresh Snapshot to the Observer after every change.  Directory and
//   registrar calls run with the mutex released; their answers are folded
//   back in under it.
//
// Workflow
//   Edit   → Session.Edit → publish
//   Check  → syntax guard → Begin → publish pending → lookup → Resolve → publish
//   Submit → touch + re-validate all → (block | submitting → register once →
//            reset on success, keep state on failure) → publish
//
// Notes
//   •  The Observer runs while the mutex is held.  It must not call back into
//      the Controller.
//   •  A check answer that comes back after the value changed is dropped
//      (ErrStaleResult) and nothing is published.
//
//------------------------------------------------------------------------------

package signup

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/brunch/internal/dupcheck"
	"github.com/yanizio/brunch/internal/form"
	"github.com/yanizio/brunch/internal/member"
	"github.com/yanizio/brunch/internal/metrics"
)

// Registrar creates accounts.
type Registrar interface {
	RegisterUser(ctx context.Context, in member.RegisterRequest) (member.RegisterResult, error)
}

// Observer receives every published snapshot.
type Observer interface {
	Render(Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Snapshot)

// Render implements Observer.
func (f ObserverFunc) Render(s Snapshot) { f(s) }

// Outcome labels a submission attempt.
type Outcome string

const (
	OutcomeRegistered Outcome = "registered"
	OutcomeRejected   Outcome = "rejected"
	OutcomeTransport  Outcome = "transport_error"
	OutcomeInvalid    Outcome = "invalid"
)

// Attempt is one submission as seen by a Recorder.
type Attempt struct {
	Nickname string
	Email    string
	Outcome  Outcome
	Message  string
	At       time.Time
}

// Recorder keeps an audit trail of submissions.  Failures are logged, never
// surfaced to the user.
type Recorder interface {
	RecordAttempt(ctx context.Context, a Attempt) error
}

// Options configures a Controller.  Spec, Directory and Registrar are
// required.
type Options struct {
	Spec      *form.Spec
	Directory dupcheck.Directory
	Registrar Registrar
	Observer  Observer
	Recorder  Recorder
	Logger    *zap.SugaredLogger
	Now       func() time.Time
}

// Controller serializes all mutations of one Session.
type Controller struct {
	mu      sync.Mutex
	sess    *Session
	version uint64

	reg Registrar
	obs Observer
	rec Recorder
	log *zap.SugaredLogger
	now func() time.Time
}

// NewController returns a controller over a fresh session.
func NewController(opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		sess: NewSession(opts.Spec, opts.Directory, log),
		reg:  opts.Registrar,
		obs:  opts.Observer,
		rec:  opts.Recorder,
		log:  log,
		now:  now,
	}
}

// Snapshot returns the current view without publishing.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Reset discards every value and check, then publishes.
func (c *Controller) Reset() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess.Reset()
	return c.publishLocked()
}

// -----------------------------------------------------------------------------
// Edit
// -----------------------------------------------------------------------------

// Edit stores value for field.  Unknown fields return a SyntaxError and leave
// the session untouched.
func (c *Controller) Edit(field form.FieldName, value string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sess.Edit(field, value); err != nil {
		return c.viewLocked(), err
	}
	return c.publishLocked(), nil
}

// ForgetSecrets clears password fields.  A freshly rendered page cannot show
// them, so the session must not keep the gate open on values the user no
// longer sees.
func (c *Controller) ForgetSecrets() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.sess.ForgetSecrets() {
		return c.viewLocked()
	}
	return c.publishLocked()
}

// -----------------------------------------------------------------------------
// Check
// -----------------------------------------------------------------------------

// Check runs the duplicate check for field.  A syntactically invalid value
// never reaches the directory; the field is marked touched so its error
// shows, and a SyntaxError is returned.
func (c *Controller) Check(ctx context.Context, field form.FieldName) (Snapshot, error) {
	c.mu.Lock()
	f, ok := c.sess.spec.Field(field)
	if !ok || !f.Checkable {
		snap := c.viewLocked()
		c.mu.Unlock()
		return snap, dupcheck.ErrNotCheckable
	}
	if c.sess.submitting {
		snap := c.viewLocked()
		c.mu.Unlock()
		return snap, ErrSubmitInFlight
	}

	c.sess.Touch(field)
	st := c.sess.fields[field]
	if !st.SyntaxValid {
		snap := c.publishLocked()
		c.mu.Unlock()
		return snap, &SyntaxError{Field: field, Reason: st.Reason}
	}

	tk, err := c.sess.dup.Begin(field, c.sess.normalized(field))
	if err != nil {
		snap := c.viewLocked()
		c.mu.Unlock()
		return snap, err
	}
	st.Remark = ""
	c.publishLocked()
	dup := c.sess.dup
	c.mu.Unlock()

	outcome := dup.Lookup(ctx, tk)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !dup.Resolve(tk, outcome) {
		return c.viewLocked(), ErrStaleResult
	}
	snap := c.publishLocked()
	c.log.Debugw("duplicate check resolved", "field", field, "status", outcome.Status)

	switch outcome.Status {
	case dupcheck.Taken:
		return snap, ErrDuplicateTaken
	case dupcheck.Failed:
		return snap, &CheckTransportError{Field: field, Err: outcome.Err}
	}
	return snap, nil
}

// -----------------------------------------------------------------------------
// Submit
// -----------------------------------------------------------------------------

// Submit registers the account.  Blocking problems return a ValidationError
// without any network call.  Otherwise RegisterUser is called exactly once:
// success resets the form, a transport failure returns SubmitTransportError,
// and a refusal returns SubmitRejectedError after marking any checkable field
// the server's message names as taken.
func (c *Controller) Submit(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.sess.submitting {
		snap := c.viewLocked()
		c.mu.Unlock()
		return snap, ErrSubmitInFlight
	}

	c.sess.TouchAll()
	if problems := c.blockingLocked(); len(problems) > 0 {
		c.sess.setStatus(Error, c.sess.spec.Status.Invalid)
		snap := c.publishLocked()
		attempt := c.attemptLocked(OutcomeInvalid, c.sess.spec.Status.Invalid)
		c.mu.Unlock()

		metrics.SubmissionsTotal.WithLabelValues(string(OutcomeInvalid)).Inc()
		c.record(ctx, attempt)
		return snap, &ValidationError{Fields: problems}
	}

	req := c.requestLocked()
	c.sess.submitting = true
	c.sess.setStatus(Info, c.sess.spec.Status.Submitting)
	c.publishLocked()
	c.mu.Unlock()

	res, err := c.reg.RegisterUser(ctx, req)

	c.mu.Lock()
	c.sess.submitting = false
	var (
		outErr  error
		outcome Outcome
		msg     string
	)
	switch {
	case errors.Is(err, member.ErrInvalidPayload):
		// Nothing was sent; the form rules and the payload rules disagree.
		outcome, msg = OutcomeInvalid, c.sess.spec.Status.Invalid
		outErr = &ValidationError{}
		c.sess.setStatus(Error, msg)
		c.log.Errorw("register payload refused locally", "err", err)

	case err != nil:
		outcome, msg = OutcomeTransport, c.sess.spec.Status.Unreachable
		outErr = &SubmitTransportError{Err: err}
		c.sess.setStatus(Error, msg)
		c.log.Warnw("registration unreachable", "err", err)

	case !res.OK:
		outcome, msg = OutcomeRejected, res.Message
		if msg == "" {
			msg = c.sess.spec.Status.Failed
		}
		rej := &SubmitRejectedError{Message: msg}
		for _, name := range c.sess.spec.Checkable() {
			f, _ := c.sess.spec.Field(name)
			if f.MatchesKeyword(res.Message) {
				c.sess.dup.ForceTaken(name)
				c.sess.fields[name].Remark = res.Message
				if rej.Field == "" {
					rej.Field = name
				}
			}
		}
		outErr = rej
		c.sess.setStatus(Error, msg)
		c.log.Infow("registration rejected", "message", res.Message, "field", rej.Field)

	default:
		outcome, msg = OutcomeRegistered, c.sess.spec.Status.Registered
		c.sess.Reset()
		c.sess.setStatus(Success, msg)
		c.log.Infow("member registered", "name", req.Name)
	}
	snap := c.publishLocked()
	c.mu.Unlock()

	metrics.SubmissionsTotal.WithLabelValues(string(outcome)).Inc()
	c.record(ctx, Attempt{Nickname: req.Name, Email: req.Email, Outcome: outcome, Message: msg, At: c.now()})
	return snap, outErr
}

// blockingLocked lists every field that keeps the gate shut.
func (c *Controller) blockingLocked() []FieldError {
	var out []FieldError
	for i := range c.sess.spec.Fields {
		f := &c.sess.spec.Fields[i]
		st := *c.sess.fields[f.Name]
		dup := c.sess.dup.Status(f.Name)
		if st.SyntaxValid && (!f.Checkable || dup == dupcheck.Available) {
			continue
		}
		_, msg := Display(f, st, dup)
		fe := FieldError{Field: f.Name, Message: msg}
		if !st.SyntaxValid {
			fe.Reason = st.Reason
		}
		out = append(out, fe)
	}
	return out
}

// requestLocked builds the registration payload.  The email doubles as the
// login id.
func (c *Controller) requestLocked() member.RegisterRequest {
	email := c.sess.normalized(form.Email)
	return member.RegisterRequest{
		ID:    email,
		PW:    c.sess.normalized(form.Password),
		Name:  c.sess.normalized(form.Nickname),
		Email: email,
	}
}

func (c *Controller) attemptLocked(o Outcome, msg string) Attempt {
	return Attempt{
		Nickname: c.sess.normalized(form.Nickname),
		Email:    c.sess.normalized(form.Email),
		Outcome:  o,
		Message:  msg,
		At:       c.now(),
	}
}

func (c *Controller) record(ctx context.Context, a Attempt) {
	if c.rec == nil {
		return
	}
	if err := c.rec.RecordAttempt(context.WithoutCancel(ctx), a); err != nil {
		c.log.Warnw("audit record failed", "outcome", a.Outcome, "err", err)
	}
}

// -----------------------------------------------------------------------------
// Publication
// -----------------------------------------------------------------------------

func (c *Controller) viewLocked() Snapshot {
	snap := c.sess.Snapshot()
	snap.Version = c.version
	return snap
}

func (c *Controller) publishLocked() Snapshot {
	c.version++
	snap := c.viewLocked()
	if c.obs != nil {
		c.obs.Render(snap)
	}
	return snap
}

// IsStale reports whether err only means a check answer was dropped.
func IsStale(err error) bool { return errors.Is(err, ErrStaleResult) }
