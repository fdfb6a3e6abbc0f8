// internal/dupcheck/coordinator.go
//
// Brunch – duplicate-check coordination.
//
// Context
//   Nickname and email must be confirmed as unused before signup.  A check is
//   asynchronous and its answer only describes the value it was issued for,
//   so the Coordinator keeps one slot per checkable field holding the check
//   status and a request token.  Every edit bumps the token; a result whose
//   ticket carries an older token is stale and is dropped on arrival.
//
//   State machine per slot:
//
//     unchecked ──Begin──▶ pending ──Resolve──▶ available | taken | failed
//     any       ──Invalidate / Reset──▶ unchecked
//     any       ──ForceTaken──▶ taken
//
// Workflow
//   •  Begin moves a slot to pending and hands out a Ticket.
//   •  Lookup queries the Directory for the ticket's value.  It reads no slot
//      state, so callers run it without holding their own locks.
//   •  Resolve applies the Outcome only when the ticket is still current.
//
// Notes
//   A Coordinator is not safe for concurrent use.  signup.Controller owns one
//   per session and serializes access; only Lookup runs outside that lock.
//
//------------------------------------------------------------------------------

package dupcheck

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/yanizio/brunch/internal/form"
	"github.com/yanizio/brunch/internal/member"
	"github.com/yanizio/brunch/internal/metrics"
)

// Status is the duplicate-check state of one field.
type Status string

const (
	Unchecked Status = "unchecked"
	Pending   Status = "pending"
	Available Status = "available"
	Taken     Status = "taken"
	Failed    Status = "failed"
)

var (
	// ErrInFlight is returned by Begin while the field already has a check
	// pending.
	ErrInFlight = errors.New("dupcheck: check already in flight")
	// ErrNotCheckable is returned for fields without a duplicate slot.
	ErrNotCheckable = errors.New("dupcheck: field is not checkable")
	// ErrDirectoryUnavailable reports a roster answer with ok unset.
	ErrDirectoryUnavailable = errors.New("dupcheck: member directory answered not ok")
)

// Directory lists every registered member.
type Directory interface {
	FetchAllUsers(ctx context.Context) (member.Roster, error)
}

// ExistenceChecker is an optional dedicated query.  When the Directory also
// implements it, Lookup uses it instead of scanning the roster.
type ExistenceChecker interface {
	Exists(ctx context.Context, column, value string) (bool, error)
}

// Ticket identifies one issued check.
type Ticket struct {
	Field  form.FieldName
	Column string
	Value  string
	token  uint64
}

// Outcome is the answer to one check.  Err is set only for Failed.
type Outcome struct {
	Status Status
	Err    error
}

type slot struct {
	column string
	status Status
	token  uint64
}

// Coordinator tracks duplicate-check state for the checkable fields of one
// form session.
type Coordinator struct {
	dir   Directory
	slots map[form.FieldName]*slot
	log   *zap.SugaredLogger
}

// New builds a Coordinator with one unchecked slot per checkable field in
// spec.  log may be nil.
func New(spec *form.Spec, dir Directory, log *zap.SugaredLogger) *Coordinator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	c := &Coordinator{
		dir:   dir,
		slots: make(map[form.FieldName]*slot),
		log:   log,
	}
	for _, f := range spec.Fields {
		if f.Checkable {
			c.slots[f.Name] = &slot{column: f.Column, status: Unchecked}
		}
	}
	return c
}

// -----------------------------------------------------------------------------
// State queries
// -----------------------------------------------------------------------------

// Checkable reports whether field has a duplicate slot.
func (c *Coordinator) Checkable(field form.FieldName) bool {
	_, ok := c.slots[field]
	return ok
}

// Status returns the field's check status.  Non-checkable fields report
// Unchecked.
func (c *Coordinator) Status(field form.FieldName) Status {
	if s, ok := c.slots[field]; ok {
		return s.status
	}
	return Unchecked
}

// -----------------------------------------------------------------------------
// Transitions
// -----------------------------------------------------------------------------

// Invalidate records an edit: the slot returns to unchecked and any pending
// result becomes stale.
func (c *Coordinator) Invalidate(field form.FieldName) {
	s, ok := c.slots[field]
	if !ok {
		return
	}
	s.token++
	s.status = Unchecked
}

// Begin issues a check for value.  The caller has already confirmed that
// value is syntactically valid.
func (c *Coordinator) Begin(field form.FieldName, value string) (Ticket, error) {
	s, ok := c.slots[field]
	if !ok {
		return Ticket{}, ErrNotCheckable
	}
	if s.status == Pending {
		return Ticket{}, ErrInFlight
	}
	s.token++
	s.status = Pending
	return Ticket{Field: field, Column: s.column, Value: value, token: s.token}, nil
}

// Resolve applies o to the ticket's slot.  It returns false, leaving state
// untouched, when the ticket is stale.
func (c *Coordinator) Resolve(t Ticket, o Outcome) bool {
	s, ok := c.slots[t.Field]
	if !ok || s.token != t.token || s.status != Pending {
		metrics.StaleResultsTotal.WithLabelValues(string(t.Field)).Inc()
		c.log.Debugw("stale duplicate check dropped", "field", t.Field, "token", t.token)
		return false
	}
	s.status = o.Status
	metrics.DuplicateChecksTotal.WithLabelValues(string(t.Field), string(o.Status)).Inc()
	return true
}

// ForceTaken marks field as taken regardless of what the client-side check
// said.  The server's rejection at submit time is authoritative.
func (c *Coordinator) ForceTaken(field form.FieldName) {
	s, ok := c.slots[field]
	if !ok {
		return
	}
	s.token++
	s.status = Taken
}

// Reset returns every slot to unchecked and invalidates pending checks.
func (c *Coordinator) Reset() {
	for _, s := range c.slots {
		s.token++
		s.status = Unchecked
	}
}

// -----------------------------------------------------------------------------
// Query
// -----------------------------------------------------------------------------

// Lookup answers whether t.Value is already registered.  Matching is exact and
// case-sensitive on the ticket's column.  Lookup touches no slot state.
func (c *Coordinator) Lookup(ctx context.Context, t Ticket) Outcome {
	if ec, ok := c.dir.(ExistenceChecker); ok {
		found, err := ec.Exists(ctx, t.Column, t.Value)
		if err != nil {
			c.log.Warnw("existence query failed", "field", t.Field, "err", err)
			return Outcome{Status: Failed, Err: err}
		}
		return outcomeOf(found)
	}

	roster, err := c.dir.FetchAllUsers(ctx)
	if err != nil {
		c.log.Warnw("roster fetch failed", "field", t.Field, "err", err)
		return Outcome{Status: Failed, Err: err}
	}
	if !roster.OK {
		return Outcome{Status: Failed, Err: ErrDirectoryUnavailable}
	}
	for _, r := range roster.Items {
		if r.Column(t.Column) == t.Value {
			return outcomeOf(true)
		}
	}
	return outcomeOf(false)
}

func outcomeOf(found bool) Outcome {
	if found {
		return Outcome{Status: Taken}
	}
	return Outcome{Status: Available}
}
