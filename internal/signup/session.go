// internal/signup/session.go
//
// Brunch – signup form session state.
//
// Context
//   A Session is everything one signup attempt knows: the raw value and
//   syntactic verdict of every field, the duplicate-check slots, whether a
//   registration call is in flight, and the form-level status line.  Its
//   methods are pure state transitions with no I/O, so tests drive them
//   directly; Controller adds locking, network calls, and publication.
//
// Notes
//   •  Displayed status is never stored.  Display derives it from FieldState
//      and the duplicate slot every time a snapshot is built.
//   •  A Session is not safe for concurrent use.
//
//------------------------------------------------------------------------------

package signup

import (
	"go.uber.org/zap"

	"github.com/yanizio/brunch/internal/dupcheck"
	"github.com/yanizio/brunch/internal/form"
)

// FieldState is the mutable state of one field.
type FieldState struct {
	Value       string
	SyntaxValid bool
	Reason      form.ErrorKind
	Touched     bool   // false until the user edits, checks, or submits
	Remark      string // server's rejection text, shown while the slot is taken
}

// FormStatus is the form-level status line.  Kind reuses the field display
// statuses; Neutral means nothing is shown.
type FormStatus struct {
	Kind    Status `json:"kind"`
	Message string `json:"message"`
}

// Session aggregates the state of one signup attempt.
type Session struct {
	spec       *form.Spec
	fields     map[form.FieldName]*FieldState
	dup        *dupcheck.Coordinator
	submitting bool
	status     FormStatus
}

// NewSession returns a pristine session for spec.  dir answers duplicate
// checks; log may be nil.
func NewSession(spec *form.Spec, dir dupcheck.Directory, log *zap.SugaredLogger) *Session {
	s := &Session{
		spec:   spec,
		fields: make(map[form.FieldName]*FieldState, len(spec.Fields)),
		dup:    dupcheck.New(spec, dir, log),
	}
	s.Reset()
	return s
}

// -----------------------------------------------------------------------------
// Read access
// -----------------------------------------------------------------------------

// Spec returns the form definition the session was built from.
func (s *Session) Spec() *form.Spec { return s.spec }

// Field returns a copy of the named field's state.
func (s *Session) Field(name form.FieldName) (FieldState, bool) {
	st, ok := s.fields[name]
	if !ok {
		return FieldState{}, false
	}
	return *st, true
}

// Duplicate returns the named field's duplicate-check status.
func (s *Session) Duplicate(name form.FieldName) dupcheck.Status { return s.dup.Status(name) }

// Submitting reports whether a registration call is in flight.
func (s *Session) Submitting() bool { return s.submitting }

// Status returns the form-level status line.
func (s *Session) Status() FormStatus { return s.status }

// Values returns the raw value of every field.
func (s *Session) Values() form.Values {
	out := make(form.Values, len(s.fields))
	for name, st := range s.fields {
		out[name] = st.Value
	}
	return out
}

// normalized returns name's value after the field's trim policy.
func (s *Session) normalized(name form.FieldName) string {
	f, ok := s.spec.Field(name)
	if !ok {
		return ""
	}
	return f.Normalize(s.fields[name].Value)
}

// -----------------------------------------------------------------------------
// Transitions
// -----------------------------------------------------------------------------

// Edit records a new value for name: the field is re-validated, fields whose
// match rule points at name are re-validated, and the duplicate slot (if any)
// returns to unchecked.
func (s *Session) Edit(name form.FieldName, value string) error {
	st, ok := s.fields[name]
	if !ok {
		return &SyntaxError{Field: name, Reason: form.UnknownField}
	}
	st.Value = value
	st.Touched = true
	st.Remark = ""
	s.dup.Invalidate(name)

	s.revalidate(name)
	for _, f := range s.spec.Fields {
		if f.Rule == form.RuleMatch && f.Match == name {
			s.revalidate(f.Name)
		}
	}
	return nil
}

// Touch marks name as visited so its verdict is displayed.
func (s *Session) Touch(name form.FieldName) {
	if st, ok := s.fields[name]; ok {
		st.Touched = true
	}
}

// TouchAll re-validates and marks every field.  Submit uses it so that stale
// verdicts cannot slip through.
func (s *Session) TouchAll() {
	for name, st := range s.fields {
		st.Touched = true
		s.revalidate(name)
	}
}

// ForgetSecrets empties every password field and marks it untouched.  It
// reports whether anything changed.
func (s *Session) ForgetSecrets() bool {
	var changed bool
	for _, f := range s.spec.Fields {
		st := s.fields[f.Name]
		if f.Type != "password" || (st.Value == "" && !st.Touched) {
			continue
		}
		st.Value, st.Touched = "", false
		changed = true
	}
	if changed {
		for _, f := range s.spec.Fields {
			if f.Type == "password" {
				s.revalidate(f.Name)
			}
		}
	}
	return changed
}

// Reset returns the session to its initial empty state.
func (s *Session) Reset() {
	values := form.Values{}
	for _, f := range s.spec.Fields {
		s.fields[f.Name] = &FieldState{}
		values[f.Name] = ""
	}
	for _, f := range s.spec.Fields {
		r := s.spec.Validate(f.Name, values)
		s.fields[f.Name].SyntaxValid, s.fields[f.Name].Reason = r.Valid, r.Reason
	}
	s.dup.Reset()
	s.submitting = false
	s.status = FormStatus{Kind: Neutral}
}

func (s *Session) revalidate(name form.FieldName) {
	r := s.spec.Validate(name, s.Values())
	st := s.fields[name]
	st.SyntaxValid, st.Reason = r.Valid, r.Reason
}

func (s *Session) setStatus(kind Status, msg string) {
	s.status = FormStatus{Kind: kind, Message: msg}
}
