// internal/signup/display.go
//
// Brunch – derived field display and the submission gate.
//
// Context
//   The renderer never decides what a field looks like.  Display maps the
//   syntactic verdict and duplicate status to one of four statuses plus a
//   message, and CanSubmit decides whether the submit control is live.  Both
//   are pure: same session in, same answer out.
//
//------------------------------------------------------------------------------

package signup

import (
	"github.com/yanizio/brunch/internal/dupcheck"
	"github.com/yanizio/brunch/internal/form"
)

// Status is what a renderer shows for a field or the form status line.
type Status string

const (
	Neutral Status = "neutral"
	Info    Status = "info"
	Success Status = "success"
	Error   Status = "error"
)

// Display derives a field's status and message.  Untouched fields stay
// neutral; syntax errors win over duplicate state; checkable fields are only
// a success once the duplicate check says available.
func Display(f *form.FieldSpec, st FieldState, dup dupcheck.Status) (Status, string) {
	if !st.Touched {
		return Neutral, ""
	}
	if !st.SyntaxValid {
		return Error, f.ErrorMessage(st.Reason)
	}
	if !f.Checkable {
		return Success, f.SuccessMessage()
	}

	switch dup {
	case dupcheck.Pending:
		return Info, f.Messages.Pending
	case dupcheck.Available:
		return Success, f.SuccessMessage()
	case dupcheck.Taken:
		if st.Remark != "" {
			return Error, st.Remark
		}
		return Error, f.Messages.Taken
	case dupcheck.Failed:
		return Error, f.Messages.Failed
	default:
		return Info, f.Messages.Unchecked
	}
}

// CanSubmit is the submission gate: no registration in flight, every field
// syntactically valid, and every checkable field checked as available.
func CanSubmit(s *Session) bool {
	if s.submitting {
		return false
	}
	for _, f := range s.spec.Fields {
		if !s.fields[f.Name].SyntaxValid {
			return false
		}
		if f.Checkable && s.dup.Status(f.Name) != dupcheck.Available {
			return false
		}
	}
	return true
}
