// internal/signup/snapshot.go
//
// Snapshot is the read-only view handed to renderers.  It is built from a
// Session in one pass, so every field, the gate, and the status line agree.

package signup

import (
	"github.com/yanizio/brunch/internal/dupcheck"
	"github.com/yanizio/brunch/internal/form"
)

// FieldView is one rendered field.  Value is blank for password inputs.
type FieldView struct {
	Name         form.FieldName  `json:"name"`
	Label        string          `json:"label"`
	Type         string          `json:"type"`
	Placeholder  string          `json:"placeholder,omitempty"`
	Value        string          `json:"value"`
	Status       Status          `json:"status"`
	Message      string          `json:"message"`
	Duplicate    dupcheck.Status `json:"duplicate,omitempty"`
	Checkable    bool            `json:"checkable"`
	CheckEnabled bool            `json:"checkEnabled"`
}

// Snapshot is the full derived state of a session.  Version increases with
// every published snapshot so renderers can drop out-of-order deliveries.
type Snapshot struct {
	Version    uint64      `json:"version"`
	Fields     []FieldView `json:"fields"`
	CanSubmit  bool        `json:"canSubmit"`
	Submitting bool        `json:"submitting"`
	Status     FormStatus  `json:"status"`
}

// Field returns the named view.
func (s Snapshot) Field(name form.FieldName) (FieldView, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldView{}, false
}

// Snapshot derives the view of s in field-definition order.
func (s *Session) Snapshot() Snapshot {
	out := Snapshot{
		Fields:     make([]FieldView, 0, len(s.spec.Fields)),
		CanSubmit:  CanSubmit(s),
		Submitting: s.submitting,
		Status:     s.status,
	}
	for i := range s.spec.Fields {
		f := &s.spec.Fields[i]
		st := *s.fields[f.Name]
		dup := s.dup.Status(f.Name)
		status, msg := Display(f, st, dup)

		v := FieldView{
			Name:        f.Name,
			Label:       f.Label,
			Type:        f.Type,
			Placeholder: f.Placeholder,
			Value:       st.Value,
			Status:      status,
			Message:     msg,
			Checkable:   f.Checkable,
		}
		if f.Type == "password" {
			v.Value = ""
		}
		if f.Checkable {
			v.Duplicate = dup
			v.CheckEnabled = dup != dupcheck.Pending && !s.submitting
		}
		out.Fields = append(out.Fields, v)
	}
	return out
}
