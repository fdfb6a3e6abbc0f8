// internal/form/definition.go
//
// Brunch – Forms subsystem: YAML definition loader.
//
// Context
//   The signup form is declared in YAML.  The file names every field, the
//   syntactic rule it obeys, its limits, and the user-facing message for each
//   failure mode.  Checkable fields also name the member-directory column a
//   duplicate check compares against and the keywords that identify the field
//   inside a server rejection message.  A copy of the default definition is
//   embedded in the binary; operators may point the config at an override.
//
// Workflow
//   •  Structs mirror the YAML schema: Spec → FieldSpec → Messages.
//   •  Parse decodes bytes and validates structural rules.
//   •  Load reads a file and calls Parse.
//   •  Default returns the embedded definition, parsed once.
//
// Style
//   Full sentences, two spaces after periods, and Oxford commas.
//
//------------------------------------------------------------------------------

package form

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// FieldName identifies a field on the signup form.
type FieldName string

// The four signup fields.
const (
	Nickname        FieldName = "nickname"
	Email           FieldName = "email"
	Password        FieldName = "password"
	PasswordConfirm FieldName = "passwordConfirm"
)

// Rule selects the syntactic check applied to a field.
type Rule string

const (
	RuleLength   Rule = "length"   // rune count within [minlength, maxlength]
	RuleEmail    Rule = "email"    // non-empty local@domain.tld
	RuleStrength Rule = "strength" // minlength runes, one letter, one digit
	RuleMatch    Rule = "match"    // non-empty and equal to another field
)

// Spec is one parsed form definition.  Fields keep YAML order, which is also
// the order snapshots and rendered markup use.
type Spec struct {
	ID     string         `yaml:"id"`
	Title  string         `yaml:"title"`
	Fields []FieldSpec    `yaml:"fields"`
	Status StatusMessages `yaml:"status"`
}

// FieldSpec is the immutable template for one input control.
type FieldSpec struct {
	Name        FieldName `yaml:"name"`        // Submission key.  Required.
	Label       string    `yaml:"label"`       // Human-readable label.  Required.
	Type        string    `yaml:"type"`        // text, email, or password.
	Placeholder string    `yaml:"placeholder"` // Optional placeholder text.
	Rule        Rule      `yaml:"rule"`        // Syntactic rule.  Required.
	Trim        bool      `yaml:"trim"`        // Strip surrounding space before checks.
	MinLength   int       `yaml:"minlength"`   // ≥ 0, 0 means unset.
	MaxLength   int       `yaml:"maxlength"`   // ≥ 0, 0 means unset.
	Match       FieldName `yaml:"match"`       // RuleMatch target.
	Checkable   bool      `yaml:"checkable"`   // Takes part in duplicate checks.
	Column      string    `yaml:"column"`      // Directory column for checks.
	Keywords    []string  `yaml:"server_keywords"`
	Messages    Messages  `yaml:"messages"`
}

// Messages holds the user-facing text for a field.  Errors is keyed by
// ErrorKind; the remaining entries describe duplicate-check progress.
type Messages struct {
	Errors    map[ErrorKind]string `yaml:"errors"`
	Success   string               `yaml:"success"`
	Unchecked string               `yaml:"unchecked"`
	Pending   string               `yaml:"pending"`
	Taken     string               `yaml:"taken"`
	Failed    string               `yaml:"failed"`
}

// StatusMessages is the text of the form-level status line.
type StatusMessages struct {
	Invalid     string `yaml:"invalid"`
	Submitting  string `yaml:"submitting"`
	Registered  string `yaml:"registered"`
	Unreachable string `yaml:"unreachable"`
	Failed      string `yaml:"failed"`
}

// Field returns the FieldSpec for name.  The boolean is false when the form has
// no such field.
func (s *Spec) Field(name FieldName) (*FieldSpec, bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// Names returns field names in definition order.
func (s *Spec) Names() []FieldName {
	out := make([]FieldName, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Checkable returns the names of fields that take part in duplicate checks.
func (s *Spec) Checkable() []FieldName {
	var out []FieldName
	for _, f := range s.Fields {
		if f.Checkable {
			out = append(out, f.Name)
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

//go:embed definitions/signup.yaml
var embeddedSignup []byte

var (
	defaultOnce sync.Once
	defaultSpec *Spec
)

// Default returns the embedded signup definition.  A broken embedded file is
// a build defect, so Default panics rather than returning an error.
func Default() *Spec {
	defaultOnce.Do(func() {
		s, err := Parse(embeddedSignup, "embedded:signup.yaml")
		if err != nil {
			panic(err)
		}
		defaultSpec = s
	})
	return defaultSpec
}

// Load reads one YAML file and returns the validated Spec.
func Load(path string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form file %s: %w", path, err)
	}
	return Parse(raw, path)
}

// Parse decodes raw YAML.  origin only labels error messages.
func Parse(raw []byte, origin string) (*Spec, error) {
	var s Spec
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", origin, err)
	}
	if err := validateSpec(&s, origin); err != nil {
		return nil, err
	}
	return &s, nil
}

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

// validateSpec enforces structural rules that YAML tags cannot express.
func validateSpec(s *Spec, origin string) error {
	if s.ID == "" {
		return fmt.Errorf("form definition %s: missing required 'id'", origin)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("form definition %s: must have 'fields'", origin)
	}

	names := make(map[FieldName]struct{}, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		if err := validateField(f, origin); err != nil {
			return err
		}
		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("form %s: duplicate field name '%s'", origin, f.Name)
		}
		names[f.Name] = struct{}{}
	}

	// Match targets must exist and must not point at themselves.
	for _, f := range s.Fields {
		if f.Rule != RuleMatch {
			continue
		}
		if f.Match == f.Name {
			return fmt.Errorf("form %s: field '%s' cannot match itself", origin, f.Name)
		}
		if _, ok := names[f.Match]; !ok {
			return fmt.Errorf("form %s: field '%s' matches unknown field '%s'", origin, f.Name, f.Match)
		}
	}
	return nil
}

// validateField confirms that essential attributes are present and sane.
func validateField(f *FieldSpec, origin string) error {
	if f.Name == "" {
		return fmt.Errorf("form %s: field missing 'name'", origin)
	}
	if f.Label == "" {
		return fmt.Errorf("form %s: field '%s' missing 'label'", origin, f.Name)
	}
	if f.Type == "" {
		return fmt.Errorf("form %s: field '%s' missing 'type'", origin, f.Name)
	}

	switch f.Rule {
	case RuleLength, RuleEmail, RuleStrength:
	case RuleMatch:
		if f.Match == "" {
			return fmt.Errorf("form %s: field '%s' rule 'match' needs 'match'", origin, f.Name)
		}
	case "":
		return fmt.Errorf("form %s: field '%s' missing 'rule'", origin, f.Name)
	default:
		return fmt.Errorf("form %s: field '%s' unknown rule '%s'", origin, f.Name, f.Rule)
	}

	if f.MinLength < 0 || f.MaxLength < 0 {
		return fmt.Errorf("form %s: field '%s' minlength/maxlength cannot be negative", origin, f.Name)
	}
	if f.MaxLength > 0 && f.MinLength > f.MaxLength {
		return fmt.Errorf("form %s: field '%s' minlength greater than maxlength", origin, f.Name)
	}

	if f.Checkable && f.Column == "" {
		return fmt.Errorf("form %s: checkable field '%s' missing 'column'", origin, f.Name)
	}
	return nil
}
