// internal/form/validate.go
//
// Brunch – Forms subsystem: syntactic field validation.
//
// Context
//   Validate runs on every keystroke, so it is a pure function of the field
//   definition and the current form values.  It never records anything and
//   never looks at duplicate-check state; the signup controller composes the
//   result with that state when it decides what to display.
//
// Workflow
//   •  Normalize applies the field's trim policy to a raw value.
//   •  Validate looks up the FieldSpec, normalizes the value, and dispatches
//      to the rule helper.  Match rules read their target from values.
//   •  ErrorMessage / SuccessMessage resolve user text with fallbacks.
//
//------------------------------------------------------------------------------

package form

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// -----------------------------------------------------------------------------
// Result types
// -----------------------------------------------------------------------------

// ErrorKind names a syntactic failure mode.  The zero value means no error.
type ErrorKind string

const (
	TooShort       ErrorKind = "too_short"
	TooLong        ErrorKind = "too_long"
	Empty          ErrorKind = "empty"
	MalformedEmail ErrorKind = "malformed_email"
	TooWeak        ErrorKind = "too_weak"
	Mismatch       ErrorKind = "mismatch"
	UnknownField   ErrorKind = "unknown_field"
)

// Result is the outcome of one validation.  Reason is empty when Valid.
type Result struct {
	Valid  bool
	Reason ErrorKind
}

// Values carries raw form input keyed by field name.
type Values map[FieldName]string

var (
	passed = Result{Valid: true}

	// Dots only between local-part atoms; domain labels never start or end
	// with a hyphen.
	emailRE = regexp.MustCompile(`^[A-Za-z0-9_%+\-]+(\.[A-Za-z0-9_%+\-]+)*@([A-Za-z0-9]([A-Za-z0-9\-]*[A-Za-z0-9])?\.)+[A-Za-z]{2,}$`)

	// tags is the same rule set the member API payload is checked with.
	tags = validator.New()
)

func fail(kind ErrorKind) Result { return Result{Reason: kind} }

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// Normalize returns raw as the rules see it.
func (f *FieldSpec) Normalize(raw string) string {
	if f.Trim {
		return strings.TrimSpace(raw)
	}
	return raw
}

// Validate checks values[name] against the field's rule.  Calling it twice
// with the same input yields the same Result.
func (s *Spec) Validate(name FieldName, values Values) Result {
	f, found := s.Field(name)
	if !found {
		return fail(UnknownField)
	}
	v := f.Normalize(values[name])

	switch f.Rule {
	case RuleLength:
		return checkLength(v, f.MinLength, f.MaxLength)
	case RuleEmail:
		return checkEmail(v)
	case RuleStrength:
		return checkStrength(v, f.MinLength)
	case RuleMatch:
		target := values[f.Match]
		if tf, ok := s.Field(f.Match); ok {
			target = tf.Normalize(target)
		}
		return checkMatch(v, target)
	default:
		return fail(UnknownField)
	}
}

// ValidateAll validates every field in definition order.
func (s *Spec) ValidateAll(values Values) map[FieldName]Result {
	out := make(map[FieldName]Result, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Name] = s.Validate(f.Name, values)
	}
	return out
}

// -----------------------------------------------------------------------------
// Rule helpers
// -----------------------------------------------------------------------------

// checkLength counts runes so Hangul nicknames measure the way users see them.
func checkLength(v string, minLen, maxLen int) Result {
	n := utf8.RuneCountInString(v)
	if minLen > 0 && n < minLen {
		return fail(TooShort)
	}
	if maxLen > 0 && n > maxLen {
		return fail(TooLong)
	}
	return passed
}

func checkEmail(v string) Result {
	if v == "" {
		return fail(Empty)
	}
	if !emailRE.MatchString(v) || tags.Var(v, "email") != nil {
		return fail(MalformedEmail)
	}
	return passed
}

// checkStrength requires minLen runes, one ASCII letter, and one digit.
func checkStrength(v string, minLen int) Result {
	var letter, digit bool
	for _, r := range v {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	if utf8.RuneCountInString(v) < minLen || !letter || !digit {
		return fail(TooWeak)
	}
	return passed
}

func checkMatch(v, target string) Result {
	if v == "" {
		return fail(Empty)
	}
	if v != target {
		return fail(Mismatch)
	}
	return passed
}

// -----------------------------------------------------------------------------
// Messages
// -----------------------------------------------------------------------------

// ErrorMessage returns the text for kind, falling back to a generic line.
func (f *FieldSpec) ErrorMessage(kind ErrorKind) string {
	if msg := f.Messages.Errors[kind]; msg != "" {
		return msg
	}
	return "입력값을 확인해주세요."
}

// SuccessMessage returns the text shown once the field is fully satisfied.
func (f *FieldSpec) SuccessMessage() string { return f.Messages.Success }

// MatchesKeyword reports whether msg mentions one of the field's server
// keywords.  Matching ignores ASCII case.
func (f *FieldSpec) MatchesKeyword(msg string) bool {
	lower := strings.ToLower(msg)
	for _, kw := range f.Keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
