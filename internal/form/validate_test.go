// internal/form/validate_test.go
//
// Unit-tests for the syntactic field rules.
//
// Run: go test ./internal/form -v

package form

import (
	"strings"
	"testing"

	"github.com/yanizio/brunch/internal/member"
)

func TestValidate_Nickname(t *testing.T) {
	s := Default()
	tests := []struct {
		name  string
		value string
		want  Result
	}{
		{"empty", "", Result{Reason: TooShort}},
		{"one char", "a", Result{Reason: TooShort}},
		{"two chars", "ab", Result{Valid: true}},
		{"twenty chars", strings.Repeat("x", 20), Result{Valid: true}},
		{"twenty one chars", strings.Repeat("x", 21), Result{Reason: TooLong}},
		{"hangul counted by rune", "브런치", Result{Valid: true}},
		{"twenty hangul", strings.Repeat("가", 20), Result{Valid: true}},
		{"padding trimmed to one", "  a  ", Result{Reason: TooShort}},
		{"padding trimmed", "  ab  ", Result{Valid: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Validate(Nickname, Values{Nickname: tt.value})
			if got != tt.want {
				t.Errorf("Validate(nickname, %q) = %+v, want %+v", tt.value, got, tt.want)
			}
		})
	}
}

func TestValidate_Email(t *testing.T) {
	s := Default()
	tests := []struct {
		name  string
		value string
		want  Result
	}{
		{"empty", "", Result{Reason: Empty}},
		{"spaces only", "   ", Result{Reason: Empty}},
		{"plain", "a@b.com", Result{Valid: true}},
		{"subdomain", "writer@mail.brunch.co.kr", Result{Valid: true}},
		{"plus tag", "first.last+news@example.org", Result{Valid: true}},
		{"surrounding space", " a@b.com ", Result{Valid: true}},
		{"no at", "not-an-email", Result{Reason: MalformedEmail}},
		{"no tld", "a@b", Result{Reason: MalformedEmail}},
		{"two ats", "a@@b.com", Result{Reason: MalformedEmail}},
		{"inner space", "a b@c.com", Result{Reason: MalformedEmail}},
		{"missing local", "@b.com", Result{Reason: MalformedEmail}},
		{"leading dot", ".abc@brunch.co.kr", Result{Reason: MalformedEmail}},
		{"doubled dot", "a..b@brunch.co.kr", Result{Reason: MalformedEmail}},
		{"trailing dot", "abc.@brunch.co.kr", Result{Reason: MalformedEmail}},
		{"hyphen-led label", "a@-brunch.co.kr", Result{Reason: MalformedEmail}},
		{"hyphen-ended label", "a@brunch-.co.kr", Result{Reason: MalformedEmail}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Validate(Email, Values{Email: tt.value})
			if got != tt.want {
				t.Errorf("Validate(email, %q) = %+v, want %+v", tt.value, got, tt.want)
			}
		})
	}
}

// Every address the form accepts must also pass the register payload's
// validation, or the gate opens on a submission that can never be sent.
func TestValidate_EmailAgreesWithRegisterPayload(t *testing.T) {
	s := Default()
	for _, addr := range []string{
		"a@b.com",
		"writer@mail.brunch.co.kr",
		"first.last+news@example.org",
		"under_score@x-y.kr",
		" padded@brunch.co.kr ",
		".abc@x.kr",
		"a..b@x.kr",
		"abc.@x.kr",
		"a@-x.kr",
		"a@x-.kr",
		"a@b",
	} {
		if !s.Validate(Email, Values{Email: addr}).Valid {
			continue
		}
		v := strings.TrimSpace(addr)
		req := member.RegisterRequest{ID: v, PW: "abcdefg1", Name: "ab", Email: v}
		if err := req.Validate(); err != nil {
			t.Errorf("form accepts %q but register payload rejects it: %v", addr, err)
		}
	}
}

func TestValidate_Password(t *testing.T) {
	s := Default()
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"empty", "", false},
		{"seven mixed", "abcdef1", false},
		{"eight mixed", "abcdefg1", true},
		{"letters only", "abcdefgh", false},
		{"digits only", "12345678", false},
		{"upper and digit", "ABCDEFG1", true},
		{"hangul does not count as letter", "가나다라마바사1", false},
		{"spaces kept", " abcdef1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Validate(Password, Values{Password: tt.value})
			if got.Valid != tt.valid {
				t.Errorf("Validate(password, %q).Valid = %v, want %v", tt.value, got.Valid, tt.valid)
			}
			if !got.Valid && got.Reason != TooWeak {
				t.Errorf("Validate(password, %q).Reason = %q, want %q", tt.value, got.Reason, TooWeak)
			}
		})
	}
}

func TestValidate_PasswordConfirm(t *testing.T) {
	s := Default()
	tests := []struct {
		name     string
		password string
		confirm  string
		want     Result
	}{
		{"empty", "abcdefg1", "", Result{Reason: Empty}},
		{"mismatch", "abcdefg1", "abcdefg2", Result{Reason: Mismatch}},
		{"match", "abcdefg1", "abcdefg1", Result{Valid: true}},
		{"match ignores strength", "x", "x", Result{Valid: true}},
		{"not trimmed", "abcdefg1", "abcdefg1 ", Result{Reason: Mismatch}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Validate(PasswordConfirm, Values{Password: tt.password, PasswordConfirm: tt.confirm})
			if got != tt.want {
				t.Errorf("Validate(passwordConfirm) = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	s := Default()
	values := Values{Nickname: "ab", Email: "a@b", Password: "abcdefg1", PasswordConfirm: "abcdefg1"}
	first := s.ValidateAll(values)
	second := s.ValidateAll(values)
	for name, r := range first {
		if second[name] != r {
			t.Errorf("field %s: second call = %+v, first = %+v", name, second[name], r)
		}
	}
	if values[Email] != "a@b" {
		t.Fatalf("values mutated: %q", values[Email])
	}
}

func TestValidate_UnknownField(t *testing.T) {
	got := Default().Validate("age", Values{"age": "12"})
	if got.Valid || got.Reason != UnknownField {
		t.Fatalf("got %+v, want UnknownField", got)
	}
}

func TestMatchesKeyword(t *testing.T) {
	s := Default()
	email, _ := s.Field(Email)
	nick, _ := s.Field(Nickname)

	if !email.MatchesKeyword("이미 등록된 이메일입니다.") {
		t.Error("email keyword not matched in Korean message")
	}
	if !email.MatchesKeyword("Email already exists") {
		t.Error("email keyword should ignore case")
	}
	if nick.MatchesKeyword("이미 등록된 이메일입니다.") {
		t.Error("nickname matched an email message")
	}
	if !nick.MatchesKeyword("이미 사용 중인 별명입니다.") {
		t.Error("nickname keyword not matched")
	}
}

func TestErrorMessage_Fallback(t *testing.T) {
	nick, _ := Default().Field(Nickname)
	if got := nick.ErrorMessage(TooShort); got != "별명은 2자 이상 입력해주세요." {
		t.Errorf("TooShort message = %q", got)
	}
	if got := nick.ErrorMessage(Mismatch); got != "입력값을 확인해주세요." {
		t.Errorf("fallback message = %q", got)
	}
}
