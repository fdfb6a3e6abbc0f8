// internal/web/server_test.go
//
// End-to-end tests of the signup host through its chi router.
//
// Run: go test ./internal/web -v

package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/yanizio/brunch/internal/form"
	"github.com/yanizio/brunch/internal/member"
	"github.com/yanizio/brunch/internal/session"
	"github.com/yanizio/brunch/internal/signup"
)

// -----------------------------------------------------------------------------
// Fakes and helpers
// -----------------------------------------------------------------------------

type fakeDirectory struct{ records []member.Record }

func (f *fakeDirectory) FetchAllUsers(context.Context) (member.Roster, error) {
	return member.Roster{OK: true, Items: f.records}, nil
}

type fakeRegistrar struct {
	res   member.RegisterResult
	err   error
	calls int32
}

func (f *fakeRegistrar) RegisterUser(context.Context, member.RegisterRequest) (member.RegisterResult, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.res, f.err
}

func newTestServer(t *testing.T, dir *fakeDirectory, reg *fakeRegistrar, burst int) http.Handler {
	t.Helper()
	csrf, err := form.NewCSRF([]byte(strings.Repeat("x", 32)))
	if err != nil {
		t.Fatal(err)
	}
	return New(Deps{
		Spec:      form.Default(),
		Directory: dir,
		Registrar: reg,
		CSRF:      csrf,
		Sessions:  session.Options{IdleTTL: time.Minute, MaxEntries: 10, CheckRate: 0.001, CheckBurst: burst},
	}).Routes()
}

var tokenRE = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// browser carries the session cookie and CSRF token between requests.
type browser struct {
	t      *testing.T
	h      http.Handler
	cookie *http.Cookie
	token  string
}

func open(t *testing.T, h http.Handler) (*browser, *httptest.ResponseRecorder) {
	t.Helper()
	b := &browser{t: t, h: h}
	rec := b.do(http.MethodGet, "/signup", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /signup = %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			b.cookie = c
		}
	}
	if b.cookie == nil {
		t.Fatal("no session cookie set")
	}
	m := tokenRE.FindStringSubmatch(rec.Body.String())
	if m == nil {
		t.Fatal("no csrf token in page")
	}
	b.token = m[1]
	return b, rec
}

func (b *browser) do(method, path, jsonBody string) *httptest.ResponseRecorder {
	var req *http.Request
	if jsonBody != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	if b.token != "" {
		req.Header.Set("X-CSRF-Token", b.token)
	}
	rec := httptest.NewRecorder()
	b.h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var out response
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func (b *browser) edit(field, value string) response {
	b.t.Helper()
	body, _ := json.Marshal(map[string]string{"value": value})
	rec := b.do(http.MethodPost, "/signup/fields/"+field, string(body))
	if rec.Code != http.StatusOK {
		b.t.Fatalf("edit %s = %d: %s", field, rec.Code, rec.Body.String())
	}
	return decode(b.t, rec)
}

func (b *browser) fill() {
	b.t.Helper()
	b.edit("nickname", "브런치")
	b.edit("email", "new@brunch.co.kr")
	b.edit("password", "Abcdefg1")
	b.edit("passwordConfirm", "Abcdefg1")
}

// -----------------------------------------------------------------------------
// Tests
// -----------------------------------------------------------------------------

func TestPage_RendersPristineForm(t *testing.T) {
	_, rec := open(t, newTestServer(t, &fakeDirectory{}, &fakeRegistrar{}, 5))
	body := rec.Body.String()

	for _, want := range []string{
		`id="fld-nickname"`,
		`id="fld-passwordConfirm"`,
		`data-check="email"`,
		`class="submit-btn" disabled`,
		`<script src="/signup/static/signup.js" defer></script>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %s", want)
		}
	}
	if strings.Contains(body, "field--") {
		t.Error("pristine page shows field status")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("security headers missing")
	}
}

func TestPost_RequiresCSRF(t *testing.T) {
	b, _ := open(t, newTestServer(t, &fakeDirectory{}, &fakeRegistrar{}, 5))
	b.token = "forged"
	rec := b.do(http.MethodPost, "/signup/fields/nickname", `{"value":"브런치"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("code = %d, want 403", rec.Code)
	}
	if decode(t, rec).Error.Code != "csrf" {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestFlow_RegisterSuccess(t *testing.T) {
	reg := &fakeRegistrar{res: member.RegisterResult{OK: true}}
	b, _ := open(t, newTestServer(t, &fakeDirectory{}, reg, 5))
	b.fill()

	for _, f := range []string{"nickname", "email"} {
		rec := b.do(http.MethodPost, "/signup/checks/"+f, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("check %s = %d: %s", f, rec.Code, rec.Body.String())
		}
	}
	state := decode(t, b.do(http.MethodGet, "/signup/state", ""))
	if !state.Snapshot.CanSubmit {
		t.Fatalf("gate closed: %+v", state.Snapshot)
	}

	rec := b.do(http.MethodPost, "/signup/submit", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("submit = %d: %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	if out.Snapshot.Status.Message != "회원가입이 완료되었습니다!" || out.Snapshot.CanSubmit {
		t.Fatalf("snapshot = %+v", out.Snapshot)
	}
	if n := atomic.LoadInt32(&reg.calls); n != 1 {
		t.Fatalf("registrar called %d times", n)
	}
}

func TestCheck_ErrorMapping(t *testing.T) {
	dir := &fakeDirectory{records: []member.Record{{Name: "브런치", Email: "x@y.com"}}}
	b, _ := open(t, newTestServer(t, dir, &fakeRegistrar{}, 5))

	b.edit("email", "nope")
	rec := b.do(http.MethodPost, "/signup/checks/email", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid email check = %d", rec.Code)
	}
	if e := decode(t, rec).Error; e.Code != "invalid" || e.Message != "올바른 이메일 형식이 아니에요." {
		t.Fatalf("error = %+v", e)
	}

	b.edit("nickname", "브런치")
	rec = b.do(http.MethodPost, "/signup/checks/nickname", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("taken check = %d", rec.Code)
	}
	if e := decode(t, rec).Error; e.Code != "taken" || e.Message != "이미 사용 중인 별명입니다." {
		t.Fatalf("error = %+v", e)
	}

	if rec := b.do(http.MethodPost, "/signup/checks/password", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("password check = %d, want 404", rec.Code)
	}
	if rec := b.do(http.MethodPost, "/signup/fields/age", `{"value":"3"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown field edit = %d, want 404", rec.Code)
	}
}

func TestCheck_RateLimited(t *testing.T) {
	b, _ := open(t, newTestServer(t, &fakeDirectory{}, &fakeRegistrar{}, 1))
	b.edit("nickname", "브런치")

	if rec := b.do(http.MethodPost, "/signup/checks/nickname", ""); rec.Code != http.StatusOK {
		t.Fatalf("first check = %d", rec.Code)
	}
	rec := b.do(http.MethodPost, "/signup/checks/nickname", "")
	if rec.Code != http.StatusTooManyRequests || decode(t, rec).Error.Code != "rate_limited" {
		t.Fatalf("second check = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubmit_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		reg      *fakeRegistrar
		ready    bool
		wantCode int
		wantErr  string
	}{
		{"blocked", &fakeRegistrar{}, false, http.StatusUnprocessableEntity, "invalid"},
		{"rejected", &fakeRegistrar{res: member.RegisterResult{Message: "이미 가입된 이메일입니다"}}, true, http.StatusConflict, "rejected"},
		{"unreachable", &fakeRegistrar{err: errors.New("dial tcp: timeout")}, true, http.StatusBadGateway, "unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := open(t, newTestServer(t, &fakeDirectory{}, tt.reg, 5))
			if tt.ready {
				b.fill()
				b.do(http.MethodPost, "/signup/checks/nickname", "")
				b.do(http.MethodPost, "/signup/checks/email", "")
			}
			rec := b.do(http.MethodPost, "/signup/submit", "")
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			out := decode(t, rec)
			if out.Error == nil || out.Error.Code != tt.wantErr {
				t.Fatalf("error = %+v, want %s", out.Error, tt.wantErr)
			}
			if tt.name == "rejected" {
				v, _ := out.Snapshot.Field(form.Email)
				if v.Status != signup.Error || out.Error.Field != form.Email {
					t.Fatalf("email view = %+v, field = %s", v, out.Error.Field)
				}
			}
		})
	}
}

func TestReset(t *testing.T) {
	b, _ := open(t, newTestServer(t, &fakeDirectory{}, &fakeRegistrar{}, 5))
	b.fill()
	rec := b.do(http.MethodPost, "/signup/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset = %d", rec.Code)
	}
	if v, _ := decode(t, rec).Snapshot.Field(form.Nickname); v.Value != "" {
		t.Fatalf("nickname = %q after reset", v.Value)
	}
}

func TestPage_ReloadClearsPasswords(t *testing.T) {
	h := newTestServer(t, &fakeDirectory{}, &fakeRegistrar{}, 5)
	b, _ := open(t, h)
	b.fill()
	b.do(http.MethodPost, "/signup/checks/nickname", "")
	b.do(http.MethodPost, "/signup/checks/email", "")
	if !decode(t, b.do(http.MethodGet, "/signup/state", "")).Snapshot.CanSubmit {
		t.Fatal("gate closed before reload")
	}

	rec := b.do(http.MethodGet, "/signup", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reload = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `class="submit-btn" disabled`) {
		t.Error("reloaded page offers an enabled submit button")
	}
	state := decode(t, b.do(http.MethodGet, "/signup/state", "")).Snapshot
	if state.CanSubmit {
		t.Fatal("gate open after reload with blank password inputs")
	}
	if v, _ := state.Field(form.Nickname); v.Value != "브런치" {
		t.Fatalf("nickname = %q after reload", v.Value)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	h := newTestServer(t, &fakeDirectory{}, &fakeRegistrar{}, 5)
	for _, path := range []string{"/healthz", "/metrics", "/signup/static/signup.js"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
	}
}
