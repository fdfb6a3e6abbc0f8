// internal/web/render.go
//
// Brunch – signup page renderer.
//
// Context
//   The page is a plain HTML form drawn from one Snapshot.  Every field's
//   look comes from the snapshot's derived status, so the server-rendered
//   page and the script's later re-renders agree.
//
// Style
//   Each input gets id="fld-{name}" and sits in <div class="form-field">.
//   Status is a class hook: field--info, field--success, or field--error
//   (neutral fields carry none).  The submit button is `disabled` until the
//   gate opens, then gains `is-active`.
//
//------------------------------------------------------------------------------

package web

import (
	"bytes"
	_ "embed"
	"fmt"
	"html"
	"net/http"
	"strconv"

	"github.com/yanizio/brunch/internal/form"
	"github.com/yanizio/brunch/internal/signup"
)

//go:embed static/signup.js
var signupJS []byte

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	e := entryFrom(r)
	tok, err := s.csrf.Generate(e.ID)
	if err != nil {
		s.log.Errorw("csrf token generation failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Password inputs are never echoed, so a reload starts them over.
	var buf bytes.Buffer
	renderPage(&buf, s.spec, e.Controller.ForgetSecrets(), tok)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(signupJS)
}

// renderPage writes the full document.
func renderPage(buf *bytes.Buffer, spec *form.Spec, snap signup.Snapshot, csrfToken string) {
	title := html.EscapeString(spec.Title)

	buf.WriteString("<!doctype html>\n<html lang=\"ko\">\n<head>\n<meta charset=\"utf-8\">\n")
	buf.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">` + "\n")
	buf.WriteString("<title>" + title + "</title>\n</head>\n<body>\n")

	fmt.Fprintf(buf, `<form id="signup" class="signup-form" method="post" action="/signup/submit" novalidate data-version="%d">`+"\n", snap.Version)
	buf.WriteString("<h1>" + title + "</h1>\n")

	for _, v := range snap.Fields {
		f, ok := spec.Field(v.Name)
		if !ok {
			continue
		}
		writeField(buf, f, v)
	}

	buf.WriteString(`<input type="hidden" name="csrf_token" value="` + html.EscapeString(csrfToken) + `">` + "\n")

	statusClass := "form-status"
	if snap.Status.Kind != signup.Neutral && snap.Status.Kind != "" {
		statusClass += " form-status--" + string(snap.Status.Kind)
	}
	buf.WriteString(`<p class="` + statusClass + `" aria-live="polite">` + html.EscapeString(snap.Status.Message) + `</p>` + "\n")

	buf.WriteString(`<button type="submit" class="submit-btn`)
	if snap.CanSubmit {
		buf.WriteString(` is-active">`)
	} else {
		buf.WriteString(`" disabled>`)
	}
	buf.WriteString("가입하기</button>\n</form>\n")
	buf.WriteString(`<script src="/signup/static/signup.js" defer></script>` + "\n</body>\n</html>\n")
}

// writeField emits one field block.  Password values are never echoed.
func writeField(buf *bytes.Buffer, f *form.FieldSpec, v signup.FieldView) {
	name := html.EscapeString(string(f.Name))

	class := "form-field"
	if v.Status != signup.Neutral {
		class += " field--" + string(v.Status)
	}
	buf.WriteString(`<div class="` + class + `" data-field="` + name + `">` + "\n")
	buf.WriteString(`<label for="fld-` + name + `">` + html.EscapeString(f.Label) + `</label>` + "\n")

	buf.WriteString(`<input id="fld-` + name + `" name="` + name + `" type="` + html.EscapeString(f.Type) + `"`)
	if f.Placeholder != "" {
		buf.WriteString(` placeholder="` + html.EscapeString(f.Placeholder) + `"`)
	}
	if f.MinLength > 0 {
		buf.WriteString(` minlength="` + strconv.Itoa(f.MinLength) + `"`)
	}
	if f.MaxLength > 0 {
		buf.WriteString(` maxlength="` + strconv.Itoa(f.MaxLength) + `"`)
	}
	switch f.Type {
	case "password":
		buf.WriteString(` autocomplete="new-password"`)
	case "email":
		buf.WriteString(` autocomplete="email"`)
	default:
		buf.WriteString(` autocomplete="nickname"`)
	}
	if v.Value != "" && f.Type != "password" {
		buf.WriteString(` value="` + html.EscapeString(v.Value) + `"`)
	}
	buf.WriteString(` required>` + "\n")

	if f.Checkable {
		buf.WriteString(`<button type="button" class="check-btn" data-check="` + name + `"`)
		if !v.CheckEnabled {
			buf.WriteString(` disabled`)
		}
		buf.WriteString(`>중복확인</button>` + "\n")
	}

	buf.WriteString(`<span class="field-message" aria-live="polite">` + html.EscapeString(v.Message) + `</span>` + "\n")
	buf.WriteString(`</div>` + "\n")
}
