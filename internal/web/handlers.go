// internal/web/handlers.go
//
// Request handlers.  Each one maps to exactly one Controller call.

package web

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/yanizio/brunch/internal/dupcheck"
	"github.com/yanizio/brunch/internal/form"
	"github.com/yanizio/brunch/internal/signup"
)

// maxBody caps request bodies; the largest legitimate one is a 20-rune
// nickname wrapped in JSON.
const maxBody = 4 << 10

type response struct {
	Snapshot signup.Snapshot `json:"snapshot"`
	Error    *apiError       `json:"error,omitempty"`
}

type apiError struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Field   form.FieldName      `json:"field,omitempty"`
	Fields  []signup.FieldError `json:"fields,omitempty"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, response{Snapshot: entryFrom(r).Controller.Snapshot()})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	e := entryFrom(r)
	value, err := readValue(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Snapshot: e.Controller.Snapshot(),
			Error:    &apiError{Code: "bad_request", Message: err.Error()},
		})
		return
	}
	field := form.FieldName(chi.URLParam(r, "field"))
	snap, err := e.Controller.Edit(field, value)
	s.reply(w, snap, field, err)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	e := entryFrom(r)
	if !e.Checks.Allow() {
		writeJSON(w, http.StatusTooManyRequests, response{
			Snapshot: e.Controller.Snapshot(),
			Error:    &apiError{Code: "rate_limited", Message: "잠시 후 다시 시도해주세요."},
		})
		return
	}
	field := form.FieldName(chi.URLParam(r, "field"))
	snap, err := e.Controller.Check(context.WithoutCancel(r.Context()), field)
	s.reply(w, snap, field, err)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	e := entryFrom(r)
	snap, err := e.Controller.Submit(context.WithoutCancel(r.Context()))
	s.reply(w, snap, "", err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, response{Snapshot: entryFrom(r).Controller.Reset()})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// readValue accepts {"value": "..."} JSON or a form-encoded value field.
func readValue(r *http.Request) (string, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "application/json" {
		if err := r.ParseForm(); err != nil {
			return "", err
		}
		return r.PostFormValue("value"), nil
	}
	var body struct {
		Value string `json:"value"`
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", errors.New("body must be {\"value\": string}")
	}
	return body.Value, nil
}

// reply writes snap with the status err maps to.  field names the field the
// request targeted, if any.
func (s *Server) reply(w http.ResponseWriter, snap signup.Snapshot, field form.FieldName, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, response{Snapshot: snap})
		return
	}
	code, ae := s.classify(field, err)
	if code >= http.StatusInternalServerError {
		s.log.Warnw("signup request failed", "code", ae.Code, "err", err)
	}
	writeJSON(w, code, response{Snapshot: snap, Error: ae})
}

// classify maps controller errors to an HTTP status and a user-facing body.
func (s *Server) classify(field form.FieldName, err error) (int, *apiError) {
	var (
		syn *signup.SyntaxError
		val *signup.ValidationError
		rej *signup.SubmitRejectedError
		cte *signup.CheckTransportError
	)
	switch {
	case errors.As(err, &syn) && syn.Reason == form.UnknownField:
		return http.StatusNotFound, &apiError{Code: "unknown_field", Message: err.Error(), Field: syn.Field}
	case errors.As(err, &syn):
		return http.StatusUnprocessableEntity, &apiError{Code: "invalid", Message: s.fieldError(syn.Field, syn.Reason), Field: syn.Field}
	case errors.As(err, &val):
		return http.StatusUnprocessableEntity, &apiError{Code: "invalid", Message: s.spec.Status.Invalid, Fields: val.Fields}
	case errors.Is(err, signup.ErrDuplicateTaken):
		return http.StatusConflict, &apiError{Code: "taken", Message: s.fieldText(field, func(f *form.FieldSpec) string { return f.Messages.Taken }), Field: field}
	case errors.As(err, &rej):
		return http.StatusConflict, &apiError{Code: "rejected", Message: rej.Message, Field: rej.Field}
	case errors.Is(err, signup.ErrStaleResult):
		return http.StatusConflict, &apiError{Code: "stale", Message: err.Error()}
	case errors.Is(err, dupcheck.ErrInFlight), errors.Is(err, signup.ErrSubmitInFlight):
		return http.StatusConflict, &apiError{Code: "in_flight", Message: err.Error()}
	case errors.Is(err, dupcheck.ErrNotCheckable):
		return http.StatusNotFound, &apiError{Code: "not_checkable", Message: err.Error()}
	case errors.As(err, &cte):
		return http.StatusBadGateway, &apiError{Code: "unreachable", Message: s.fieldText(cte.Field, func(f *form.FieldSpec) string { return f.Messages.Failed }), Field: cte.Field}
	case signup.IsTransportError(err):
		return http.StatusBadGateway, &apiError{Code: "unreachable", Message: s.spec.Status.Unreachable}
	default:
		return http.StatusInternalServerError, &apiError{Code: "internal", Message: s.spec.Status.Failed}
	}
}

func (s *Server) fieldError(name form.FieldName, kind form.ErrorKind) string {
	return s.fieldText(name, func(f *form.FieldSpec) string { return f.ErrorMessage(kind) })
}

// fieldText picks a message from name's spec, falling back to the generic
// failure line.
func (s *Server) fieldText(name form.FieldName, pick func(*form.FieldSpec) string) string {
	if f, ok := s.spec.Field(name); ok {
		if msg := pick(f); msg != "" {
			return msg
		}
	}
	return s.spec.Status.Failed
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
