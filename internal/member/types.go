// internal/member/types.go
//
// Brunch – member API payloads.
//
// Context
//   The remote market API is loose about types: "ok" arrives as a boolean or
//   as 1/0, and record IDs arrive as numbers or strings.  Flag and ID absorb
//   that so the signup engine only ever sees plain Go values.
//
//------------------------------------------------------------------------------

package member

import (
	"bytes"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// Flag decodes true/false, 1/0, and "true"/"1" alike.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	switch s {
	case "true", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

// ID decodes a numeric or string identifier into its string form.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return err
	}
	*id = ID(b)
	return nil
}

// Record is one registered member as the directory reports it.
type Record struct {
	ID        ID     `json:"_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Column returns the record's value for a directory column name.  Unknown
// columns yield "", which never matches a syntactically valid value.
func (r Record) Column(name string) string {
	switch name {
	case "name":
		return r.Name
	case "email":
		return r.Email
	case "_id", "id":
		return string(r.ID)
	default:
		return ""
	}
}

// Roster is the result of listing every member.
type Roster struct {
	OK    bool
	Items []Record
}

// RegisterRequest is the signup payload.  The service uses the email as the
// login ID.
type RegisterRequest struct {
	ID    string `json:"id"    validate:"required,email"`
	PW    string `json:"pw"    validate:"required,min=8"`
	Name  string `json:"name"  validate:"required,min=2,max=20"`
	Email string `json:"email" validate:"required,email"`
}

// Validate checks r against its struct tags.  Failures wrap
// ErrInvalidPayload.
func (r RegisterRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// RegisterResult is the service's answer to a signup.
type RegisterResult struct {
	OK      bool
	Message string
	Token   string
	Data    *Record
}

// envelope covers every response shape the service has been seen to use.
type envelope struct {
	OK      Flag            `json:"ok"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Item    json.RawMessage `json:"item"`
	Items   json.RawMessage `json:"items"`
	Data    json.RawMessage `json:"data"`
}
