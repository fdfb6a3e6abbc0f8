// internal/form/csrf.go
//
// Brunch – Forms subsystem: stateless CSRF tokens.
//
// Context
//   The signup page embeds a `csrf_token` generated at render time, and every
//   state-changing request must echo it back (hidden input or X-CSRF-Token
//   header).  Tokens are stateless:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(key, sessionID+nonce+unixMicro) )
//
//   •  nonce – 16 random bytes.
//   •  unixMicro – issue time, 8 bytes, big-endian.
//   •  HMAC – binds the token to one signup session, so a token lifted from
//      another browser's page is useless.
//
// Workflow
//   •  NewCSRF(key)              → signer built from config http.csrf_key.
//   •  Generate(sessionID)       → token string for the renderer.
//   •  Verify(sessionID, tok)    → constant-time check of signature and age.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"
)

const (
	nonceBytes = 16
	tokenBytes = nonceBytes + 8 + sha256.Size // nonce + ts + sig

	// CSRFMaxAge bounds how long a rendered page stays submittable.
	CSRFMaxAge = 2 * time.Hour
)

// ErrShortCSRFKey rejects keys under 32 bytes.
var ErrShortCSRFKey = errors.New("form: csrf key must be at least 32 bytes")

// CSRF signs and verifies tokens.
type CSRF struct {
	key []byte
	now func() time.Time
}

// NewCSRF returns a signer for key.
func NewCSRF(key []byte) (*CSRF, error) {
	if len(key) < 32 {
		return nil, ErrShortCSRFKey
	}
	return &CSRF{key: append([]byte(nil), key...), now: time.Now}, nil
}

// Generate creates a token bound to sessionID.  Call once per page render.
func (c *CSRF) Generate(sessionID string) (string, error) {
	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(c.now().UnixMicro()))

	buf := make([]byte, 0, tokenBytes)
	buf = append(buf, nonce...)
	buf = append(buf, ts...)
	buf = append(buf, c.sign(sessionID, nonce, ts)...)
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verify reports whether tok was issued for sessionID within CSRFMaxAge.
func (c *CSRF) Verify(sessionID, tok string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}
	nonce, ts, sig := raw[:nonceBytes], raw[nonceBytes:nonceBytes+8], raw[nonceBytes+8:]

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(ts)))
	now := c.now()
	if now.Sub(issued) > CSRFMaxAge || issued.Sub(now) > time.Minute {
		return false
	}
	return hmac.Equal(sig, c.sign(sessionID, nonce, ts))
}

func (c *CSRF) sign(sessionID string, nonce, ts []byte) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(sessionID))
	mac.Write(nonce)
	mac.Write(ts)
	return mac.Sum(nil)
}
