// internal/audit/store.go
//
// Signup attempt log.
//
// Context
// -------
// Every submission, whether blocked, refused, unreachable, or successful,
// leaves one row:
//
//	signup_attempt (id PK, nickname, email, outcome, message,
//	                browser, os, device, created_at)
//
// Passwords are never stored.  The table answers operational questions
// ("how many registrations failed on the member API today?") without
// touching the member service itself.
//
// Notes
// -----
// • Writes go through sqlx named statements.
// • A nil *Store is never handed out; use Noop when no DSN is configured.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/brunch/internal/signup"
	"github.com/yanizio/brunch/internal/ua"
)

// Entry is one signup_attempt row.
type Entry struct {
	ID        int64     `db:"id"`
	Nickname  string    `db:"nickname"`
	Email     string    `db:"email"`
	Outcome   string    `db:"outcome"`
	Message   string    `db:"message"`
	Browser   string    `db:"browser"`
	OS        string    `db:"os"`
	Device    string    `db:"device"`
	CreatedAt time.Time `db:"created_at"`
}

// Store writes and reads signup_attempt.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open pool.
func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

const schema = `CREATE TABLE IF NOT EXISTS signup_attempt (
    id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    nickname   VARCHAR(64)  NOT NULL,
    email      VARCHAR(255) NOT NULL,
    outcome    VARCHAR(32)  NOT NULL,
    message    VARCHAR(255) NOT NULL DEFAULT '',
    browser    VARCHAR(64)  NOT NULL DEFAULT '',
    os         VARCHAR(64)  NOT NULL DEFAULT '',
    device     VARCHAR(16)  NOT NULL DEFAULT '',
    created_at DATETIME     NOT NULL,
    KEY idx_signup_attempt_created (created_at)
)`

// Migrate creates the table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("audit: migrate: %w", err)
	}
	return nil
}

// Insert appends e and returns its id.
func (s *Store) Insert(ctx context.Context, e Entry) (int64, error) {
	const q = `INSERT INTO signup_attempt
                   (nickname, email, outcome, message, browser, os, device, created_at)
            VALUES (:nickname, :email, :outcome, :message, :browser, :os, :device, :created_at)`

	res, err := s.db.NamedExecContext(ctx, q, e)
	if err != nil {
		return 0, fmt.Errorf("audit: insert: %w", err)
	}
	return res.LastInsertId()
}

// CountSince tallies attempts per outcome since t.
func (s *Store) CountSince(ctx context.Context, t time.Time) (map[string]int, error) {
	const q = `SELECT outcome, COUNT(*) AS n
                 FROM signup_attempt
                WHERE created_at >= ?
                GROUP BY outcome`

	var rows []struct {
		Outcome string `db:"outcome"`
		N       int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows, q, t); err != nil {
		return nil, fmt.Errorf("audit: count: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Outcome] = r.N
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// signup.Recorder adapters
// -----------------------------------------------------------------------------

// Recorder writes one session's attempts, tagged with the client it came
// from.
type Recorder struct {
	Store *Store
	Agent ua.Info
}

// RecordAttempt implements signup.Recorder.
func (r Recorder) RecordAttempt(ctx context.Context, a signup.Attempt) error {
	_, err := r.Store.Insert(ctx, Entry{
		Nickname:  truncate(a.Nickname, 64),
		Email:     truncate(a.Email, 255),
		Outcome:   string(a.Outcome),
		Message:   truncate(a.Message, 255),
		Browser:   truncate(r.Agent.Family(), 64),
		OS:        truncate(r.Agent.OS, 64),
		Device:    r.Agent.Device,
		CreatedAt: a.At.UTC(),
	})
	return err
}

// Noop discards attempts.
type Noop struct{}

// RecordAttempt implements signup.Recorder.
func (Noop) RecordAttempt(context.Context, signup.Attempt) error { return nil }

// truncate clips s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
