// internal/member/client.go
//
// Brunch – member API client.
//
// Context
//   The signup engine needs two remote calls: list every member (duplicate
//   checks scan the roster) and register a new member.  Client implements
//   both over HTTP.  Listing is idempotent, so it goes through go-retryablehttp
//   with a small retry budget; registration is NOT retried because a replayed
//   POST could create the account twice.
//
// Workflow
//   •  NewClient resolves the base URL and builds the retrying transport.
//   •  FetchAllUsers GETs the users path and accepts a bare array or an
//      envelope carrying "item", "items", or "data".
//   •  RegisterUser validates the payload, POSTs it once, and folds non-2xx
//      answers into RegisterResult{OK: false} with the server message.
//
//------------------------------------------------------------------------------

package member

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/yanizio/brunch/internal/metrics"
)

const (
	maxBodyBytes   = 4 << 20
	defaultTimeout = 10 * time.Second
)

// ErrInvalidPayload wraps register payloads that fail struct validation.
var ErrInvalidPayload = errors.New("member: invalid register payload")

var validate = validator.New()

// Options configures a Client.  Zero values fall back to the market API
// defaults.
type Options struct {
	BaseURL      string
	UsersPath    string
	RegisterPath string
	Timeout      time.Duration
	RetryMax     int
	HTTPClient   *http.Client // optional; tests inject httptest clients
}

// Client talks to the member service.  Safe for concurrent use.
type Client struct {
	rc           *retryablehttp.Client
	base         *url.URL
	usersPath    string
	registerPath string
	log          *zap.SugaredLogger
}

// NewClient builds a Client.  log may be nil.
func NewClient(opts Options, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("member: bad base URL %q", opts.BaseURL)
	}
	if opts.UsersPath == "" {
		opts.UsersPath = "/users"
	}
	if opts.RegisterPath == "" {
		opts.RegisterPath = "/member/register"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = leveledLogger{log}
	if opts.HTTPClient != nil {
		rc.HTTPClient = opts.HTTPClient
	}
	rc.HTTPClient.Timeout = opts.Timeout

	return &Client{
		rc:           rc,
		base:         base,
		usersPath:    opts.UsersPath,
		registerPath: opts.RegisterPath,
		log:          log,
	}, nil
}

// -----------------------------------------------------------------------------
// Listing
// -----------------------------------------------------------------------------

// FetchAllUsers returns every registered member.  Transport failures and
// exhausted retries are errors; a well-formed "ok": false answer is a Roster
// with OK unset.
func (c *Client) FetchAllUsers(ctx context.Context) (Roster, error) {
	defer observe("fetch_all_users", time.Now())

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(c.usersPath), nil)
	if err != nil {
		return Roster{}, fmt.Errorf("member: build list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.rc.Do(req)
	if err != nil {
		c.log.Warnw("member list failed", "err", err)
		return Roster{}, fmt.Errorf("member: list users: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Roster{}, fmt.Errorf("member: read list body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warnw("member list rejected", "status", resp.StatusCode)
		return Roster{OK: false}, nil
	}

	items, ok, err := parseRoster(body)
	if err != nil {
		return Roster{}, fmt.Errorf("member: decode list: %w", err)
	}
	return Roster{OK: ok, Items: items}, nil
}

// parseRoster accepts a bare array or an envelope.  The first list-shaped
// member among item, items, and data wins.
func parseRoster(body []byte) ([]Record, bool, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var items []Record
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, false, err
		}
		return items, true, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, false, err
	}
	for _, raw := range []json.RawMessage{env.Item, env.Items, env.Data} {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '[' {
			continue
		}
		var items []Record
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, false, err
		}
		return items, bool(env.OK), nil
	}
	return nil, bool(env.OK), nil
}

// -----------------------------------------------------------------------------
// Registration
// -----------------------------------------------------------------------------

// RegisterUser submits one signup.  The request is sent at most once.
func (c *Client) RegisterUser(ctx context.Context, in RegisterRequest) (RegisterResult, error) {
	if err := in.Validate(); err != nil {
		return RegisterResult{}, err
	}
	defer observe("register_user", time.Now())

	payload, err := json.Marshal(in)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("member: encode register: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.registerPath), bytes.NewReader(payload))
	if err != nil {
		return RegisterResult{}, fmt.Errorf("member: build register request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.rc.HTTPClient.Do(req)
	if err != nil {
		c.log.Warnw("member register failed", "err", err)
		return RegisterResult{}, fmt.Errorf("member: register: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return RegisterResult{}, fmt.Errorf("member: read register body: %w", err)
	}

	var env envelope
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &env); err != nil && resp.StatusCode < 300 {
			return RegisterResult{}, fmt.Errorf("member: decode register: %w", err)
		}
	}

	res := RegisterResult{
		OK:      bool(env.OK) && resp.StatusCode >= 200 && resp.StatusCode <= 299,
		Message: env.Message,
		Token:   env.Token,
		Data:    firstRecord(env.Item, env.Data),
	}
	if !res.OK {
		c.log.Infow("member register rejected", "status", resp.StatusCode, "message", env.Message)
	}
	return res, nil
}

// firstRecord decodes the first object-shaped payload, if any.
func firstRecord(raws ...json.RawMessage) *Record {
	for _, raw := range raws {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			continue
		}
		var r Record
		if err := json.Unmarshal(raw, &r); err == nil {
			return &r
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (c *Client) endpoint(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.base.String() + path
	}
	u := *c.base
	u.Path = joinPath(c.base.Path, ref.Path)
	u.RawQuery = ref.RawQuery
	return u.String()
}

func joinPath(a, b string) string {
	switch {
	case a == "":
		return b
	case len(a) > 0 && a[len(a)-1] == '/' && len(b) > 0 && b[0] == '/':
		return a + b[1:]
	case len(a) > 0 && a[len(a)-1] != '/' && (len(b) == 0 || b[0] != '/'):
		return a + "/" + b
	default:
		return a + b
	}
}

func observe(op string, start time.Time) {
	metrics.MemberAPISeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct{ s *zap.SugaredLogger }

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
