// internal/config/model.go
//
// Typed configuration model for Brunch signup.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                          – dotenv values,
//   • `conf/global.yaml`                       – primary static file,
//   • `BRUNCH_`-prefixed environment overrides – highest precedence.
//
// Validation happens immediately after unmarshal and defaults; the app
// fails fast if required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • Durations accept Go syntax ("750ms", "10s", "30m").
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
	// CSRFKey signs form tokens.  Keep it out of YAML; set BRUNCH_HTTP__CSRF_KEY.
	CSRFKey string `koanf:"csrf_key" validate:"required,min=32"`
}

//
// Member API section
//

// API points at the member REST service that owns the directory and the
// registration endpoint.
type API struct {
	BaseURL      string        `koanf:"base_url"      validate:"required,url"`
	UsersPath    string        `koanf:"users_path"    validate:"omitempty,startswith=/"`
	RegisterPath string        `koanf:"register_path" validate:"omitempty,startswith=/"`
	Timeout      time.Duration `koanf:"timeout"       validate:"gte=0"`
	RetryMax     int           `koanf:"retry_max"     validate:"gte=0,lte=10"`
}

//
// Session section
//

// Session bounds the in-memory form sessions.
type Session struct {
	IdleTTL     time.Duration `koanf:"idle_ttl"     validate:"gte=0"`
	MaxSessions int           `koanf:"max_sessions" validate:"gte=0"`
	CheckRate   float64       `koanf:"check_rate"   validate:"gte=0"` // duplicate checks per second
	CheckBurst  int           `koanf:"check_burst"  validate:"gte=0"`
}

//
// Form section
//

// Form optionally replaces the embedded signup definition.
type Form struct {
	Definition string `koanf:"definition"`
}

//
// Audit section
//

// Audit enables the attempt log when DSN is set.
type Audit struct {
	DSN string `koanf:"dsn"`
}

//
// Log section
//

// Log controls the zap logger.
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Tee   bool   `koanf:"tee"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime.
type Paths struct {
	Root string // BRUNCH_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads.
type Config struct {
	HTTP    HTTP    `koanf:"http"`
	API     API     `koanf:"api"`
	Session Session `koanf:"session"`
	Form    Form    `koanf:"form"`
	Audit   Audit   `koanf:"audit"`
	Log     Log     `koanf:"log"`
	Paths   Paths   `koanf:"-"`
}

// applyDefaults fills zero values the YAML may omit.
func (c *Config) applyDefaults() {
	if c.API.UsersPath == "" {
		c.API.UsersPath = "/users"
	}
	if c.API.RegisterPath == "" {
		c.API.RegisterPath = "/member/register"
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 10 * time.Second
	}
	if c.Session.IdleTTL == 0 {
		c.Session.IdleTTL = 30 * time.Minute
	}
	if c.Session.MaxSessions == 0 {
		c.Session.MaxSessions = 10000
	}
	if c.Session.CheckRate == 0 {
		c.Session.CheckRate = 2
	}
	if c.Session.CheckBurst == 0 {
		c.Session.CheckBurst = 5
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
