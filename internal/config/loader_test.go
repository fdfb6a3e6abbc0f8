// internal/config/loader_test.go
//
// Layering, defaults, and validation of the config loader.
//
// Run: go test ./internal/config -v

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const baseYAML = `
http:
  listen_addr: ":8080"
api:
  base_url: "https://api.brunch.test"
  timeout: 3s
  retry_max: 2
session:
  idle_ttl: 15m
log:
  level: debug
`

func writeRoot(t *testing.T, yaml string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "conf"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestLoadFrom_LayersAndDefaults(t *testing.T) {
	root := writeRoot(t, baseYAML)
	t.Setenv("BRUNCH_HTTP__CSRF_KEY", strings.Repeat("k", 32))
	t.Setenv("BRUNCH_API__RETRY_MAX", "4")

	cfg, err := LoadFrom(root)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.HTTP.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q", cfg.HTTP.ListenAddr)
	}
	if cfg.API.RetryMax != 4 {
		t.Errorf("retry_max = %d, want env override 4", cfg.API.RetryMax)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("timeout = %s", cfg.API.Timeout)
	}
	if cfg.API.UsersPath != "/users" || cfg.API.RegisterPath != "/member/register" {
		t.Errorf("paths = %q %q, want defaults", cfg.API.UsersPath, cfg.API.RegisterPath)
	}
	if cfg.Session.IdleTTL != 15*time.Minute || cfg.Session.MaxSessions != 10000 {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.Session.CheckRate != 2 || cfg.Session.CheckBurst != 5 {
		t.Errorf("check limit = %v/%d", cfg.Session.CheckRate, cfg.Session.CheckBurst)
	}
	if cfg.Paths.Root != root {
		t.Errorf("root = %q", cfg.Paths.Root)
	}
	if Get() != cfg {
		t.Error("Get() does not return the cached config")
	}
}

func TestLoadFrom_DotEnv(t *testing.T) {
	root := writeRoot(t, baseYAML)
	env := "BRUNCH_HTTP__CSRF_KEY=" + strings.Repeat("d", 40) + "\n"
	if err := os.WriteFile(filepath.Join(root, "conf", ".env"), []byte(env), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("BRUNCH_HTTP__CSRF_KEY") })

	cfg, err := LoadFrom(root)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.HTTP.CSRFKey != strings.Repeat("d", 40) {
		t.Fatalf("csrf_key not taken from .env")
	}
}

func TestLoadFrom_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantKey string
	}{
		{"missing csrf key", baseYAML, "HTTP.CSRFKey"},
		{"bad base url", strings.Replace(baseYAML, "https://api.brunch.test", "not a url", 1), "API.BaseURL"},
		{"bad level", strings.Replace(baseYAML, "level: debug", "level: chatty", 1), "Log.Level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeRoot(t, tt.yaml)
			if tt.wantKey != "HTTP.CSRFKey" {
				t.Setenv("BRUNCH_HTTP__CSRF_KEY", strings.Repeat("k", 32))
			}
			_, err := LoadFrom(root)
			if err == nil || !strings.Contains(err.Error(), tt.wantKey) {
				t.Fatalf("err = %v, want mention of %s", err, tt.wantKey)
			}
		})
	}
}

func TestLoadFrom_MissingYAML(t *testing.T) {
	if _, err := LoadFrom(t.TempDir()); err == nil {
		t.Fatal("LoadFrom succeeded without conf/global.yaml")
	}
}

func TestEnvKey(t *testing.T) {
	if got := envKey("BRUNCH_SESSION__CHECK_BURST"); got != "session.check_burst" {
		t.Fatalf("envKey = %q", got)
	}
}
