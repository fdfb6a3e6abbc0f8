// internal/logger/logger_test.go
//
// Run: go test ./internal/logger -v

package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"WARN", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"chatty", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("level = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNew_WritesDailyFileAndTee(t *testing.T) {
	root := t.TempDir()
	var console bytes.Buffer
	day := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	log, err := New(Options{
		Root:    root,
		Level:   "debug",
		Tee:     true,
		Console: &console,
		Now:     func() time.Time { return day },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer zap.ReplaceGlobals(zap.NewNop())

	log.Debugw("duplicate check resolved", "field", "email")
	_ = log.Sync()

	path := filepath.Join(root, "logs", "2026-03-14.log")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if !strings.Contains(string(raw), `"msg":"duplicate check resolved"`) {
		t.Fatalf("file log missing entry:\n%s", raw)
	}
	if !strings.Contains(console.String(), "duplicate check resolved") {
		t.Fatalf("console tee missing entry:\n%s", console.String())
	}
}

func TestNew_LevelFilters(t *testing.T) {
	root := t.TempDir()
	log, err := New(Options{Root: root, Level: "warn"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer zap.ReplaceGlobals(zap.NewNop())

	log.Infow("quiet")
	log.Warnw("loud")
	_ = log.Sync()

	matches, _ := filepath.Glob(filepath.Join(root, "logs", "*.log"))
	if len(matches) != 1 {
		t.Fatalf("log files = %v", matches)
	}
	raw, _ := os.ReadFile(matches[0])
	if strings.Contains(string(raw), `"quiet"`) || !strings.Contains(string(raw), `"loud"`) {
		t.Fatalf("unexpected log contents:\n%s", raw)
	}
}
