// internal/logger/logger.go
//
// Structured JSON logger (Zap + Lumberjack).
//
// Context
// -------
// Brunch writes signup lifecycle events (checks, submissions, audit
// failures) to one JSON log per day under `<root>/logs/YYYY-MM-DD.log`.
// When attached to a TTY the same events are teed, colorized, to stdout.
// Lumberjack handles rotation, compression, and retention.
//
// Usage
// -----
//
//	log, err := logger.New(logger.Options{Root: cfg.Paths.Root, Level: cfg.Log.Level, Tee: cfg.Log.Tee})
//	if err != nil { … }
//	log.Infow("signup online", "addr", addr)
//
// Notes
// -----
// • ISO-8601 timestamps and lowercase levels.
// • Errors are written to the same sink via `ErrorOutput`.
// • Unknown level names fall back to info and are reported once.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where and how much to log.
type Options struct {
	Root  string // log files go to Root/logs
	Level string // debug, info, warn, error
	Tee   bool   // also write colored lines to Console
	// Console receives the tee.  Defaults to os.Stdout.
	Console io.Writer
	// Now names the daily file.  Defaults to time.Now.
	Now func() time.Time
}

// New returns a *zap.SugaredLogger that writes JSON to
// Root/logs/YYYY-MM-DD.log and installs it via zap.ReplaceGlobals.
func New(opts Options) (*zap.SugaredLogger, error) {
	logDir := filepath.Join(opts.Root, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logger: create %s: %w", logDir, err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	fileSink := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, now().Format("2006-01-02")+".log"),
		MaxSize:    50, // MB
		MaxBackups: 7,
		MaxAge:     14, // days
		Compress:   true,
	}

	level, levelErr := ParseLevel(opts.Level)

	encCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		MessageKey:   "msg",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(fileSink), level),
	}

	if opts.Tee {
		console := opts.Console
		if console == nil {
			console = os.Stdout
		}
		colorCfg := encCfg
		colorCfg.EncodeLevel = zapcore.LowercaseColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(colorCfg),
			zapcore.AddSync(console),
			level,
		))
	}

	z := zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.ErrorOutput(zapcore.AddSync(fileSink)),
	).Sugar()

	zap.ReplaceGlobals(z.Desugar())

	if levelErr != nil {
		z.Warnw("unknown log level, using info", "level", opts.Level)
	}
	z.Infow("logger online", "tee", opts.Tee, "level", level.String())
	return z, nil
}

// ParseLevel maps a config string to a zap level.  Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}
