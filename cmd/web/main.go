// cmd/web/main.go
//
// Brunch signup – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load configuration (conf/.env → conf/global.yaml → BRUNCH_ env).
//
//  2. Start the daily rotating logger (tees to console when configured and
//     running in a TTY).
//
//  3. Resolve the signup form definition (embedded default or
//     form.definition override).
//
//  4. Build the member API client.  Duplicate checks share roster
//     downloads through dupcheck.Coalesce; registration uses the client
//     directly and is never retried.
//
//  5. Open the audit database when audit.dsn is set and create the
//     signup_attempt table if missing.
//
//  6. Build the web host, start the session sweeper, and serve until
//     SIGINT/SIGTERM, then drain in-flight requests.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/yanizio/brunch/internal/audit"
	"github.com/yanizio/brunch/internal/config"
	"github.com/yanizio/brunch/internal/database"
	"github.com/yanizio/brunch/internal/dupcheck"
	"github.com/yanizio/brunch/internal/form"
	"github.com/yanizio/brunch/internal/logger"
	"github.com/yanizio/brunch/internal/member"
	"github.com/yanizio/brunch/internal/server"
	"github.com/yanizio/brunch/internal/session"
	"github.com/yanizio/brunch/internal/web"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	// Bootstrap console logger so config errors are visible.
	boot, _ := zap.NewDevelopment()
	zap.ReplaceGlobals(boot)

	//
	// ── 1.  Configuration ───────────────────────────────────────────────
	//
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	//
	// ── 2.  Logger ──────────────────────────────────────────────────────
	//
	logOut, err := logger.New(logger.Options{
		Root:  cfg.Paths.Root,
		Level: cfg.Log.Level,
		Tee:   cfg.Log.Tee && runningInTTY(),
	})
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer logOut.Sync()

	//
	// ── 3.  Form definition ─────────────────────────────────────────────
	//
	spec := form.Default()
	if cfg.Form.Definition != "" {
		if spec, err = form.Load(cfg.Form.Definition); err != nil {
			logOut.Fatalw("load form definition", "path", cfg.Form.Definition, "err", err)
		}
	}
	logOut.Infow("form definition ready", "id", spec.ID, "fields", len(spec.Fields))

	//
	// ── 4.  Member API client ───────────────────────────────────────────
	//
	client, err := member.NewClient(member.Options{
		BaseURL:      cfg.API.BaseURL,
		UsersPath:    cfg.API.UsersPath,
		RegisterPath: cfg.API.RegisterPath,
		Timeout:      cfg.API.Timeout,
		RetryMax:     cfg.API.RetryMax,
	}, logOut.Named("member"))
	if err != nil {
		logOut.Fatalw("member client", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 5.  Audit trail (optional) ──────────────────────────────────────
	//
	var auditStore *audit.Store
	if cfg.Audit.DSN != "" {
		db, err := database.Open(ctx, cfg.Audit.DSN)
		if err != nil {
			logOut.Fatalw("connect audit DB", "err", err)
		}
		defer db.Close()

		auditStore = audit.NewStore(db)
		if err := auditStore.Migrate(ctx); err != nil {
			logOut.Fatalw("audit migrate", "err", err)
		}
		logOut.Infow("audit trail online")
	}

	csrf, err := form.NewCSRF([]byte(cfg.HTTP.CSRFKey))
	if err != nil {
		logOut.Fatalw("csrf key", "err", err)
	}

	//
	// ── 6.  Web host ────────────────────────────────────────────────────
	//
	host := web.New(web.Deps{
		Spec:      spec,
		Directory: dupcheck.Coalesce(client),
		Registrar: client,
		Audit:     auditStore,
		CSRF:      csrf,
		Sessions: session.Options{
			IdleTTL:    cfg.Session.IdleTTL,
			MaxEntries: cfg.Session.MaxSessions,
			CheckRate:  cfg.Session.CheckRate,
			CheckBurst: cfg.Session.CheckBurst,
		},
		ForceHTTPS: cfg.HTTP.ForceHTTPS,
		Logger:     logOut.Named("web"),
	})
	go host.Sessions().Run(ctx)

	srv := server.New(cfg.HTTP.ListenAddr, host.Routes(), cfg.API.Timeout)
	if err := server.Run(ctx, srv, logOut); err != nil {
		logOut.Fatalw("http server", "err", err)
	}
	logOut.Infow("bye")
}
