package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/audit"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/broadcast"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/credential"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/notify"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/org"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/store"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/telemetry"
)

// app holds the wired components for one CLI invocation.
type app struct {
	cfg     *model.AppConfig
	logger  *slog.Logger
	store   *store.SQLiteStore
	dir     *org.SQLDirectory
	svc     *broadcast.Service
	metrics *telemetry.Instruments

	shutdown telemetry.ShutdownFunc
}

// newLogger builds the process logger from the log section.
func newLogger(cfg model.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openApp loads configuration and wires the store, directory, audit
// recorder and broadcast service. The push dispatcher is only built when
// push is set, so commands that never create tasks do not need transport
// credentials.
func openApp(ctx context.Context, push bool) (*app, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, "taskcast", version)
	if err != nil {
		return nil, err
	}
	metrics := telemetry.NewInstruments()

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		dir:      org.NewSQLDirectory(st.DB()),
		metrics:  metrics,
		shutdown: shutdown,
	}

	sink, err := a.auditSink()
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	recorder := audit.NewRecorder(sink, cfg.Audit.RedactFields, audit.WithLogger(logger))

	opts := []broadcast.Option{
		broadcast.WithAuditor(recorder),
		broadcast.WithRules(cfg.Broadcast),
		broadcast.WithRetention(cfg.Retention),
		broadcast.WithLogger(logger),
		broadcast.WithInstruments(metrics),
	}
	if push {
		transport, err := notify.NewTransport(cfg.Push, st, secretLookup(logger), logger)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		opts = append(opts, broadcast.WithDispatcher(notify.NewDispatcher(transport,
			notify.WithConcurrency(cfg.Push.Concurrency),
			notify.WithTimeout(cfg.Push.Timeout),
			notify.WithLogger(logger),
			notify.WithInstruments(metrics),
		)))
		logger.DebugContext(ctx, "push transport ready", slog.String("transport", transport.Name()))
	}
	a.svc = broadcast.NewService(st, a.dir, opts...)

	logger.DebugContext(ctx, "taskcast ready",
		slog.String("database", cfg.Database.Path),
		slog.String("audit_sink", cfg.Audit.Sink),
	)
	return a, nil
}

func (a *app) auditSink() (audit.Sink, error) {
	if a.cfg.Audit.Sink != "jsonl" {
		return a.store, nil
	}
	path := a.cfg.Audit.JSONLPath
	if path == "" {
		path = strings.TrimSuffix(a.cfg.Database.Path, ".db") + "-audit.jsonl"
	}
	return audit.NewJSONLSink(path)
}

// secretLookup resolves transport credentials from the keyring. A missing
// keyring only matters to transports that need a secret.
func secretLookup(logger *slog.Logger) notify.SecretFunc {
	return func(key string) (string, error) {
		vault, err := credential.Open()
		if err != nil {
			logger.Warn("keyring unavailable", slog.Any("error", err))
			return "", err
		}
		return vault.Get(key)
	}
}

// caller authenticates the --as user.
func (a *app) caller(ctx context.Context) (model.Caller, error) {
	if actingAs == "" {
		return model.Caller{}, errors.New("no acting user: pass --as or set TASKCAST_USER")
	}
	return a.svc.Authenticate(ctx, actingAs)
}

// Close releases the store and flushes telemetry.
func (a *app) Close(ctx context.Context) {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", slog.Any("error", err))
	}
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("flushing telemetry", slog.Any("error", err))
	}
}

// withApp opens the app for the duration of fn.
func withApp(ctx context.Context, push bool, fn func(a *app) error) error {
	a, err := openApp(ctx, push)
	if err != nil {
		return fmt.Errorf("starting taskcast: %w", err)
	}
	defer a.Close(context.WithoutCancel(ctx))
	return fn(a)
}
