package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"autosense/internal/api"
	"autosense/internal/assistant"
	"autosense/internal/collector"
	"autosense/internal/config"
	"autosense/internal/controller"
	"autosense/internal/journal"
	"autosense/internal/session"
	"autosense/internal/store"
)

// app is everything a command needs, wired the same way for the dashboard,
// the one-shot commands and the MCP server.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *store.Store
	session *session.Manager
	client  *api.Client
	journal *journal.Journal
	ctrl    *controller.Controller
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if serverURL != "" {
		cfg = cfg.WithServerURL(serverURL)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newLogger writes to stderr for one-shot commands. The dashboard owns the
// terminal, so it logs to cfg.LogFile instead.
func newLogger(cfg config.Config, toFile bool) (*slog.Logger, func() error, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	if !toFile {
		if !verbose {
			level = slog.LevelWarn
		} else {
			level = slog.LevelDebug
		}
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), noClose, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0700); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})), f.Close, nil
}

func noClose() error { return nil }

// buildApp opens state, the optional journal and the assistant, then assembles
// the controller. Close releases all of it.
func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...controller.Option) (*app, error) {
	st, err := store.Open(cfg.StateDir, logger)
	if err != nil {
		return nil, err
	}
	cache, err := store.NewCache(filepath.Join(st.Dir(), "cache"), logger)
	if err != nil {
		return nil, err
	}
	offline, err := collector.NewLocalCollector(
		collector.DefaultConfig().WithCacheTTL(cfg.OfflineCacheTTL), nil, cache, logger)
	if err != nil {
		return nil, err
	}

	sess := session.NewManager(st, nil, logger)
	gw := api.NewGateway(cfg.ServerURL,
		api.WithTokenSource(sess),
		api.WithDefaultTimeout(cfg.RequestTimeout),
		api.WithLogger(logger),
	)
	client := api.NewClient(gw, cfg.DiskMapTimeout)
	sess.SetAuthenticator(client)

	var j *journal.Journal
	if cfg.JournalPath != "" {
		j, err = journal.Open(ctx, cfg.JournalPath, logger)
		if err != nil {
			return nil, err
		}
	}

	asst, err := assistant.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	if err != nil {
		logger.Warn("assistant falls back to rules", slog.String("error", err.Error()))
		asst = assistant.NewWithGenerator(nil, logger)
	}

	ctrl, err := controller.New(controller.Deps{
		Config:    cfg,
		Client:    client,
		Session:   sess,
		Store:     st,
		Offline:   offline,
		Journal:   j,
		Assistant: asst,
		Logger:    logger,
	}, opts...)
	if err != nil {
		var errs []error
		if j != nil {
			errs = append(errs, j.Close())
		}
		errs = append(errs, asst.Close())
		return nil, errors.Join(append([]error{err}, errs...)...)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		session: sess,
		client:  client,
		journal: j,
		ctrl:    ctrl,
	}, nil
}

// Close disposes the controller, which closes the journal and assistant.
func (a *app) Close() error {
	return a.ctrl.Dispose()
}

// setup is the common prologue of one-shot commands: config, stderr logging,
// wiring and a restored session.
func setup(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, _, err := newLogger(cfg, false)
	if err != nil {
		return nil, err
	}
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.session.RestoreSession()
	return a, nil
}
