package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/zulandar/takehome/internal/agents"
	"github.com/zulandar/takehome/internal/archive"
	"github.com/zulandar/takehome/internal/config"
	"github.com/zulandar/takehome/internal/db"
	"github.com/zulandar/takehome/internal/jobs"
	"github.com/zulandar/takehome/internal/llm"
	"github.com/zulandar/takehome/internal/logging"
	"github.com/zulandar/takehome/internal/models"
	"github.com/zulandar/takehome/internal/notify"
	"github.com/zulandar/takehome/internal/pipeline"
	"github.com/zulandar/takehome/internal/search"
)

// loadConfig loads env files, then the config file.
func loadConfig(g *globalFlags) (*config.Config, error) {
	if err := config.LoadEnvFiles(g.envFile, g.profile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrDefault(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger writes process logs to stderr so stdout stays clean for command output.
func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Env, cfg.LogLevel, os.Stderr)
}

// app wires the pipeline and its optional collaborators.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	tracker *jobs.Tracker
	runner  *pipeline.Runner
	history *archive.Store
	closers []func()
}

type appOpts struct {
	echo    io.Writer
	onStage func(string, pipeline.Stage, models.StageState)
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts appOpts) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	deps := agents.Deps{
		Config: cfg,
		LLM: llm.New(llm.Options{
			BaseURL:           cfg.LLM.BaseURL,
			APIKey:            cfg.Secrets.LLMAPIKey,
			Model:             cfg.LLM.Model,
			Timeout:           cfg.LLM.Timeout.Duration,
			MaxRetries:        cfg.LLM.MaxRetries,
			RequestsPerMinute: cfg.LLM.RequestsPerMin,
			MaxTokens:         cfg.LLM.MaxTokens,
			SiteURL:           cfg.LLM.SiteURL,
			AppName:           cfg.LLM.AppName,
			Logger:            logger.With().Str("component", "llm").Logger(),
		}),
		Search: search.New(search.Options{
			APIKey:        cfg.Secrets.GoogleAPIKey,
			EngineID:      cfg.Secrets.GoogleCSEID,
			BaseURL:       cfg.Search.BaseURL,
			DefaultMonths: cfg.Search.RecentMonths,
			DefaultNum:    cfg.Search.Results,
			Timeout:       cfg.Search.Timeout.Duration,
		}),
	}
	if cfg.Publish.Enabled() {
		deps.GitHub = agents.NewGitHubContents(ctx, cfg.Secrets.GitHubToken)
	}
	stages := agents.Catalog(deps)

	a.tracker = jobs.NewTracker(pipeline.StageIDs(stages), logger)

	ropts := pipeline.RunnerOpts{
		Tracker:         a.tracker,
		Stages:          stages,
		OutputRoot:      cfg.Output.Root,
		Logger:          logger,
		DefaultLanguage: cfg.Jobs.DefaultLanguage,
		MaxConcurrent:   cfg.Jobs.MaxConcurrent,
		Echo:            opts.echo,
		OnStage:         opts.onStage,
	}

	if cfg.Archive.DSN != "" {
		gdb, err := db.Open(cfg.Archive.Driver, cfg.Archive.DSN)
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		if sqlDB, err := gdb.DB(); err == nil {
			a.closers = append(a.closers, func() { sqlDB.Close() })
		}
		a.history = archive.New(gdb)
		ropts.Archive = a.history
	}

	n, closeNotify, err := notify.FromConfig(cfg, logger.With().Str("component", "notify").Logger())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeNotify)
	if n != nil {
		ropts.Notifier = n
	}

	a.runner, err = pipeline.NewRunner(ropts)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases database and broker connections.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.ErrOrStderr(), "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
