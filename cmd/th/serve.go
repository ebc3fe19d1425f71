package main

import (
	"github.com/spf13/cobra"
	"github.com/zulandar/takehome/internal/retention"
	"github.com/zulandar/takehome/internal/server"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web front door",
		Long:  "Serves the submission UI, the job status API and the generated portals.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config and PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, g *globalFlags, port int) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	logger := newLogger(cfg)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cfg, logger, appOpts{})
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Retention.Schedule != "" {
		sweeper := &retention.Sweeper{
			Root:   cfg.Output.Root,
			MaxAge: cfg.Retention.MaxAge.Duration,
			Active: a.tracker.ActiveOutputDirs,
			Logger: logger.With().Str("component", "retention").Logger(),
		}
		if err := sweeper.Start(ctx, cfg.Retention.Schedule); err != nil {
			return err
		}
		defer sweeper.Stop()
	}

	deps := server.Deps{
		Runner:     a.runner,
		Tracker:    a.tracker,
		OutputRoot: cfg.Output.Root,
		Logger:     logger,
		JobContext: ctx,
	}
	if a.history != nil {
		deps.History = a.history
	}

	err = server.Start(ctx, server.StartOpts{
		Deps:            deps,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout.Duration,
		WriteTimeout:    cfg.Server.WriteTimeout.Duration,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Duration,
		Out:             cmd.OutOrStdout(),
	})
	a.runner.Wait()
	return err
}
