package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/takehome/internal/retention"
)

func newSweepCmd(g *globalFlags) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove output directories older than the retention age",
		Long:  "Runs one retention sweep now. Do not run it against the output root of a live server; the server sweeps on its own schedule and skips running jobs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, g, maxAge)
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "override retention.max_age (e.g. 72h)")
	return cmd
}

func runSweep(cmd *cobra.Command, g *globalFlags, maxAge time.Duration) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if maxAge <= 0 {
		maxAge = cfg.Retention.MaxAge.Duration
	}

	s := &retention.Sweeper{Root: cfg.Output.Root, MaxAge: maxAge, Logger: newLogger(cfg)}
	res, err := s.RunOnce()
	out := cmd.OutOrStdout()
	for _, dir := range res.Removed {
		fmt.Fprintf(out, "removed %s\n", dir)
	}
	fmt.Fprintf(out, "Removed %d, kept %d directories under %s\n", len(res.Removed), res.Kept, cfg.Output.Root)
	return err
}
