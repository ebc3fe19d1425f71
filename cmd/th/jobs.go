package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/takehome/internal/archive"
	"github.com/zulandar/takehome/internal/db"
	"github.com/zulandar/takehome/internal/models"
)

func newJobsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect finished jobs",
	}
	cmd.AddCommand(newJobsHistoryCmd(g))
	return cmd
}

func newJobsHistoryCmd(g *globalFlags) *cobra.Command {
	var (
		limit  int
		status string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished jobs from the archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobsHistory(cmd, g, archive.Filter{Status: status, Limit: limit}, asJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", archive.DefaultLimit, "maximum rows")
	cmd.Flags().StringVar(&status, "status", "", "only show completed or failed jobs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func runJobsHistory(cmd *cobra.Command, g *globalFlags, f archive.Filter, asJSON bool) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if cfg.Archive.DSN == "" {
		return fmt.Errorf("job history is not configured: set archive.dsn")
	}
	gdb, err := db.Open(cfg.Archive.Driver, cfg.Archive.DSN)
	if err != nil {
		return err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}

	rows, err := archive.New(gdb).Recent(context.Background(), f)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	printHistory(out, rows)
	return nil
}

func printHistory(out io.Writer, rows []models.JobArchive) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No finished jobs.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tSTATUS\tROLE\tLEVEL\tLANG\tSTARTED\tDURATION\tDETAIL")
	for _, r := range rows {
		detail := r.IndexURL
		if r.Status == string(models.StatusFailed) {
			detail = truncate(r.Error, 60)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.JobID, r.Status, r.JobRole, r.JobLevel, r.Language,
			r.StartedAt.Local().Format("2006-01-02 15:04"), duration(r), detail)
	}
	w.Flush()
}

func duration(r models.JobArchive) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
