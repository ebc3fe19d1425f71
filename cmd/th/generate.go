package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/zulandar/takehome/internal/models"
	"github.com/zulandar/takehome/internal/pipeline"
	"golang.org/x/term"
)

func newGenerateCmd(g *globalFlags) *cobra.Command {
	var (
		req     models.JobRequest
		quiet   bool
		noProgr bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one take-home set in the foreground",
		Long:  "Runs the whole pipeline for one role and level and prints the portal location.",
		Example: `  th generate --role "Backend Engineer" --level Senior
  th generate --role "iOS Engineer" --level Junior --language English`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, g, req, quiet, noProgr)
		},
	}

	cmd.Flags().StringVarP(&req.JobRole, "role", "r", "", "job role (required)")
	cmd.Flags().StringVarP(&req.JobLevel, "level", "l", "", "job level (required)")
	cmd.Flags().StringVar(&req.Language, "language", "", "output language (default from config, Korean)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not echo job log lines")
	cmd.Flags().BoolVar(&noProgr, "no-progress", false, "never draw a progress bar")
	cmd.MarkFlagRequired("role")
	cmd.MarkFlagRequired("level")
	return cmd
}

// stageProgress advances a bar as stages settle. A nil bar is a no-op.
type stageProgress struct {
	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	seen map[models.StageID]bool
}

func (p *stageProgress) onStage(_ string, st pipeline.Stage, state models.StageState) {
	if p.bar == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	switch state {
	case models.StageActive:
		p.bar.Describe(st.Icon + " " + st.Name)
	case models.StageDone, models.StageError:
		if !p.seen[st.ID] {
			p.seen[st.ID] = true
			p.bar.Add(1)
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runGenerate(cmd *cobra.Command, g *globalFlags, req models.JobRequest, quiet, noProgress bool) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	out := cmd.OutOrStdout()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	progress := &stageProgress{seen: map[models.StageID]bool{}}
	var echo io.Writer
	if !quiet {
		echo = out
	}

	a, err := newApp(ctx, cfg, logger, appOpts{echo: echo, onStage: progress.onStage})
	if err != nil {
		return err
	}
	defer a.Close()

	// Echoed log lines and the bar would interleave on one terminal.
	if !noProgress && isTerminal(cmd.ErrOrStderr()) && (quiet || !isTerminal(out)) {
		progress.bar = progressbar.NewOptions(a.runner.StageCount(),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("Starting"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	jobID, err := a.runner.Create(req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Job %s started\n", jobID)

	runErr := a.runner.Run(ctx, jobID)
	if progress.bar != nil {
		progress.bar.Finish()
	}

	rec, err := a.tracker.Get(jobID)
	if err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("job %s failed: %w", jobID, runErr)
	}

	fmt.Fprintf(out, "\nOutput directory: %s\n", rec.OutputDir)
	fmt.Fprintf(out, "Portal: %s%s\n", cfg.Server.PublicURL, rec.IndexURL)
	for _, d := range a.runner.Descriptors() {
		fmt.Fprintf(out, "  %s %-22s %s\n", d.Icon, d.Name, rec.StageStates[d.ID])
	}
	return nil
}
