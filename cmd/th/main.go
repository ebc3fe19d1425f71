package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	envFile    string
	profile    string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "th",
		Short:         "Take-home assignment generator",
		Long:          "th researches a role, designs take-home assignments with an LLM and publishes a candidate portal with datasets and starter code.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "takehome.yaml", "path to config file (.yaml or .toml)")
	cmd.PersistentFlags().StringVar(&g.envFile, "env-file", "", "extra .env file to load (overrides .env)")
	cmd.PersistentFlags().StringVar(&g.profile, "profile", "", "load .env.<profile> after other env files")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd(g))
	cmd.AddCommand(newGenerateCmd(g))
	cmd.AddCommand(newJobsCmd(g))
	cmd.AddCommand(newSweepCmd(g))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "th %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
