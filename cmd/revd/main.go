// Command revd is the orchestration core's CLI front end: a thin
// github.com/spf13/cobra command tree that loads internal/config,
// wires an Orchestrator, and renders its Progress feed as text. It
// has no interactive chat UI or logic-engine wiring, just a
// root-command shape: global persistent flags, a PersistentPreRunE
// that sets up logging before any subcommand runs, and a flat
// Execute()-or-die main().
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"revcore/internal/logging"
)

var (
	flagWorkspace  string
	flagConfigPath string
	flagVerbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "revd",
	Short: "Orchestrated agentic execution core",
	Long: `revd drives one coding-assistant session end to end: plan,
dispatch tasks to sub-agents, verify their output, replan on failure,
and checkpoint progress so an interrupted session can resume.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ws := flagWorkspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		return logging.Init(logging.Options{Dir: ws + "/.revcore/logs", Debug: flagVerbose})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

// resolveWorkspace returns flagWorkspace, absolute, or the current
// directory when unset.
func resolveWorkspace() (string, error) {
	if flagWorkspace == "" {
		return os.Getwd()
	}
	return filepath.Abs(flagWorkspace)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagWorkspace, "workspace", "w", "", "Workspace directory (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&flagConfigPath, "config", "c", "revcore.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug-level logging")

	rootCmd.AddCommand(runCmd, resumeCmd, checkpointsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
