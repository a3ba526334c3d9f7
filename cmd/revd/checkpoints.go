package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"revcore/internal/checkpoint"
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Inspect saved session checkpoints",
}

var checkpointsListCmd = &cobra.Command{
	Use:   "list [session-id]",
	Short: "List checkpoints for a session, most recent last",
	Args:  cobra.ExactArgs(1),
	RunE:  listCheckpoints,
}

func init() {
	checkpointsCmd.AddCommand(checkpointsListCmd)
}

func listCheckpoints(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	ws, err := resolveWorkspace()
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}
	cfg, err := loadConfig(flagConfigPath, ws)
	if err != nil {
		return err
	}

	store := checkpoint.NewStore(cfg.Checkpoint.Dir)
	if cfg.Checkpoint.RetainLast > 0 {
		store.Retention = cfg.Checkpoint.RetainLast
	}

	paths, err := store.List(sessionID)
	if err != nil {
		return fmt.Errorf("list checkpoints: %w", err)
	}
	if len(paths) == 0 {
		fmt.Printf("no checkpoints found for session %s in %s\n", sessionID, cfg.Checkpoint.Dir)
		return nil
	}

	for _, path := range paths {
		doc, err := store.Load(path)
		if err != nil {
			fmt.Printf("%s (unreadable: %v)\n", path, err)
			continue
		}
		fmt.Printf("#%04d  %s  %d/%d tasks complete (%.0f%%)  %s\n",
			doc.CheckpointNumber, doc.Timestamp.Format("2006-01-02T15:04:05Z"),
			doc.ResumeInfo.TasksCompleted, doc.ResumeInfo.TasksTotal, doc.ResumeInfo.ProgressPercent, path)
	}
	return nil
}
