package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"revcore/internal/checkpoint"
	"revcore/internal/orchestrator"
	"revcore/internal/plan"
)

var runCmd = &cobra.Command{
	Use:   "run [request]",
	Short: "Start a new session for request",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSession,
}

func runSession(cmd *cobra.Command, args []string) error {
	request := strings.Join(args, " ")

	ws, err := resolveWorkspace()
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}
	cfg, err := loadConfig(flagConfigPath, ws)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\ninterrupt received, stopping after the current task")
		cancel()
	}()

	sessionID := "sess_" + uuid.NewString()
	progress := make(chan orchestrator.Progress, 64)
	go printProgress(progress)

	deps, err := buildDeps(ctx, cfg, progress)
	if err != nil {
		return err
	}
	orch := orchestrator.New(deps, toOrchestratorConfig(cfg))

	fmt.Printf("session %s: %s\n", sessionID, request)
	finalPlan, runErr := orch.Run(ctx, sessionID, request)
	close(progress)

	if finalPlan != nil {
		printSummary(sessionID, finalPlan)
	}
	if runErr != nil {
		return fmt.Errorf("session %s ended in phase %s: %w", sessionID, orch.CurrentPhase(), runErr)
	}
	return nil
}

func printProgress(progress <-chan orchestrator.Progress) {
	for p := range progress {
		if p.TaskID != "" {
			fmt.Printf("[%s] %s: %s\n", p.Phase, p.TaskID, p.Message)
		} else {
			fmt.Printf("[%s] %s\n", p.Phase, p.Message)
		}
	}
}

func printSummary(sessionID string, p *plan.ExecutionPlan) {
	info := checkpoint.BuildResumeInfo(p)
	fmt.Printf("\nsession %s: %d/%d tasks completed (%.0f%%), %d failed\n",
		sessionID, info.TasksCompleted, info.TasksTotal, info.ProgressPercent, info.TasksFailed)
}
