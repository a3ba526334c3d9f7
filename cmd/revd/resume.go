package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"revcore/internal/orchestrator"
)

var resumeCmd = &cobra.Command{
	Use:   "resume [session-id] [request]",
	Short: "Resume a session from its latest checkpoint",
	Args:  cobra.MinimumNArgs(1),
	RunE:  resumeSession,
}

func resumeSession(cmd *cobra.Command, args []string) error {
	sessionID := args[0]
	request := strings.Join(args[1:], " ")

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

	progress := make(chan orchestrator.Progress, 64)
	go printProgress(progress)

	deps, err := buildDeps(ctx, cfg, progress)
	if err != nil {
		return err
	}
	orch := orchestrator.New(deps, toOrchestratorConfig(cfg))

	fmt.Printf("resuming session %s\n", sessionID)
	finalPlan, runErr := orch.Resume(ctx, sessionID, request)
	close(progress)

	if finalPlan != nil {
		printSummary(sessionID, finalPlan)
	}
	if runErr != nil {
		return fmt.Errorf("session %s ended in phase %s: %w", sessionID, orch.CurrentPhase(), runErr)
	}
	return nil
}
