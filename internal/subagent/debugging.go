package subagent

import (
	"fmt"

	"revcore/internal/plan"
)

// Debugging handles debug/fix tasks: reproducing a failure, narrowing
// its cause, and applying a fix.
type Debugging struct{}

func (Debugging) Name() string { return "Debugging" }

const DebuggingSentinel = "FIX_COMPLETE"

func (Debugging) BuildSystemPrompt(task *plan.Task) string {
	return fmt.Sprintf(
		"You are Debugging. Your task: %s\nTarget paths: %v\n"+
			"Reproduce the failure with run_cmd before changing anything, form a hypothesis about "+
			"the cause from the output, apply the smallest fix that addresses it, then re-run the "+
			"reproduction to confirm it passes. Reply with %q once confirmed.",
		task.Description, task.TargetPaths, DebuggingSentinel)
}

func (Debugging) AllowedTools() []string {
	return []string{"read_file", "edit_file", "run_cmd", "git_diff"}
}

func (Debugging) CompletionSentinel() string { return DebuggingSentinel }

func (Debugging) RecoverFromSchemaError(err error) string {
	return fmt.Sprintf("%v. run_cmd needs {binary, arguments}; a destructive binary also needs confirmed=true. Retry with the corrected arguments.", err)
}
