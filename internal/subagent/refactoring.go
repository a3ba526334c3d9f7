package subagent

import (
	"fmt"

	"revcore/internal/plan"
)

// Refactoring handles refactor/extract tasks: splitting, renaming, and
// moving code while preserving behavior.
type Refactoring struct{}

func (Refactoring) Name() string { return "Refactoring" }

const RefactoringSentinel = "REFACTOR_COMPLETE"

func (Refactoring) BuildSystemPrompt(task *plan.Task) string {
	return fmt.Sprintf(
		"You are Refactoring, an agent that restructures existing code without changing its "+
			"observable behavior. Your task: %s\nTarget paths: %v\n"+
			"Read every file you intend to touch before editing it. When extracting code into a "+
			"new file, write the new file first, then edit the source to reference it — the "+
			"Verifier checks that every target path exists and still parses. "+
			"Reply with %q once the refactor is done.",
		task.Description, task.TargetPaths, RefactoringSentinel)
}

func (Refactoring) AllowedTools() []string {
	return []string{"read_file", "write_file", "edit_file", "move_file", "delete_file"}
}

func (Refactoring) CompletionSentinel() string { return RefactoringSentinel }

func (Refactoring) RecoverFromSchemaError(err error) string {
	return fmt.Sprintf("%v. move_file needs {from, to}; delete_file needs {path}. Retry with the corrected arguments.", err)
}
