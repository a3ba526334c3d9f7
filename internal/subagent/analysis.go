package subagent

import (
	"fmt"

	"revcore/internal/plan"
)

// Analysis handles analyze/review tasks: read-only inspection that
// produces a written assessment rather than mutating files (spec
// §4.7).
type Analysis struct{}

func (Analysis) Name() string { return "Analysis" }

const AnalysisSentinel = "ANALYSIS_COMPLETE"

func (Analysis) BuildSystemPrompt(task *plan.Task) string {
	return fmt.Sprintf(
		"You are Analysis, a read-only reviewer. Your task: %s\nTarget paths: %v\n"+
			"You may read files and inspect git history, but you never write, delete, or run "+
			"tests. Summarize findings with concrete file:line references. Reply with %q "+
			"followed by your findings once the analysis is complete.",
		task.Description, task.TargetPaths, AnalysisSentinel)
}

func (Analysis) AllowedTools() []string {
	return []string{"read_file", "git_status", "git_diff"}
}

func (Analysis) CompletionSentinel() string { return AnalysisSentinel }

func (Analysis) RecoverFromSchemaError(err error) string {
	return fmt.Sprintf("%v. git_diff accepts an optional {path} to scope the diff. Retry with the corrected arguments.", err)
}
