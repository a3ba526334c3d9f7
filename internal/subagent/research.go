package subagent

import (
	"fmt"

	"revcore/internal/plan"
)

// Research handles research/investigate tasks and is the only agent
// granted web_fetch.
type Research struct{}

func (Research) Name() string { return "Research" }

const ResearchSentinel = "RESEARCH_COMPLETE"

func (Research) BuildSystemPrompt(task *plan.Task) string {
	return fmt.Sprintf(
		"You are Research. Your task: %s\n"+
			"Use read_file to check what the repository already does before reaching for "+
			"web_fetch — prefer the existing codebase as a source over the web when it answers "+
			"the question. When you do fetch a page, cite the URL in your final summary. Reply "+
			"with %q followed by your findings once you have enough to answer the request.",
		task.Description, ResearchSentinel)
}

func (Research) AllowedTools() []string {
	return []string{"read_file", "web_fetch"}
}

func (Research) CompletionSentinel() string { return ResearchSentinel }

func (Research) RecoverFromSchemaError(err error) string {
	return fmt.Sprintf("%v. web_fetch needs {url} and an optional render_js boolean. Retry with the corrected arguments.", err)
}
