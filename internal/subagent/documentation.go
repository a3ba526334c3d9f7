package subagent

import (
	"fmt"

	"revcore/internal/plan"
)

// Documentation handles document/docs tasks: writing or updating
// README/doc-comment content.
type Documentation struct{}

func (Documentation) Name() string { return "Documentation" }

const DocumentationSentinel = "DOCS_COMPLETE"

func (Documentation) BuildSystemPrompt(task *plan.Task) string {
	return fmt.Sprintf(
		"You are Documentation. Your task: %s\nTarget paths: %v\n"+
			"Read the code you're documenting before writing about it — never describe behavior "+
			"you haven't verified by reading the file. Keep doc comments proportional to what "+
			"similar code nearby already carries; don't pad every function with a paragraph. "+
			"Reply with %q once the documentation is written.",
		task.Description, task.TargetPaths, DocumentationSentinel)
}

func (Documentation) AllowedTools() []string {
	return []string{"read_file", "write_file", "edit_file", "append_file"}
}

func (Documentation) CompletionSentinel() string { return DocumentationSentinel }

func (Documentation) RecoverFromSchemaError(err error) string {
	return fmt.Sprintf("%v. write_file needs {path, content}; edit_file needs {path, old_text, new_text}. Retry with the corrected arguments.", err)
}
