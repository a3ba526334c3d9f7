package subagent

import (
	"fmt"

	"revcore/internal/plan"
)

// CodeWriter handles add/edit tasks and is the fallback for any
// action-type the router doesn't recognize.
type CodeWriter struct{}

func (CodeWriter) Name() string { return "CodeWriter" }

func (CodeWriter) BuildSystemPrompt(task *plan.Task) string {
	return fmt.Sprintf(
		"You are CodeWriter, a focused coding agent. Your task: %s\n"+
			"Target paths: %v\n"+
			"Use read_file to inspect existing content before writing. Use write_file for new "+
			"files and edit_file for surgical changes to existing ones — edit_file requires an "+
			"old_text that matches the file byte-for-byte, including whitespace; an empty "+
			"new_text is a valid deletion of old_text. When the task is fully done, reply with "+
			"the text %q and no further tool call.",
		task.Description, task.TargetPaths, CodeWriterSentinel)
}

func (CodeWriter) AllowedTools() []string {
	return []string{"read_file", "write_file", "edit_file", "append_file"}
}

// CodeWriterSentinel is the completion phrase CodeWriter is instructed to emit.
const CodeWriterSentinel = "TASK_COMPLETE"

func (CodeWriter) CompletionSentinel() string { return CodeWriterSentinel }

func (CodeWriter) RecoverFromSchemaError(err error) string {
	return fmt.Sprintf(
		"%v. write_file needs {path, content}; edit_file needs {path, old_text, new_text} "+
			"where new_text may be an empty string to delete old_text. Retry with the corrected arguments.",
		err)
}
