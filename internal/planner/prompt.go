package planner

import (
	"fmt"
	"strings"

	"revcore/internal/repocontext"
)

// systemPrompt is grounded on campaign_prompts.go's static
// PlannerLogic fallback: a role statement plus the concrete contract
// the caller must satisfy, since tools.Schema can't express the nested
// per-task shape (see schema.go).
const systemPrompt = `You are the planning stage of an autonomous coding assistant. Given a request, the current repository context, and any research findings, call emit_plan exactly once with the full plan.

Each entry in "tasks" must have:
  - id: a short unique string (e.g. "t1", "t2")
  - description: what this task does, specific enough for a sub-agent to execute without the original request
  - action_type: one of add, edit, refactor, test, debug, fix, document, research, analyze, review, delete, move
  - target_paths: the file paths this task reads or writes, relative to the repository root
  - dependencies: ids of tasks that must complete first (omit if none)
  - risk_level: one of low, medium, high, critical

Prefer editing an existing file over creating a near-duplicate. Order tasks so that nothing depends on a task declared later in the list.`

// buildUserPrompt assembles the canonical prompt: request, context,
// research findings, and goals.
func buildUserPrompt(request string, snapshot *repocontext.Snapshot, researchFindings []string) string {
	var b strings.Builder
	b.WriteString("Request:\n")
	b.WriteString(request)
	b.WriteString("\n\n")

	if snapshot != nil {
		b.WriteString(fmt.Sprintf("Repository context: %d files indexed, branch %q, %d modified, %d untracked.\n",
			len(snapshot.Files), snapshot.Git.Branch, len(snapshot.Git.ModifiedFiles), len(snapshot.Git.UntrackedFiles)))
		if len(snapshot.Git.ModifiedFiles) > 0 {
			b.WriteString("Modified files: " + strings.Join(snapshot.Git.ModifiedFiles, ", ") + "\n")
		}
		relevant := snapshot.Search(request, 15)
		if len(relevant) > 0 {
			b.WriteString("Relevant existing symbols:\n")
			for _, sym := range relevant {
				b.WriteString(fmt.Sprintf("  - %s %s in %s (%s)\n", sym.Kind, sym.Name, sym.Path, sym.Signature))
			}
		}
		b.WriteString("\n")
	}

	if len(researchFindings) > 0 {
		b.WriteString("Research findings:\n")
		for _, f := range researchFindings {
			b.WriteString("  - " + f + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Call emit_plan now.")
	return b.String()
}
