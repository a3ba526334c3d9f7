package orchestrator

import (
	"regexp"
	"strings"

	"revcore/internal/plan"
)

// pathToken matches a path-shaped substring in free text: a run of
// path segments ending in a file extension. Good enough for the
// reevaluation predicate's purpose — it only needs to notice when two
// tasks plausibly reference the same file, not parse arbitrary prose
// with certainty.
var pathToken = regexp.MustCompile(`[\w./-]+\.\w{1,6}\b`)

// extractPathTokens collects every path-shaped token from free text.
func extractPathTokens(text string) []string {
	return pathToken.FindAllString(text, -1)
}

// taskPaths returns every path a task touches: its declared
// TargetPaths plus whatever path-shaped tokens appear in its
// description and recorded tool events.
func taskPaths(t *plan.Task) []string {
	paths := append([]string(nil), t.TargetPaths...)
	paths = append(paths, extractPathTokens(t.Description)...)
	for _, ev := range t.ToolEvents {
		if p, ok := ev.Args["path"].(string); ok {
			paths = append(paths, p)
		}
		paths = append(paths, extractPathTokens(ev.Result)...)
	}
	return paths
}

// shouldReevaluate is the per-task reevaluation predicate: given a
// just-completed task and the plan's still-pending tasks, report
// whether completing it should force a replan because it was
// destructive and touched a path a pending task also references.
func shouldReevaluate(completed *plan.Task, pending []plan.Task) bool {
	if !completed.ActionType.IsDestructive() {
		return false
	}
	completedPaths := toSet(taskPaths(completed))
	if len(completedPaths) == 0 {
		return false
	}
	for _, p := range pending {
		for _, token := range taskPaths(&p) {
			if completedPaths[token] {
				return true
			}
		}
	}
	return false
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.TrimSpace(item)] = true
	}
	return set
}
