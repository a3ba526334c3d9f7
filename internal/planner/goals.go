package planner

import (
	"strings"

	"revcore/internal/plan"
)

// goalRule maps a verb/phrase found in the request text to a Metric
// the derived Goal should carry. Metric.Evaluator is left nil here —
// the Orchestrator wires evaluators once the plan's tasks and
// verification results exist; Goal derivation at this stage only
// decides which predicates apply.
type goalRule struct {
	phrases []string
	metric  string
	target  string
}

var goalRules = []goalRule{
	{phrases: []string{"fix", "bug", "broken", "failing"}, metric: "tests_pass", target: "all tests pass"},
	{phrases: []string{"add test", "write test", "test coverage", "cover"}, metric: "tests_pass", target: "new tests pass"},
	{phrases: []string{"refactor", "extract", "rename", "reorganize"}, metric: "tests_pass", target: "existing tests still pass after refactor"},
	{phrases: []string{"document", "docs", "readme", "comment"}, metric: "docs_present", target: "documentation reflects the change"},
}

// deriveGoals applies a small rule set over the request text,
// returning the Goals the constructed plan should be evaluated
// against. Every request gets a baseline completion goal regardless of
// which rules match, so a plan is never left with zero goals.
func deriveGoals(request string) []plan.Goal {
	lower := strings.ToLower(request)

	goal := plan.Goal{Description: request}
	seen := map[string]bool{}
	for _, rule := range goalRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(lower, phrase) && !seen[rule.metric] {
				goal.Metrics = append(goal.Metrics, plan.Metric{Name: rule.metric, Target: rule.target})
				seen[rule.metric] = true
				break
			}
		}
	}
	if len(goal.Metrics) == 0 {
		goal.Metrics = append(goal.Metrics, plan.Metric{Name: "tasks_complete", Target: "every task in the plan reaches completed status"})
	}
	return []plan.Goal{goal}
}
