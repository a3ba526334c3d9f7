package orchestrator

import "revcore/internal/plan"

// wireGoalEvaluators attaches a MetricEvaluator closure to every Metric
// the Planner derived (planner.deriveGoals leaves Evaluator nil — it
// only decides which predicates apply, not how to check them, since it
// runs before any task has executed). Evaluation reads the live plan
// state, so a Goal re-evaluated after a replan reflects the current
// task statuses without the orchestrator needing to rebuild Metrics.
func wireGoalEvaluators(p *plan.ExecutionPlan) {
	for gi := range p.Goals {
		for mi := range p.Goals[gi].Metrics {
			m := &p.Goals[gi].Metrics[mi]
			switch m.Name {
			case "tests_pass":
				m.Evaluator = testsPassEvaluator(p)
			case "docs_present":
				m.Evaluator = docsPresentEvaluator(p)
			default: // tasks_complete and any unrecognized metric name
				m.Evaluator = tasksCompleteEvaluator(p)
			}
		}
	}
}

func testsPassEvaluator(p *plan.ExecutionPlan) plan.MetricEvaluator {
	return func() (pass bool, unknown bool) {
		found := false
		for _, t := range p.Tasks {
			if t.ActionType != plan.ActionTest {
				continue
			}
			found = true
			if t.Status == plan.StatusFailed {
				return false, false
			}
			if t.Status != plan.StatusCompleted {
				return false, true
			}
		}
		if !found {
			return false, true
		}
		return true, false
	}
}

func docsPresentEvaluator(p *plan.ExecutionPlan) plan.MetricEvaluator {
	return func() (pass bool, unknown bool) {
		found := false
		for _, t := range p.Tasks {
			if t.ActionType != plan.ActionDocument {
				continue
			}
			found = true
			switch t.Status {
			case plan.StatusCompleted:
				continue
			case plan.StatusFailed:
				return false, false
			default:
				return false, true
			}
		}
		if !found {
			return false, true
		}
		return true, false
	}
}

func tasksCompleteEvaluator(p *plan.ExecutionPlan) plan.MetricEvaluator {
	return func() (pass bool, unknown bool) {
		counts := p.StatusCounts()
		if counts[plan.StatusFailed] > 0 {
			return false, false
		}
		return counts[plan.StatusCompleted] == len(p.Tasks), false
	}
}
