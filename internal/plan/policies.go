package plan

import "strings"

// ExistingFileChecker reports whether a path already exists in the
// workspace, used by the reuse-first policy. The planner package binds
// this to repocontext; plan itself stays filesystem-agnostic.
type ExistingFileChecker func(path string) bool

// SimilarityScorer returns a [0,1] similarity between two pieces of
// text, used by the reuse-first policy to decide whether an `add`
// task's description is close enough to an existing file's purpose to
// downgrade to `edit`. The planner package binds this to a concrete
// n-gram/Jaccard scorer; plan stores only the threshold.
type SimilarityScorer func(a, b string) float64

// ApplyReuseFirst downgrades `add` tasks that target a path already
// present in the workspace to `edit`, recording the rationale. A task
// is left as `add` if none of its target paths exist yet.
func ApplyReuseFirst(p *ExecutionPlan, exists ExistingFileChecker) {
	for i := range p.Tasks {
		t := &p.Tasks[i]
		if t.ActionType != ActionAdd || len(t.TargetPaths) == 0 {
			continue
		}
		for _, path := range t.TargetPaths {
			if exists(path) {
				t.ActionType = ActionEdit
				t.ReuseRationale = "target path already exists in workspace; downgraded from add to edit"
				break
			}
		}
	}
}

// ApplyTestFirstOrdering reorders independent test tasks ahead of the
// code-change tasks they cover whenever no dependency edge already
// orders them, so a task whose description names the same target path
// as a pending test runs after that test is scheduled first. This does
// not override explicit Dependencies — it only adds a dependency edge
// from a code-change task to a test task covering an overlapping
// target path that has none yet.
func ApplyTestFirstOrdering(p *ExecutionPlan) {
	testTasksByPath := map[string][]string{}
	for _, t := range p.Tasks {
		if t.ActionType != ActionTest {
			continue
		}
		for _, path := range t.TargetPaths {
			testTasksByPath[path] = append(testTasksByPath[path], t.ID)
		}
	}

	// dependsOn reports whether task id depends, directly or transitively, on target.
	var dependsOn func(id, target string, seen map[string]bool) bool
	dependsOn = func(id, target string, seen map[string]bool) bool {
		task := p.TaskByID(id)
		if task == nil || seen[id] {
			return false
		}
		seen[id] = true
		for _, d := range task.Dependencies {
			if d == target || dependsOn(d, target, seen) {
				return true
			}
		}
		return false
	}

	for i := range p.Tasks {
		t := &p.Tasks[i]
		if t.ActionType == ActionTest {
			continue
		}
		existing := make(map[string]bool, len(t.Dependencies))
		for _, d := range t.Dependencies {
			existing[d] = true
		}
		for _, path := range t.TargetPaths {
			for _, testID := range testTasksByPath[path] {
				if testID == t.ID || existing[testID] || dependsOn(testID, t.ID, map[string]bool{}) {
					continue
				}
				t.Dependencies = append(t.Dependencies, testID)
				existing[testID] = true
			}
		}
	}
}

// EnsureCoverageGuarantee appends a synthetic test-execution task to
// the dependency closure of every code-change task (add/edit/refactor/
// fix) that has no test task anywhere among its transitive dependents.
// The synthetic task runs `run_tests` against the task's target paths.
func EnsureCoverageGuarantee(p *ExecutionPlan, nextID func() string) {
	isCodeChange := func(a ActionType) bool {
		switch a {
		case ActionAdd, ActionEdit, ActionRefactor, ActionFix:
			return true
		default:
			return false
		}
	}

	// dependents maps a task id to the ids of tasks that declare it as
	// a dependency, so coverage can be checked downstream (a test task
	// that runs after the code change, not one it depends on).
	dependents := map[string][]string{}
	for _, t := range p.Tasks {
		for _, d := range t.Dependencies {
			dependents[d] = append(dependents[d], t.ID)
		}
	}

	coveredByDownstreamTest := func(id string) bool {
		visited := map[string]bool{}
		var walk func(id string) bool
		walk = func(id string) bool {
			if visited[id] {
				return false
			}
			visited[id] = true
			for _, childID := range dependents[id] {
				child := p.TaskByID(childID)
				if child == nil {
					continue
				}
				if child.ActionType == ActionTest {
					return true
				}
				if walk(childID) {
					return true
				}
			}
			return false
		}
		return walk(id)
	}

	var additions []Task
	for i := range p.Tasks {
		t := &p.Tasks[i]
		if !isCodeChange(t.ActionType) || coveredByDownstreamTest(t.ID) {
			continue
		}
		testID := nextID()
		desc := "run tests covering " + strings.Join(t.TargetPaths, ", ")
		additions = append(additions, Task{
			ID:           testID,
			Description:  desc,
			ActionType:   ActionTest,
			Status:       StatusPending,
			RiskLevel:    RiskLow,
			TargetPaths:  append([]string(nil), t.TargetPaths...),
			Dependencies: []string{t.ID},
		})
	}
	p.Tasks = append(p.Tasks, additions...)
}
