package plan

import (
	"fmt"
	"testing"
)

func linearPlan() *ExecutionPlan {
	return &ExecutionPlan{
		SessionID: "s1",
		Tasks: []Task{
			{ID: "t1", ActionType: ActionAdd, Status: StatusPending, TargetPaths: []string{"a.go"}},
			{ID: "t2", ActionType: ActionEdit, Status: StatusPending, Dependencies: []string{"t1"}, TargetPaths: []string{"b.go"}},
			{ID: "t3", ActionType: ActionTest, Status: StatusPending, Dependencies: []string{"t2"}, TargetPaths: []string{"b.go"}},
		},
	}
}

func TestTopoSortRespectsDependencies(t *testing.T) {
	p := linearPlan()
	order, err := TopoSort(p)
	if err != nil {
		t.Fatalf("TopoSort: %v", err)
	}
	pos := map[string]int{}
	for i, id := range order {
		pos[id] = i
	}
	if pos["t1"] > pos["t2"] || pos["t2"] > pos["t3"] {
		t.Fatalf("expected t1 < t2 < t3, got order %v", order)
	}
}

func TestTopoSortDetectsCycle(t *testing.T) {
	p := &ExecutionPlan{Tasks: []Task{
		{ID: "a", Dependencies: []string{"b"}},
		{ID: "b", Dependencies: []string{"a"}},
	}}
	if _, err := TopoSort(p); err == nil {
		t.Fatal("expected cycle error")
	}
}

func TestTopoSortUnknownDependency(t *testing.T) {
	p := &ExecutionPlan{Tasks: []Task{
		{ID: "a", Dependencies: []string{"ghost"}},
	}}
	if _, err := TopoSort(p); err == nil {
		t.Fatal("expected unknown-dependency error")
	}
}

func TestReadyOnlyReturnsSatisfiedPendingTasks(t *testing.T) {
	p := linearPlan()
	ready := Ready(p)
	if len(ready) != 1 || ready[0] != "t1" {
		t.Fatalf("expected only t1 ready, got %v", ready)
	}

	p.TaskByID("t1").Status = StatusCompleted
	ready = Ready(p)
	if len(ready) != 1 || ready[0] != "t2" {
		t.Fatalf("expected only t2 ready after t1 completes, got %v", ready)
	}
}

func TestIndependentGroupExcludesPathConflicts(t *testing.T) {
	p := &ExecutionPlan{Tasks: []Task{
		{ID: "a", Status: StatusPending, TargetPaths: []string{"x.go"}},
		{ID: "b", Status: StatusPending, TargetPaths: []string{"x.go"}},
		{ID: "c", Status: StatusPending, TargetPaths: []string{"y.go"}},
	}}
	group := IndependentGroup(p, []string{"a", "b", "c"})
	if len(group) != 2 {
		t.Fatalf("expected 2 independent tasks, got %v", group)
	}
	seen := map[string]bool{}
	for _, id := range group {
		seen[id] = true
	}
	if !seen["a"] || seen["b"] || !seen["c"] {
		t.Fatalf("expected a and c chosen, b dropped for conflicting with a, got %v", group)
	}
}

func TestApplyReuseFirstDowngradesAddToEdit(t *testing.T) {
	p := &ExecutionPlan{Tasks: []Task{
		{ID: "t1", ActionType: ActionAdd, TargetPaths: []string{"existing.go"}},
		{ID: "t2", ActionType: ActionAdd, TargetPaths: []string{"new.go"}},
	}}
	ApplyReuseFirst(p, func(path string) bool { return path == "existing.go" })

	if p.TaskByID("t1").ActionType != ActionEdit {
		t.Fatalf("expected t1 downgraded to edit")
	}
	if p.TaskByID("t1").ReuseRationale == "" {
		t.Fatalf("expected reuse rationale recorded")
	}
	if p.TaskByID("t2").ActionType != ActionAdd {
		t.Fatalf("expected t2 to remain add, got %s", p.TaskByID("t2").ActionType)
	}
}

func TestApplyTestFirstOrderingAddsDependencyEdge(t *testing.T) {
	p := &ExecutionPlan{Tasks: []Task{
		{ID: "code", ActionType: ActionEdit, TargetPaths: []string{"x.go"}},
		{ID: "test", ActionType: ActionTest, TargetPaths: []string{"x.go"}},
	}}
	ApplyTestFirstOrdering(p)

	code := p.TaskByID("code")
	found := false
	for _, d := range code.Dependencies {
		if d == "test" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected code task to depend on covering test task, got deps %v", code.Dependencies)
	}
}

func TestEnsureCoverageGuaranteeAddsSyntheticTestTask(t *testing.T) {
	p := &ExecutionPlan{Tasks: []Task{
		{ID: "t1", ActionType: ActionAdd, TargetPaths: []string{"a.go"}},
	}}
	counter := 0
	nextID := func() string {
		counter++
		return fmt.Sprintf("synthetic-%d", counter)
	}
	EnsureCoverageGuarantee(p, nextID)

	if len(p.Tasks) != 2 {
		t.Fatalf("expected a synthetic test task appended, got %d tasks", len(p.Tasks))
	}
	added := p.Tasks[1]
	if added.ActionType != ActionTest {
		t.Fatalf("expected appended task to be a test task, got %s", added.ActionType)
	}
	if len(added.Dependencies) != 1 || added.Dependencies[0] != "t1" {
		t.Fatalf("expected synthetic test to depend on t1, got %v", added.Dependencies)
	}

	// Running again must be a no-op: t1 is now covered downstream.
	EnsureCoverageGuarantee(p, nextID)
	if len(p.Tasks) != 2 {
		t.Fatalf("expected coverage guarantee to be idempotent, got %d tasks", len(p.Tasks))
	}
}

func TestStatusCountsSumsToTotalTasks(t *testing.T) {
	p := linearPlan()
	p.TaskByID("t1").Status = StatusCompleted
	p.TaskByID("t2").Status = StatusFailed
	counts := p.StatusCounts()
	total := 0
	for _, n := range counts {
		total += n
	}
	if total != len(p.Tasks) {
		t.Fatalf("expected status counts to sum to %d, got %d", len(p.Tasks), total)
	}
}

func TestGoalAllPassRequiresEveryMetric(t *testing.T) {
	g := Goal{Metrics: []Metric{
		{Name: "m1", Evaluator: func() (bool, bool) { return true, false }},
		{Name: "m2", Evaluator: func() (bool, bool) { return false, false }},
	}}
	if g.AllPass() {
		t.Fatal("expected AllPass false when one metric fails")
	}
	g.Metrics[1].Evaluator = func() (bool, bool) { return true, false }
	if !g.AllPass() {
		t.Fatal("expected AllPass true when all metrics pass")
	}
}

func TestActionTypeIsDestructive(t *testing.T) {
	if !ActionDelete.IsDestructive() || !ActionMove.IsDestructive() || !ActionRefactor.IsDestructive() {
		t.Fatal("expected delete, move, refactor to be destructive")
	}
	if ActionAdd.IsDestructive() || ActionTest.IsDestructive() {
		t.Fatal("expected add, test to be non-destructive")
	}
}
