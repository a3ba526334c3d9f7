// Package plan defines the Task and ExecutionPlan data model and the
// deterministic plan-construction policies: test-first ordering,
// reuse-first downgrading, and coverage guarantee. The type shapes
// follow internal/campaign/types.go's Task/Phase/Campaign fields,
// narrowed to a flat Task/ExecutionPlan model — there is no Phase
// layer in this core's data model, only tasks and their dependency
// graph.
package plan

import "time"

// ActionType is one of the task verbs this model enumerates.
type ActionType string

const (
	ActionAdd      ActionType = "add"
	ActionEdit     ActionType = "edit"
	ActionRefactor ActionType = "refactor"
	ActionTest     ActionType = "test"
	ActionDebug    ActionType = "debug"
	ActionFix      ActionType = "fix"
	ActionDocument ActionType = "document"
	ActionResearch ActionType = "research"
	ActionAnalyze  ActionType = "analyze"
	ActionReview   ActionType = "review"
	ActionDelete   ActionType = "delete"
	ActionMove     ActionType = "move"
)

// Status is a Task's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusStopped    Status = "stopped"
	StatusSkipped    Status = "skipped"
)

// RiskLevel classifies how destructive a task's expected effects are.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// destructiveActions are the action types the orchestrator's per-task
// reevaluation predicate treats as capable of stranding pending work
// that references the same paths.
var destructiveActions = map[ActionType]bool{
	ActionDelete:   true,
	ActionMove:     true,
	ActionRefactor: true,
}

// IsDestructive reports whether this action type can strand dependents
// referencing the same target paths.
func (a ActionType) IsDestructive() bool {
	return destructiveActions[a]
}

// ToolEvent is one recorded tool invocation within a task's execution,
// including the pre-state needed for rollback.
type ToolEvent struct {
	ToolName  string         `json:"tool_name"`
	Args      map[string]any `json:"args"`
	Result    string         `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	PreState  []byte         `json:"pre_state,omitempty"`
	PrePath   string         `json:"pre_path,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Attempt records one execution attempt of a task.
type Attempt struct {
	Number    int       `json:"number"`
	Outcome   string    `json:"outcome"` // success, failure, partial
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// Task is an atomic unit of work.
type Task struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	ActionType  ActionType `json:"action_type"`
	Status      Status     `json:"status"`
	RiskLevel   RiskLevel  `json:"risk_level"`

	Dependencies []string `json:"dependencies,omitempty"`

	ToolEvents []ToolEvent `json:"tool_events,omitempty"`

	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`

	// TargetPaths is declared by the Planner (open question #1 resolved
	// in DESIGN.md): the schema-bound plan-construction tool call emits
	// this field directly rather than leaving it to be inferred from
	// free text.
	TargetPaths []string `json:"target_paths,omitempty"`

	Attempts    []Attempt `json:"attempts,omitempty"`
	NextRetryAt time.Time `json:"next_retry_at,omitempty"`

	// ReuseRationale is set by the reuse-first fix-up when an `add` task
	// is downgraded to `edit` because its target overlaps an existing file.
	ReuseRationale string `json:"reuse_rationale,omitempty"`
}

// IsTerminal reports whether the task has reached a state the
// dispatcher no longer schedules.
func (t *Task) IsTerminal() bool {
	switch t.Status {
	case StatusCompleted, StatusFailed, StatusStopped, StatusSkipped:
		return true
	default:
		return false
	}
}

// RecordAttempt appends an attempt to the task's ledger.
func (t *Task) RecordAttempt(outcome string, err error) {
	a := Attempt{Number: len(t.Attempts) + 1, Outcome: outcome, Timestamp: time.Now()}
	if err != nil {
		a.Error = err.Error()
	}
	t.Attempts = append(t.Attempts, a)
}

// MetricEvaluator evaluates a Goal's predicate against the current
// context. Implementations live in the verify/orchestrator packages;
// plan only needs the function shape to store a Metric.
type MetricEvaluator func() (pass bool, unknown bool)

// Metric is a single measurable acceptance-criteria predicate.
type Metric struct {
	Name      string          `json:"name"`
	Target    string          `json:"target,omitempty"`
	Evaluator MetricEvaluator `json:"-"`
}

// Evaluate runs the metric's evaluator, defaulting to unknown if none is set.
func (m Metric) Evaluate() string {
	if m.Evaluator == nil {
		return "unknown"
	}
	pass, unknown := m.Evaluator()
	switch {
	case unknown:
		return "unknown"
	case pass:
		return "pass"
	default:
		return "fail"
	}
}

// Goal is a description plus a set of Metric predicates.
type Goal struct {
	Description string   `json:"description"`
	Metrics     []Metric `json:"metrics"`
}

// AllPass reports whether every metric in the goal currently evaluates to pass.
func (g Goal) AllPass() bool {
	for _, m := range g.Metrics {
		if m.Evaluate() != "pass" {
			return false
		}
	}
	return true
}

// ExecutionPlan is the ordered, dependency-respecting plan the Planner
// produces and the Orchestrator dispatches.
type ExecutionPlan struct {
	SessionID    string `json:"session_id"`
	Tasks        []Task `json:"tasks"`
	CurrentIndex int    `json:"current_index"`
	Goals        []Goal `json:"goals"`
}

// TaskByID returns a pointer to the task with the given id, or nil.
func (p *ExecutionPlan) TaskByID(id string) *Task {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return &p.Tasks[i]
		}
	}
	return nil
}

// StatusCounts returns counts per status, used to verify that the sum
// of statuses equals total tasks at every observed instant.
func (p *ExecutionPlan) StatusCounts() map[Status]int {
	counts := map[Status]int{}
	for _, t := range p.Tasks {
		counts[t.Status]++
	}
	return counts
}
