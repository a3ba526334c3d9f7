// Package orchestrator implements the central phase state machine:
// init → learning? → research? → prompt-optimization? → planning →
// review? → executing → verifying → (replanning | completed | failed |
// stopped). The phase loop, bounded parallel task dispatch,
// checkpoint-on-phase-completion, and rolling-wave replanning follow a
// campaign-orchestrator shape, adapted from a fact-store-driven
// campaign model to this module's plain Task/ExecutionPlan struct tree
// and from a custom active-map/channel fan-out to
// golang.org/x/sync/errgroup + semaphore.
package orchestrator

import (
	"sync"
	"time"

	"revcore/internal/analysiscache"
	"revcore/internal/checkpoint"
	"revcore/internal/llm"
	"revcore/internal/plan"
	"revcore/internal/planner"
	"revcore/internal/repocontext"
	"revcore/internal/router"
	"revcore/internal/subagent"
	"revcore/internal/tools"
	"revcore/internal/transaction"
	"revcore/internal/verify"
)

// Phase is one state in the orchestrator's state machine.
type Phase string

const (
	PhaseInit               Phase = "init"
	PhaseLearning           Phase = "learning"
	PhaseResearch           Phase = "research"
	PhasePromptOptimization Phase = "prompt_optimization"
	PhasePlanning           Phase = "planning"
	PhaseReview             Phase = "review"
	PhaseExecuting          Phase = "executing"
	PhaseVerifying          Phase = "verifying"
	PhaseReplanning         Phase = "replanning"
	PhaseCompleted          Phase = "completed"
	PhaseFailed             Phase = "failed"
	PhaseStopped            Phase = "stopped"
)

// Progress is one event the Orchestrator emits as it runs, so a CLI
// front-end (cmd/revd) can render a live feed without polling state.
type Progress struct {
	Phase     Phase     `json:"phase"`
	TaskID    string    `json:"task_id,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Config holds the knobs that govern a run.
type Config struct {
	Workspace string

	MaxParallelTasks int
	MaxRetries       int
	MaxLMCalls       int
	MaxToolCalls     int

	TaskTimeout     time.Duration
	CampaignTimeout time.Duration

	EnableReview         bool
	EnableResearch       bool
	EnableLearning       bool
	EnablePromptOptimize bool

	// FreezeOnInterrupt is open-question decision #3 (DESIGN.md): when
	// false (default) an interrupted task's Transaction is rolled back;
	// when true the task's partial writes are left in place as `stopped`.
	FreezeOnInterrupt bool

	CheckpointDir       string
	CheckpointRetention int
}

// DefaultConfig returns the baseline Config defaults
// (3 parallel tasks, 3 retries, 30-minute task timeout).
func DefaultConfig(workspace string) Config {
	return Config{
		Workspace:           workspace,
		MaxParallelTasks:    3,
		MaxRetries:          3,
		MaxLMCalls:          500,
		MaxToolCalls:        2000,
		TaskTimeout:         30 * time.Minute,
		CampaignTimeout:     4 * time.Hour,
		CheckpointDir:       workspace + "/.rev_checkpoints",
		CheckpointRetention: 10,
	}
}

// Deps bundles the already-constructed collaborators the Orchestrator
// drives, embedding its client/executor fields directly rather than
// resolving them from a service locator.
type Deps struct {
	Client    llm.Client
	Rejects   llm.RejectsToolChoice
	Registry  *tools.Registry
	TxManager *transaction.Manager
	Snapshot  *repocontext.Snapshot
	Verifier  *verify.Verifier
	Planner   *planner.Planner

	// Caches is the set of Analysis Caches (response/AST/dependency-graph)
	// to flush after a file-mutating task batch, so the next
	// planning/research LM call never reasons from a stale repository
	// snapshot. Nil disables flushing, e.g. in tests that don't wire one.
	Caches *analysiscache.Caches

	// Route defaults to router.Route; overridable for tests.
	Route func(plan.ActionType) subagent.Agent

	Progress chan<- Progress
}

// Orchestrator runs one session's plan → execute → verify → replan
// loop to completion, interruption, or failure.
type Orchestrator struct {
	deps Deps
	cfg  Config

	phase Phase

	// countsMu guards lmCalls/toolCalls: dispatchBatch runs runTask
	// concurrently for every task in an independent group, and each
	// folds its own call counts into these totals.
	countsMu  sync.Mutex
	lmCalls   int
	toolCalls int

	currentPlan *plan.ExecutionPlan
	loopGuard   *loopGuard

	checkpoints   *checkpoint.Store
	checkpointNum int
}

// New constructs an Orchestrator ready to Run.
func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.MaxParallelTasks <= 0 {
		cfg.MaxParallelTasks = 3
	}
	if deps.Route == nil {
		deps.Route = router.Route
	}
	store := checkpoint.NewStore(cfg.CheckpointDir)
	if cfg.CheckpointRetention > 0 {
		store.Retention = cfg.CheckpointRetention
	}
	return &Orchestrator{deps: deps, cfg: cfg, phase: PhaseInit, loopGuard: newLoopGuard(), checkpoints: store}
}

// CurrentPhase returns the orchestrator's current phase.
func (o *Orchestrator) CurrentPhase() Phase { return o.phase }

// addCounts folds a task's LM/tool call counts into the shared budget
// counters. Safe to call from the concurrent goroutines dispatchBatch
// runs one per task.
func (o *Orchestrator) addCounts(toolDelta, lmDelta int) {
	o.countsMu.Lock()
	o.toolCalls += toolDelta
	o.lmCalls += lmDelta
	o.countsMu.Unlock()
}

// budgetSnapshot returns the current LM/tool call totals under lock.
func (o *Orchestrator) budgetSnapshot() (lmCalls, toolCalls int) {
	o.countsMu.Lock()
	defer o.countsMu.Unlock()
	return o.lmCalls, o.toolCalls
}

func (o *Orchestrator) emit(taskID, message string, data any) {
	if o.deps.Progress == nil {
		return
	}
	select {
	case o.deps.Progress <- Progress{Phase: o.phase, TaskID: taskID, Message: message, Timestamp: time.Now(), Data: data}:
	default:
	}
}
