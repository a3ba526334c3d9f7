package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"revcore/internal/errs"
	"revcore/internal/logging"
	"revcore/internal/plan"
)

// Run drives one session from init to a terminal phase (completed,
// failed, or stopped), following a fixed phase machine:
// init → learning? → research? → prompt-optimization? → planning →
// review? → executing → verifying → (replanning | completed | failed |
// stopped). The optional phases are gated by Config's EnableLearning/
// EnableResearch/EnablePromptOptimize flags (all false by default);
// this module doesn't build dedicated learning/prompt-optimization
// components, so those gates are pass-through extension points a
// caller can populate later without touching the state machine itself
// — see DESIGN.md.
func (o *Orchestrator) Run(ctx context.Context, sessionID, request string) (*plan.ExecutionPlan, error) {
	log := logging.For(logging.CategoryOrchestrator)
	deadline := time.Now().Add(o.cfg.CampaignTimeout)

	o.phase = PhaseInit
	o.emit("", "session starting", nil)

	if o.cfg.EnableLearning {
		o.phase = PhaseLearning
		o.emit("", "learning phase (no-op extension point)", nil)
	}
	if o.cfg.EnableResearch {
		o.phase = PhaseResearch
		o.emit("", "research phase (no-op extension point)", nil)
	}
	if o.cfg.EnablePromptOptimize {
		o.phase = PhasePromptOptimization
		o.emit("", "prompt-optimization phase (no-op extension point)", nil)
	}

	execPlan, err := o.plan(ctx, sessionID, request, nil)
	if err != nil {
		o.phase = PhaseFailed
		return nil, err
	}
	o.currentPlan = execPlan

	if o.cfg.EnableReview {
		o.phase = PhaseReview
		o.emit("", "review phase: auto-approved (no reviewer wired)", nil)
	}

	// The outer loop is the verifying→replanning→executing cycle spec
	// §4.10 describes for when goal evaluation fails but budget remains;
	// the inner loop (runExecutingLoop) is the per-task dispatch cycle
	// within a single executing phase. Keeping them as two loops instead
	// of a Run() self-call preserves o.currentPlan's in-flight/completed
	// tasks across a tail replan instead of discarding them.
	for {
		o.phase = PhaseExecuting
		if err := o.runExecutingLoop(ctx, sessionID, request, deadline, log); err != nil {
			o.saveCheckpoint(sessionID)
			return o.currentPlan, err
		}

		o.phase = PhaseVerifying
		wireGoalEvaluators(o.currentPlan)
		o.saveCheckpoint(sessionID)
		if allGoalsPass(o.currentPlan) {
			o.phase = PhaseCompleted
			o.emit("", "all goals pass", nil)
			return o.currentPlan, nil
		}

		if lmCalls, _ := o.budgetSnapshot(); o.cfg.MaxLMCalls != 0 && lmCalls >= o.cfg.MaxLMCalls {
			o.phase = PhaseFailed
			return o.currentPlan, errs.New(errs.KindVerification, "goals unmet and budget exhausted", "", false)
		}

		o.phase = PhaseReplanning
		o.emit("", "goals unmet, replanning", nil)
		if err := o.replan(ctx, sessionID, request); err != nil {
			log.Error("replan failed", zap.Error(err))
			o.phase = PhaseFailed
			return o.currentPlan, err
		}
	}
}

// runExecutingLoop dispatches eligible tasks in dependency order until
// the plan has no more eligible work, a task's outcome demands a
// mid-execution replan, or a resource budget is exhausted.
func (o *Orchestrator) runExecutingLoop(ctx context.Context, sessionID, request string, deadline time.Time, log *zap.Logger) error {
	for {
		if o.cfg.CampaignTimeout > 0 && time.Now().After(deadline) {
			log.Warn("campaign timeout exceeded", zap.String("session_id", sessionID))
			o.phase = PhaseStopped
			return errs.New(errs.KindBudget, "campaign timeout exceeded", "resume from the last checkpoint", true)
		}
		if ctx.Err() != nil {
			o.phase = PhaseStopped
			return ctx.Err()
		}
		lmCalls, toolCalls := o.budgetSnapshot()
		if o.cfg.MaxLMCalls > 0 && lmCalls >= o.cfg.MaxLMCalls {
			o.phase = PhaseStopped
			return errs.New(errs.KindBudget, "LM call budget exhausted", "resume from the last checkpoint with a larger budget", true)
		}
		if o.cfg.MaxToolCalls > 0 && toolCalls >= o.cfg.MaxToolCalls {
			o.phase = PhaseStopped
			return errs.New(errs.KindBudget, "tool call budget exhausted", "resume from the last checkpoint with a larger budget", true)
		}

		eligible := eligibleTaskIDs(o.currentPlan)
		if len(eligible) == 0 {
			return nil
		}

		needReplan := false
		for _, group := range independentGroups(o.currentPlan, eligible) {
			outcomes := o.dispatchBatch(ctx, group)
			for _, oc := range outcomes {
				if oc.replan {
					needReplan = true
				}
				if oc.failed || (oc.verifyResult != nil && !oc.verifyResult.Passed) {
					o.handleTaskFailure(oc.taskID)
				}
			}
			if needReplan {
				break
			}
		}

		if needReplan {
			o.phase = PhaseReplanning
			o.emit("", "replanning triggered", nil)
			if err := o.replan(ctx, sessionID, request); err != nil {
				log.Error("replan failed", zap.Error(err))
				o.phase = PhaseFailed
				return err
			}
			o.phase = PhaseExecuting
		}
	}
}

// handleTaskFailure re-queues a failed task up to MaxRetries before
// leaving it terminally failed, with a bounded retry count and an
// error-recovery hint message appended for the next sub-agent
// invocation.
func (o *Orchestrator) handleTaskFailure(taskID string) {
	t := o.currentPlan.TaskByID(taskID)
	if t == nil {
		return
	}
	if len(t.Attempts) > o.cfg.MaxRetries {
		return // leave as StatusFailed; goal evaluation will surface it
	}
	hint := "the previous attempt failed: " + t.Error + ". Address this before retrying."
	t.Description = t.Description + "\n\n[retry hint] " + hint
	t.Status = plan.StatusPending
	t.Error = ""
}

func allGoalsPass(p *plan.ExecutionPlan) bool {
	for _, g := range p.Goals {
		if !g.AllPass() {
			return false
		}
	}
	return true
}

// plan calls the Planner for a fresh ExecutionPlan.
func (o *Orchestrator) plan(ctx context.Context, sessionID, request string, findings []string) (*plan.ExecutionPlan, error) {
	o.phase = PhasePlanning
	o.emit("", "planning", nil)
	return o.deps.Planner.Plan(ctx, sessionID, request, o.deps.Snapshot, findings)
}

// replan flushes every Analysis Cache before calling the Planner again,
// so the next planning LM call never reasons from an AST, dependency
// graph, or cached response that predates the file-mutating task batch
// that triggered this replan. It does not rebuild the repository
// context: the Planner receives the same Snapshot the caller supplied
// in Deps, and the workspace is not walked again (this orchestrator
// doesn't own a filesystem walker). It then calls the Planner for a
// fresh tail, and replaces pending tasks while
// preserving every task that already reached a terminal or in-progress
// state.
func (o *Orchestrator) replan(ctx context.Context, sessionID, request string) error {
	if o.deps.Caches != nil {
		o.deps.Caches.ClearAll()
	}

	fresh, err := o.deps.Planner.Plan(ctx, sessionID, request, o.deps.Snapshot, nil)
	if err != nil {
		return err
	}

	preserved := make([]plan.Task, 0, len(o.currentPlan.Tasks))
	for _, t := range o.currentPlan.Tasks {
		if t.Status != plan.StatusPending {
			preserved = append(preserved, t)
		}
	}
	preservedIDs := make(map[string]bool, len(preserved))
	for _, t := range preserved {
		preservedIDs[t.ID] = true
	}

	var tail []plan.Task
	for _, t := range fresh.Tasks {
		if !preservedIDs[t.ID] {
			tail = append(tail, t)
		}
	}

	o.currentPlan.Tasks = append(preserved, tail...)
	o.currentPlan.Goals = fresh.Goals
	wireGoalEvaluators(o.currentPlan)

	if _, err := plan.TopoSort(o.currentPlan); err != nil {
		return err
	}
	return nil
}
