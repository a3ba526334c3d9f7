package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"revcore/internal/errs"
	"revcore/internal/logging"
	"revcore/internal/plan"
	"revcore/internal/subagent"
)

// independentGroups partitions the still-pending, dependency-satisfied
// tasks at the front of the queue into path-disjoint batches that can
// run concurrently: independent tasks (no dependency edge between them
// and no shared target_paths) may be dispatched in parallel. It groups
// by target-path conflict rather than returning a flat slice, since
// this module's bounded fan-out is batch-oriented (errgroup+semaphore).
func independentGroups(p *plan.ExecutionPlan, eligible []string) [][]string {
	var groups [][]string
	var current []string
	touched := map[string]bool{}

	for _, id := range eligible {
		t := p.TaskByID(id)
		if t == nil {
			continue
		}
		conflict := false
		for _, path := range t.TargetPaths {
			if touched[path] {
				conflict = true
				break
			}
		}
		if conflict || len(current) == 0 {
			if len(current) > 0 {
				groups = append(groups, current)
			}
			current = nil
			touched = map[string]bool{}
		}
		current = append(current, id)
		for _, path := range t.TargetPaths {
			touched[path] = true
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// eligibleTaskIDs returns pending task ids whose dependencies have all
// completed, in plan order.
func eligibleTaskIDs(p *plan.ExecutionPlan) []string {
	var ids []string
	for _, t := range p.Tasks {
		if t.Status != plan.StatusPending {
			continue
		}
		ready := true
		for _, dep := range t.Dependencies {
			depTask := p.TaskByID(dep)
			if depTask == nil || depTask.Status != plan.StatusCompleted {
				ready = false
				break
			}
		}
		if ready {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// taskOutcome is one dispatched task's result, fed back into the
// executing-phase driver to decide the next transition.
type taskOutcome struct {
	taskID       string
	verifyResult *verifySummary
	replan       bool
	failed       bool
	err          error
}

type verifySummary struct {
	Passed       bool
	Message      string
	ShouldReplan bool
}

// runTask drives one task end to end: route to a sub-agent, run its
// bounded loop inside a fresh transaction, verify the result, and
// commit or roll back the transaction depending on the outcome.
func (o *Orchestrator) runTask(ctx context.Context, t *plan.Task) taskOutcome {
	log := logging.For(logging.CategoryOrchestrator)
	agent := o.deps.Route(t.ActionType)

	tx := o.deps.TxManager.Begin(t.ID)
	t.Status = plan.StatusInProgress
	startedAt := time.Now()

	o.emit(t.ID, "task started: "+agent.Name(), nil)

	outcome := subagent.Run(ctx, agent, o.deps.Client, o.deps.Registry, tx, t, subagent.DefaultConfig())
	t.ToolEvents = append(t.ToolEvents, outcome.ToolEvents...)
	o.addCounts(len(outcome.ToolEvents), len(outcome.ToolEvents)+1)

	tripped := false
	for _, ev := range outcome.ToolEvents {
		if o.loopGuard.observe(ev) {
			tripped = true
		}
	}

	if outcome.Err != nil {
		if o.shouldFreeze(ctx) {
			log.Warn("task interrupted, freezing partial writes", zap.String("task_id", t.ID))
			t.Status = plan.StatusStopped
			t.Error = outcome.Err.Error()
			t.RecordAttempt("partial", outcome.Err)
			return taskOutcome{taskID: t.ID, err: outcome.Err}
		}
		if rbErr := o.deps.TxManager.Rollback(tx); rbErr != nil {
			log.Error("rollback failed", zap.String("task_id", t.ID), zap.Error(rbErr))
		}
		t.Status = plan.StatusFailed
		t.Error = outcome.Err.Error()
		t.RecordAttempt("failure", outcome.Err)
		return taskOutcome{taskID: t.ID, failed: true, err: outcome.Err}
	}

	result := o.deps.Verifier.Verify(t, startedAt)
	if result.Passed {
		o.deps.TxManager.Commit(tx)
		t.Status = plan.StatusCompleted
		t.Result = result.Message
		t.RecordAttempt("success", nil)
	} else {
		if o.shouldFreeze(ctx) {
			log.Warn("verification failed, freezing partial writes", zap.String("task_id", t.ID))
		} else if rbErr := o.deps.TxManager.Rollback(tx); rbErr != nil {
			log.Error("rollback failed", zap.String("task_id", t.ID), zap.Error(rbErr))
		}
		t.Status = plan.StatusFailed
		t.Error = result.Message
		t.RecordAttempt("failure", errs.New(errs.KindVerification, result.Message, "", true))
	}

	o.emit(t.ID, "task finished: "+result.Message, map[string]bool{"passed": result.Passed})

	return taskOutcome{
		taskID: t.ID,
		verifyResult: &verifySummary{Passed: result.Passed, Message: result.Message, ShouldReplan: result.ShouldReplan},
		replan: tripped || result.ShouldReplan || (result.Passed && shouldReevaluate(t, pendingExcept(o.currentPlan, t.ID))),
	}
}

// shouldFreeze resolves open-question decision #3: an interrupted task
// (ctx cancelled) freezes in place only when the operator opted in via
// FreezeOnInterrupt; a verification failure never freezes regardless of
// the setting, since that isn't an interruption.
func (o *Orchestrator) shouldFreeze(ctx context.Context) bool {
	return o.cfg.FreezeOnInterrupt && ctx.Err() != nil
}

func pendingExcept(p *plan.ExecutionPlan, excludeID string) []plan.Task {
	if p == nil {
		return nil
	}
	var out []plan.Task
	for _, t := range p.Tasks {
		if t.ID == excludeID || t.Status != plan.StatusPending {
			continue
		}
		out = append(out, t)
	}
	return out
}

// dispatchBatch runs a group of mutually independent task ids
// concurrently, bounded by cfg.MaxParallelTasks, using an
// errgroup+semaphore fan-out.
func (o *Orchestrator) dispatchBatch(ctx context.Context, ids []string) []taskOutcome {
	sem := semaphore.NewWeighted(int64(o.cfg.MaxParallelTasks))
	outcomes := make([]taskOutcome, len(ids))

	group, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		if err := sem.Acquire(gctx, 1); err != nil {
			outcomes[i] = taskOutcome{taskID: id, failed: true, err: err}
			continue
		}
		group.Go(func() error {
			defer sem.Release(1)
			t := o.currentPlan.TaskByID(id)
			if t == nil {
				outcomes[i] = taskOutcome{taskID: id, failed: true, err: errs.New(errs.KindInvariant, "task vanished from plan: "+id, "", false)}
				return nil
			}
			outcomes[i] = o.runTask(gctx, t)
			return nil
		})
	}
	_ = group.Wait()
	return outcomes
}
