package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"revcore/internal/checkpoint"
	"revcore/internal/errs"
	"revcore/internal/logging"
	"revcore/internal/plan"
)

// saveCheckpoint persists o.currentPlan under the session id. Failing
// to write a checkpoint is logged, not fatal — the run already has the
// plan in memory and will simply lose resumability for this interval.
func (o *Orchestrator) saveCheckpoint(sessionID string) {
	if o.currentPlan == nil {
		return
	}
	o.checkpointNum++
	doc := checkpoint.NewDocument(sessionID, o.checkpointNum, o.currentPlan, time.Now())
	if _, err := o.checkpoints.Save(doc); err != nil {
		logging.For(logging.CategoryOrchestrator).Warn("checkpoint save failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// Resume loads the most recent checkpoint for sessionID, resets any
// task stranded in_progress or stopped back to pending, wires fresh
// goal evaluators against the restored plan, and continues the
// executing→verifying→replanning cycle exactly where Run's outer loop
// would have.
func (o *Orchestrator) Resume(ctx context.Context, sessionID, request string) (*plan.ExecutionPlan, error) {
	log := logging.For(logging.CategoryOrchestrator)
	deadline := time.Now().Add(o.cfg.CampaignTimeout)

	doc, err := o.checkpoints.LoadLatest(sessionID)
	if err != nil {
		return nil, err
	}
	o.currentPlan = doc.Plan
	o.checkpointNum = doc.CheckpointNumber

	reset := checkpoint.ResetInProgress(o.currentPlan)
	if reset > 0 {
		log.Info("resumed session: reset stranded tasks", zap.String("session_id", sessionID), zap.Int("reset_count", reset))
	}
	wireGoalEvaluators(o.currentPlan)

	for {
		o.phase = PhaseExecuting
		o.emit("", "resumed, executing", nil)
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
