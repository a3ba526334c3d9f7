// Package router maps a Task's ActionType to the subagent.Agent that
// drives it: add/edit → CodeWriter; refactor → Refactoring; test →
// TestExecutor; debug/fix → Debugging; document/docs → Documentation;
// research/investigate → Research; analyze/review → Analysis;
// delete/move → Refactoring. An
// unknown action-type routes to CodeWriter with a warning rather than
// failing the task outright — the same degrade-gracefully posture an
// intent router takes on an unrecognized intent category.
package router

import (
	"go.uber.org/zap"

	"revcore/internal/logging"
	"revcore/internal/plan"
	"revcore/internal/subagent"
)

var table = map[plan.ActionType]subagent.Agent{
	plan.ActionAdd:      subagent.CodeWriter{},
	plan.ActionEdit:     subagent.CodeWriter{},
	plan.ActionRefactor: subagent.Refactoring{},
	plan.ActionTest:     subagent.TestExecutor{},
	plan.ActionDebug:    subagent.Debugging{},
	plan.ActionFix:      subagent.Debugging{},
	plan.ActionDocument: subagent.Documentation{},
	plan.ActionResearch: subagent.Research{},
	plan.ActionAnalyze:  subagent.Analysis{},
	plan.ActionReview:   subagent.Analysis{},
	// Refactoring is the only agent whose tool allowlist can actually
	// perform a delete or a move.
	plan.ActionDelete: subagent.Refactoring{},
	plan.ActionMove:   subagent.Refactoring{},
	// Alternate spellings of document and research.
	plan.ActionType("docs"):        subagent.Documentation{},
	plan.ActionType("investigate"): subagent.Research{},
}

// fallback is what an unrecognized action type routes to.
var fallback = subagent.CodeWriter{}

// Route returns the agent responsible for a task's action type. Any
// action type absent from the table falls back to CodeWriter and logs
// a warning, rather than failing the dispatch outright.
func Route(actionType plan.ActionType) subagent.Agent {
	if agent, ok := table[actionType]; ok {
		return agent
	}
	logging.For(logging.CategoryRouter).Warn("unrecognized action type, routing to CodeWriter",
		zap.String("action_type", string(actionType)))
	return fallback
}
