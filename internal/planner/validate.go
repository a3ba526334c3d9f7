package planner

import (
	"encoding/json"

	"revcore/internal/errs"
	"revcore/internal/llm"
	"revcore/internal/plan"
)

// validActionTypes mirrors plan.ActionType's full enumeration, used to
// reject a plan that names a verb the router can't dispatch.
var validActionTypes = map[string]plan.ActionType{
	"add":      plan.ActionAdd,
	"edit":     plan.ActionEdit,
	"refactor": plan.ActionRefactor,
	"test":     plan.ActionTest,
	"debug":    plan.ActionDebug,
	"fix":      plan.ActionFix,
	"document": plan.ActionDocument,
	"research": plan.ActionResearch,
	"analyze":  plan.ActionAnalyze,
	"review":   plan.ActionReview,
	"delete":   plan.ActionDelete,
	"move":     plan.ActionMove,
}

var validRiskLevels = map[string]plan.RiskLevel{
	"low":      plan.RiskLow,
	"medium":   plan.RiskMedium,
	"high":     plan.RiskHigh,
	"critical": plan.RiskCritical,
}

// extractPlanCall finds the emit_plan tool call in the response,
// failing with a schema error if the model replied with text instead —
// the forced tool choice should make this impossible for a compliant
// provider, but a degraded (weak-provider) attempt can still return
// plain text, and that failure must be actionable rather than a panic
// further down the pipeline.
func extractPlanCall(resp *llm.ChatResponse) (llm.ToolCall, error) {
	for _, call := range resp.ToolCalls {
		if call.Name == emitPlanToolName {
			return call, nil
		}
	}
	return llm.ToolCall{}, errs.New(errs.KindSchema,
		"model did not call emit_plan",
		"re-prompt with ToolChoiceRequired, or fall back to a provider that supports forced tool calls", true)
}

// parsePlanArguments decodes a tool call's arguments into the plan
// schema shape, round-tripping through ParsedArguments' generic map
// since tools.Schema can't express emit_plan's nested task objects.
func parsePlanArguments(call llm.ToolCall) (*planArguments, error) {
	raw, err := call.ParsedArguments()
	if err != nil {
		return nil, errs.Wrap(errs.KindSchema, err, "ask the model to call emit_plan again with valid JSON arguments", true)
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, errs.Wrap(errs.KindSchema, err, "", true)
	}
	var args planArguments
	if err := json.Unmarshal(encoded, &args); err != nil {
		return nil, errs.Wrap(errs.KindSchema, err, "emit_plan's tasks must match {id, description, action_type, target_paths, dependencies, risk_level}", true)
	}
	if len(args.Tasks) == 0 {
		return nil, errs.New(errs.KindSchema, "emit_plan returned zero tasks", "a plan needs at least one task", true)
	}
	return &args, nil
}

// buildPlan converts the validated wire shape into a plan.ExecutionPlan,
// rejecting unknown action types, duplicate ids, and dependencies on
// unknown tasks before the caller ever runs TopoSort. A missing or
// unknown risk level is not rejected; it defaults to medium.
func buildPlan(sessionID string, args *planArguments) (*plan.ExecutionPlan, error) {
	seen := make(map[string]bool, len(args.Tasks))
	tasks := make([]plan.Task, 0, len(args.Tasks))

	for _, stub := range args.Tasks {
		if stub.ID == "" {
			return nil, errs.New(errs.KindSchema, "emit_plan task missing id", "every task needs a unique non-empty id", true)
		}
		if seen[stub.ID] {
			return nil, errs.New(errs.KindSchema, "emit_plan declared duplicate task id: "+stub.ID, "assign each task a unique id", true)
		}
		seen[stub.ID] = true

		actionType, ok := validActionTypes[stub.ActionType]
		if !ok {
			return nil, errs.New(errs.KindSchema, "emit_plan task "+stub.ID+" has unknown action_type: "+stub.ActionType,
				"action_type must be one of add, edit, refactor, test, debug, fix, document, research, analyze, review, delete, move", true)
		}

		risk, ok := validRiskLevels[stub.RiskLevel]
		if !ok {
			risk = plan.RiskMedium
		}

		tasks = append(tasks, plan.Task{
			ID:           stub.ID,
			Description:  stub.Description,
			ActionType:   actionType,
			Status:       plan.StatusPending,
			RiskLevel:    risk,
			TargetPaths:  stub.TargetPaths,
			Dependencies: stub.Dependencies,
		})
	}

	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if !seen[dep] {
				return nil, errs.New(errs.KindSchema, "task "+t.ID+" depends on unknown task "+dep,
					"every dependency id must refer to a task present in the same plan", true)
			}
		}
	}

	return &plan.ExecutionPlan{SessionID: sessionID, Tasks: tasks}, nil
}
