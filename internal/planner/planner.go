// Package planner implements the Planner component: given a request,
// repository context, and research findings, it constructs a canonical
// prompt, forces the LM to call the Plan schema as its tool choice,
// validates and deterministically fixes up the result (test-first
// ordering, reuse-first downgrading, coverage guarantee —
// internal/plan's already-implemented policies), topologically sorts
// it, and derives Goals from the request text via a small rule set.
// Grounded on internal/campaign/replan.go's
// propose-then-parse-then-validate shape, adapted from free-text JSON
// parsing to a forced structured tool call per this module's LM Client
// contract.
package planner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"revcore/internal/errs"
	"revcore/internal/llm"
	"revcore/internal/logging"
	"revcore/internal/plan"
	"revcore/internal/repocontext"
	"revcore/internal/tools"
)

// Planner constructs execution plans via an LM forced tool call.
type Planner struct {
	Client   llm.Client
	Rejects  llm.RejectsToolChoice // non-nil for FamilyWeak clients; enables WithDegradation
	nextID   func() string
	idSeqOff int
}

// New constructs a Planner. rejects may be nil for strict/auto-must-call
// providers that never need the degradation ladder.
func New(client llm.Client, rejects llm.RejectsToolChoice) *Planner {
	p := &Planner{Client: client, Rejects: rejects}
	p.nextID = func() string {
		p.idSeqOff++
		return fmt.Sprintf("synthetic-%d", p.idSeqOff)
	}
	return p
}

// Plan builds an ExecutionPlan for sessionID from request, the current
// repository snapshot, and any prior research findings.
func (p *Planner) Plan(ctx context.Context, sessionID, request string, snapshot *repocontext.Snapshot, researchFindings []string) (*plan.ExecutionPlan, error) {
	log := logging.For(logging.CategoryPlanner)

	req := llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: buildUserPrompt(request, snapshot, researchFindings)},
		},
		Tools:      []tools.Definition{planDefinition()},
		ToolChoice: llm.ToolChoiceRequired,
	}

	var resp *llm.ChatResponse
	var err error
	if p.Rejects != nil {
		resp, err = llm.WithDegradation(ctx, req, p.Rejects, p.Client.Chat)
	} else {
		resp, err = p.Client.Chat(ctx, req)
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindTransport, err, "the LM failed to produce a plan; retry or check provider status", true)
	}

	call, err := extractPlanCall(resp)
	if err != nil {
		return nil, err
	}

	args, err := parsePlanArguments(call)
	if err != nil {
		return nil, err
	}

	execPlan, err := buildPlan(sessionID, args)
	if err != nil {
		return nil, err
	}

	execPlan.Goals = deriveGoals(request)

	if snapshot != nil {
		plan.ApplyReuseFirst(execPlan, snapshot.Exists)
	}
	plan.ApplyTestFirstOrdering(execPlan)
	plan.EnsureCoverageGuarantee(execPlan, p.nextID)

	if _, err := plan.TopoSort(execPlan); err != nil {
		return nil, err
	}

	log.Info("plan constructed",
		zap.String("session_id", sessionID), zap.Int("task_count", len(execPlan.Tasks)))
	return execPlan, nil
}
