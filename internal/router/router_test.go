package router

import (
	"testing"

	"revcore/internal/plan"
	"revcore/internal/subagent"
)

func TestRouteMatchesRoutingTable(t *testing.T) {
	cases := map[plan.ActionType]string{
		plan.ActionAdd:      "CodeWriter",
		plan.ActionEdit:     "CodeWriter",
		plan.ActionRefactor: "Refactoring",
		plan.ActionTest:     "TestExecutor",
		plan.ActionDebug:    "Debugging",
		plan.ActionFix:      "Debugging",
		plan.ActionDocument: "Documentation",
		plan.ActionResearch: "Research",
		plan.ActionAnalyze:  "Analysis",
		plan.ActionReview:   "Analysis",
	}
	for actionType, wantName := range cases {
		if got := Route(actionType).Name(); got != wantName {
			t.Fatalf("Route(%s) = %s, want %s", actionType, got, wantName)
		}
	}
}

func TestRouteFallsBackToCodeWriterForUnknownActionType(t *testing.T) {
	agent := Route(plan.ActionType("invent_a_gadget"))
	if _, ok := agent.(subagent.CodeWriter); !ok {
		t.Fatalf("expected fallback to CodeWriter, got %T", agent)
	}
}
