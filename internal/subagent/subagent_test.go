package subagent

import (
	"context"
	"testing"

	"revcore/internal/llm"
	"revcore/internal/llm/mockclient"
	"revcore/internal/plan"
	"revcore/internal/tools"
	"revcore/internal/transaction"
)

func newTestRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	r.MustRegister(&tools.Tool{
		Name:     "read_file",
		Category: tools.CategoryFile,
		Schema:   tools.Schema{Required: []string{"path"}, Properties: map[string]tools.Property{"path": {Type: "string"}}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "package main\n", nil
		},
	})
	return r
}

func TestRunCompletesWhenModelEmitsSentinel(t *testing.T) {
	registry := newTestRegistry(t)
	client := mockclient.New("mock",
		mockclient.Response{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "read_file", Arguments: `{"path":"a.go"}`}}},
		mockclient.Response{Text: CodeWriterSentinel},
	)
	tx := transaction.NewManager().Begin("t1")
	task := &plan.Task{ID: "t1", Description: "read a.go", ActionType: plan.ActionAdd, TargetPaths: []string{"a.go"}}

	outcome := Run(context.Background(), CodeWriter{}, client, registry, tx, task, Config{MaxIterations: 5})

	if outcome.State != StateCompleted {
		t.Fatalf("expected StateCompleted, got %v (err=%v)", outcome.State, outcome.Err)
	}
	if outcome.FinalText != CodeWriterSentinel {
		t.Fatalf("unexpected final text: %q", outcome.FinalText)
	}
	if len(outcome.ToolEvents) != 1 || outcome.ToolEvents[0].ToolName != "read_file" {
		t.Fatalf("expected 1 recorded read_file event, got %+v", outcome.ToolEvents)
	}
}

func TestRunFailsWhenIterationBudgetExhausted(t *testing.T) {
	registry := newTestRegistry(t)
	client := mockclient.New("mock",
		mockclient.Response{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "read_file", Arguments: `{"path":"a.go"}`}}},
	)
	tx := transaction.NewManager().Begin("t1")
	task := &plan.Task{ID: "t1", Description: "read forever", ActionType: plan.ActionAdd}

	outcome := Run(context.Background(), CodeWriter{}, client, registry, tx, task, Config{MaxIterations: 2})

	if outcome.State != StateFailed {
		t.Fatalf("expected StateFailed once the budget is exhausted, got %v", outcome.State)
	}
	if outcome.Err == nil {
		t.Fatal("expected a budget-exhaustion error")
	}
}

func TestRunRecoversFromSchemaError(t *testing.T) {
	registry := newTestRegistry(t)
	client := mockclient.New("mock",
		mockclient.Response{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "read_file", Arguments: `{}`}}},
		mockclient.Response{ToolCalls: []llm.ToolCall{{ID: "call_2", Name: "read_file", Arguments: `{"path":"a.go"}`}}},
		mockclient.Response{Text: CodeWriterSentinel},
	)
	tx := transaction.NewManager().Begin("t1")
	task := &plan.Task{ID: "t1", Description: "read a.go", ActionType: plan.ActionAdd, TargetPaths: []string{"a.go"}}

	outcome := Run(context.Background(), CodeWriter{}, client, registry, tx, task, Config{MaxIterations: 5})

	if outcome.State != StateCompleted {
		t.Fatalf("expected recovery to let the task complete, got %v (err=%v)", outcome.State, outcome.Err)
	}
}

func TestAllSevenAgentsDeclareNonEmptyContract(t *testing.T) {
	agents := []Agent{CodeWriter{}, Refactoring{}, TestExecutor{}, Debugging{}, Documentation{}, Research{}, Analysis{}}
	for _, a := range agents {
		if a.Name() == "" {
			t.Fatalf("agent %T has an empty name", a)
		}
		if a.CompletionSentinel() == "" {
			t.Fatalf("agent %s has an empty completion sentinel", a.Name())
		}
		if len(a.AllowedTools()) == 0 {
			t.Fatalf("agent %s has no allowed tools", a.Name())
		}
	}
}

func TestOnlyResearchIsGrantedWebFetch(t *testing.T) {
	agents := []Agent{CodeWriter{}, Refactoring{}, TestExecutor{}, Debugging{}, Documentation{}, Research{}, Analysis{}}
	for _, a := range agents {
		hasWebFetch := false
		for _, tool := range a.AllowedTools() {
			if tool == "web_fetch" {
				hasWebFetch = true
			}
		}
		if hasWebFetch != (a.Name() == "Research") {
			t.Fatalf("expected only Research to carry web_fetch, but %s has it=%v", a.Name(), hasWebFetch)
		}
	}
}

func TestOnlyTestExecutorIsGrantedRunTests(t *testing.T) {
	agents := []Agent{CodeWriter{}, Refactoring{}, TestExecutor{}, Debugging{}, Documentation{}, Research{}, Analysis{}}
	for _, a := range agents {
		hasRunTests := false
		for _, tool := range a.AllowedTools() {
			if tool == "run_tests" {
				hasRunTests = true
			}
		}
		want := a.Name() == "TestExecutor"
		if hasRunTests != want {
			t.Fatalf("unexpected run_tests grant for %s: got %v", a.Name(), hasRunTests)
		}
	}
}
