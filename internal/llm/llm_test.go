package llm

import (
	"context"
	"errors"
	"testing"

	"revcore/internal/tools"
)

func TestToolCallParsedArgumentsRoundtrips(t *testing.T) {
	tc := ToolCall{Arguments: `{"path":"a.go","count":3}`}
	args, err := tc.ParsedArguments()
	if err != nil {
		t.Fatalf("ParsedArguments: %v", err)
	}
	if args["path"] != "a.go" {
		t.Fatalf("expected path=a.go, got %v", args["path"])
	}
}

func TestToolCallParsedArgumentsEmptyStringYieldsEmptyMap(t *testing.T) {
	tc := ToolCall{}
	args, err := tc.ParsedArguments()
	if err != nil {
		t.Fatalf("ParsedArguments: %v", err)
	}
	if len(args) != 0 {
		t.Fatalf("expected empty map, got %v", args)
	}
}

func TestToolCallAssemblerConcatenatesFragmentsByIndex(t *testing.T) {
	a := NewToolCallAssembler()
	a.Add(ToolCallDelta{Index: 0, ID: "call_1", Name: "write_file", ArgumentsFrag: `{"path":`})
	a.Add(ToolCallDelta{Index: 0, ArgumentsFrag: `"a.go","content":"x"}`})

	calls := a.Finish()
	if len(calls) != 1 {
		t.Fatalf("expected 1 assembled call, got %d", len(calls))
	}
	if calls[0].Arguments != `{"path":"a.go","content":"x"}` {
		t.Fatalf("unexpected assembled arguments: %q", calls[0].Arguments)
	}
}

func TestToolCallAssemblerKeepsDistinctIndexesSeparate(t *testing.T) {
	a := NewToolCallAssembler()
	a.Add(ToolCallDelta{Index: 1, ID: "call_b", Name: "read_file", ArgumentsFrag: `{"path":"b.go"}`})
	a.Add(ToolCallDelta{Index: 0, ID: "call_a", Name: "read_file", ArgumentsFrag: `{"path":"a.go"}`})

	calls := a.Finish()
	if len(calls) != 2 {
		t.Fatalf("expected 2 assembled calls, got %d", len(calls))
	}
	if calls[0].ID != "call_a" || calls[1].ID != "call_b" {
		t.Fatalf("expected calls in index order, got %+v", calls)
	}
}

func TestWithDegradationReturnsFirstSuccess(t *testing.T) {
	calls := 0
	resp, err := WithDegradation(context.Background(), ChatRequest{ToolChoice: ToolChoiceRequired},
		func(err error) bool { return false },
		func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
			calls++
			return &ChatResponse{FinishReason: "stop"}, nil
		})
	if err != nil {
		t.Fatalf("WithDegradation: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", calls)
	}
	if resp.FinishReason != "stop" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestWithDegradationFallsBackThroughAllThreeSteps(t *testing.T) {
	rejectable := errors.New("400 tool_choice not supported")
	var seenToolChoices []ToolChoiceMode
	var seenToolCounts []int

	req := ChatRequest{
		ToolChoice: ToolChoiceRequired,
		Tools:      []tools.Definition{{Type: "function", Function: tools.FunctionDef{Name: "read_file"}}},
	}
	_, err := WithDegradation(context.Background(), req,
		func(err error) bool { return true },
		func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
			seenToolChoices = append(seenToolChoices, req.ToolChoice)
			seenToolCounts = append(seenToolCounts, len(req.Tools))
			return nil, rejectable
		})
	if err == nil {
		t.Fatal("expected an error once every degradation step is exhausted")
	}
	if len(seenToolChoices) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(seenToolChoices))
	}
	if seenToolChoices[0] != ToolChoiceRequired {
		t.Fatalf("expected first attempt to use the forced choice, got %v", seenToolChoices[0])
	}
	if seenToolChoices[1] != ToolChoiceAuto {
		t.Fatalf("expected second attempt to degrade to auto, got %v", seenToolChoices[1])
	}
	if seenToolChoices[2] != "" {
		t.Fatalf("expected third attempt to clear tool choice, got %v", seenToolChoices[2])
	}
	if seenToolCounts[2] != 0 {
		t.Fatalf("expected third attempt to drop tools entirely, got %d", seenToolCounts[2])
	}
}

func TestNewCallIDGeneratesUniqueIDs(t *testing.T) {
	a, b := NewCallID(), NewCallID()
	if a == b {
		t.Fatal("expected distinct call ids")
	}
}
