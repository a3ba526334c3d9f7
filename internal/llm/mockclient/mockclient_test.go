package mockclient

import (
	"context"
	"errors"
	"testing"

	"revcore/internal/llm"
)

func TestChatReturnsTextOnlyWhenToolChoiceAbsent(t *testing.T) {
	c := New("mock-1", Response{Text: "here is your answer"})

	resp, err := c.Chat(context.Background(), llm.ChatRequest{ToolChoice: llm.ToolChoiceAuto})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Message.Content != "here is your answer" || len(resp.ToolCalls) != 0 {
		t.Fatalf("expected text-only response, got %+v", resp)
	}
}

func TestChatReturnsToolCallWhenScripted(t *testing.T) {
	call := llm.ToolCall{ID: "call_1", Name: "read_file", Arguments: `{"path":"a.go"}`}
	c := New("mock-1", Response{ToolCalls: []llm.ToolCall{call}})

	resp, err := c.Chat(context.Background(), llm.ChatRequest{ToolChoice: llm.ToolChoiceRequired})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "read_file" {
		t.Fatalf("expected a single read_file tool call, got %+v", resp.ToolCalls)
	}
	if resp.FinishReason != "tool_calls" {
		t.Fatalf("expected finish reason tool_calls, got %s", resp.FinishReason)
	}
}

func TestChatStreamFragmentsToolCallArgumentsByIndex(t *testing.T) {
	call := llm.ToolCall{ID: "call_1", Name: "write_file", Arguments: `{"path":"a.go","content":"x"}`}
	c := New("mock-1", Response{ToolCalls: []llm.ToolCall{call}})

	stream, err := c.ChatStream(context.Background(), llm.ChatRequest{})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	defer stream.Close()

	assembler := llm.NewToolCallAssembler()
	for {
		delta, err := stream.Recv()
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if delta.ToolCallDelta != nil {
			assembler.Add(*delta.ToolCallDelta)
		}
		if delta.Done {
			break
		}
	}

	calls := assembler.Finish()
	if len(calls) != 1 {
		t.Fatalf("expected 1 assembled call, got %d", len(calls))
	}
	if calls[0].Arguments != call.Arguments {
		t.Fatalf("expected reassembled arguments %q, got %q", call.Arguments, calls[0].Arguments)
	}
}

func TestWithDegradationFallsBackWhenMockRejectsForcedChoice(t *testing.T) {
	c := New("mock-weak", Response{Text: "fell back to plain text"})
	c.RejectForcedChoice = true

	req := llm.ChatRequest{ToolChoice: llm.ToolChoiceRequired}
	resp, err := llm.WithDegradation(context.Background(), req, RejectsToolChoice, c.Chat)
	if err != nil {
		t.Fatalf("WithDegradation: %v", err)
	}
	if resp.Message.Content != "fell back to plain text" {
		t.Fatalf("unexpected response after degradation: %+v", resp)
	}

	if len(c.Requests) != 2 {
		t.Fatalf("expected exactly 2 attempts (forced, then auto), got %d", len(c.Requests))
	}
	if c.Requests[0].ToolChoice != llm.ToolChoiceRequired {
		t.Fatalf("expected first attempt forced, got %v", c.Requests[0].ToolChoice)
	}
	if c.Requests[1].ToolChoice != llm.ToolChoiceAuto {
		t.Fatalf("expected second attempt to degrade to auto, got %v", c.Requests[1].ToolChoice)
	}
}

func TestRejectsToolChoiceOnlyMatchesSentinel(t *testing.T) {
	if !RejectsToolChoice(ErrToolChoiceRejected) {
		t.Fatal("expected sentinel error to be classified as rejecting tool choice")
	}
	if RejectsToolChoice(errors.New("some other failure")) {
		t.Fatal("expected unrelated error not to be classified as rejecting tool choice")
	}
}
