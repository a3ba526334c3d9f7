// Package mockclient is a deterministic, in-memory llm.Client used by
// orchestrator and sub-agent tests: it replays scripted replies (plain
// text or tool calls) in order, whatever tool choice the request
// carries. It is grounded on diillson-chatcli's MockLLMClient — a
// fixed Response/Err struct satisfying the provider interface directly
// — generalized with a scripted response queue and a toggle that
// simulates a provider rejecting forced tool choice, so a single mock
// can also drive llm.WithDegradation's two-step fallback test.
package mockclient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"revcore/internal/llm"
)

// ErrToolChoiceRejected is returned by Chat when RejectForcedChoice is
// set and the request still carries a forced tool choice, simulating a
// weak provider's 400 on an unsupported tool_choice value.
var ErrToolChoiceRejected = errors.New("mockclient: provider rejected forced tool_choice")

// Response is one scripted reply. When ToolCalls is non-empty the mock
// behaves like a provider that decided to call a tool; otherwise it
// returns Text as a plain assistant message.
type Response struct {
	Text      string
	ToolCalls []llm.ToolCall
	Err       error
}

// Client is a scripted, call-order-deterministic llm.Client.
type Client struct {
	mu                 sync.Mutex
	model              string
	responses          []Response
	calls              int
	RejectForcedChoice bool
	Requests           []llm.ChatRequest
}

// New builds a mockclient.Client that replays responses in order. The
// last response repeats once the queue is exhausted.
func New(model string, responses ...Response) *Client {
	return &Client{model: model, responses: responses}
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Chat replays the next scripted response. A request with
// ToolChoiceRequired and no tools configured on the mock itself still
// honors whatever was scripted — callers assert call-site behavior
// (forced choice present, degradation ordering) by inspecting Requests
// after the call.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Requests = append(c.Requests, req)

	if c.RejectForcedChoice && req.ToolChoice == llm.ToolChoiceRequired {
		return nil, ErrToolChoiceRejected
	}

	resp := c.nextLocked()
	if resp.Err != nil {
		return nil, resp.Err
	}

	message := llm.Message{Role: llm.RoleAssistant, Content: resp.Text, ToolCalls: resp.ToolCalls}
	finish := "stop"
	if len(resp.ToolCalls) > 0 {
		finish = "tool_calls"
	}
	return &llm.ChatResponse{
		Message:      message,
		ToolCalls:    resp.ToolCalls,
		FinishReason: finish,
		Usage:        llm.Usage{PromptTokens: 10, CompletionTokens: 10},
	}, nil
}

// ChatStream replays the next scripted response as a sequence of
// StreamDelta events, fragmenting any tool call's arguments into two
// pieces by index so callers can exercise llm.ToolCallAssembler against
// a real llm.Stream rather than constructing deltas by hand.
func (c *Client) ChatStream(ctx context.Context, req llm.ChatRequest) (llm.Stream, error) {
	c.mu.Lock()
	c.Requests = append(c.Requests, req)
	if c.RejectForcedChoice && req.ToolChoice == llm.ToolChoiceRequired {
		c.mu.Unlock()
		return nil, ErrToolChoiceRejected
	}
	resp := c.nextLocked()
	c.mu.Unlock()

	if resp.Err != nil {
		return nil, resp.Err
	}
	return newScriptedStream(resp), nil
}

func (c *Client) nextLocked() Response {
	if len(c.responses) == 0 {
		return Response{Text: "ok"}
	}
	idx := c.calls
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	c.calls++
	return c.responses[idx]
}

// RejectsToolChoice classifies ErrToolChoiceRejected for use with
// llm.WithDegradation in tests exercising the weak-provider path.
func RejectsToolChoice(err error) bool {
	return errors.Is(err, ErrToolChoiceRejected)
}

type scriptedStream struct {
	deltas []llm.StreamDelta
	pos    int
}

func newScriptedStream(resp Response) *scriptedStream {
	var deltas []llm.StreamDelta
	if resp.Text != "" {
		deltas = append(deltas, llm.StreamDelta{ContentDelta: resp.Text})
	}
	for i, tc := range resp.ToolCalls {
		half := len(tc.Arguments) / 2
		deltas = append(deltas,
			llm.StreamDelta{ToolCallDelta: &llm.ToolCallDelta{Index: i, ID: tc.ID, Name: tc.Name, ArgumentsFrag: tc.Arguments[:half]}},
			llm.StreamDelta{ToolCallDelta: &llm.ToolCallDelta{Index: i, ArgumentsFrag: tc.Arguments[half:]}},
		)
	}
	finish := "stop"
	if len(resp.ToolCalls) > 0 {
		finish = "tool_calls"
	}
	deltas = append(deltas, llm.StreamDelta{Done: true, FinishReason: finish})
	return &scriptedStream{deltas: deltas}
}

func (s *scriptedStream) Recv() (llm.StreamDelta, error) {
	if s.pos >= len(s.deltas) {
		return llm.StreamDelta{}, fmt.Errorf("mockclient: stream exhausted")
	}
	d := s.deltas[s.pos]
	s.pos++
	return d, nil
}

func (s *scriptedStream) Close() error { return nil }
