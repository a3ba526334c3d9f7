// Package openaiclient implements llm.Client over the OpenAI Chat
// Completions API using the official github.com/openai/openai-go SDK.
// It is grounded on basegraphhq-basegraph's relay/common/llm/llm.go
// agentClient, carrying over its ChatCompletionNewParams construction
// and tool/message conversion but speaking the llm.Client contract
// instead of a bespoke AgentClient interface. OpenAI is treated as the
// "auto-but-must-call" family: ToolChoiceRequired maps to the SDK's
// literal "required" tool_choice value.
package openaiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"revcore/internal/llm"
	"revcore/internal/tools"
)

// Config configures the OpenAI-backed client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client implements llm.Client via OpenAI Chat Completions.
type Client struct {
	openai openai.Client
	model  string
}

// New builds an openaiclient.Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openaiclient: API key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	return &Client{openai: openai.NewClient(opts...), model: model}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Chat performs a non-streaming tool-calling chat completion,
// enforcing req.ToolChoice via the SDK's tool_choice parameter when
// tools are present.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	params := c.buildParams(req)

	resp, err := c.openai.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.ErrNoChoices
	}

	choice := resp.Choices[0]
	message := llm.Message{Role: llm.RoleAssistant, Content: choice.Message.Content}
	calls := make([]llm.ToolCall, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		calls = append(calls, llm.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	message.ToolCalls = calls

	return &llm.ChatResponse{
		Message:      message,
		ToolCalls:    calls,
		FinishReason: string(choice.FinishReason),
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

// ChatStream is not implemented by this adapter; OpenAI streaming
// tool-call deltas require a second SDK surface (chunked
// ChatCompletionChunk events) no SPEC_FULL.md scenario currently
// exercises beyond the mock client's deterministic stream.
func (c *Client) ChatStream(ctx context.Context, req llm.ChatRequest) (llm.Stream, error) {
	return nil, errors.New("openaiclient: streaming not implemented, use Chat")
}

func (c *Client) buildParams(req llm.ChatRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: convertMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
		if req.ToolChoice == llm.ToolChoiceRequired {
			params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
				OfAuto: openai.String("required"),
			}
		}
	}
	return params
}

func convertMessages(msgs []llm.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case llm.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case llm.RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case llm.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Content:   openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(msg.Content)},
					ToolCalls: toolCalls,
				},
			})
		case llm.RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}
	return out
}

func convertTools(defs []tools.Definition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		var params shared.FunctionParameters
		if raw, err := json.Marshal(def.Function.Parameters); err == nil {
			_ = json.Unmarshal(raw, &params)
		}
		out = append(out, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        def.Function.Name,
				Description: openai.String(def.Function.Description),
				Parameters:  params,
			},
		})
	}
	return out
}
