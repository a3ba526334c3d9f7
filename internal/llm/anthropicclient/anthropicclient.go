// Package anthropicclient implements llm.Client over the Anthropic
// Messages API using the official github.com/anthropics/anthropic-sdk-go
// SDK. It is grounded on basegraphhq-basegraph's
// relay/common/llm/anthropic.go anthropicClient: the system-message
// extraction (Anthropic takes system content out-of-band from the
// messages array) and tool_use/tool_result content-block conversion
// are carried over directly. Anthropic is the "strict-required" family:
// ToolChoiceRequired maps to {type: "any"}.
package anthropicclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"revcore/internal/llm"
	"revcore/internal/tools"
)

// Config configures the Anthropic-backed client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client implements llm.Client via the Anthropic Messages API.
type Client struct {
	client anthropic.Client
	model  string
}

// New builds an anthropicclient.Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropicclient: API key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-5"
	}
	return &Client{client: anthropic.NewClient(opts...), model: model}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Chat performs a non-streaming tool-calling message, forcing
// {type: "any"} tool choice when req.ToolChoice is ToolChoiceRequired
// — Anthropic's "strict-required" enforcement: the model cannot reply
// with text alone once tools are present under this mode.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	systemBlocks, messages := convertMessages(req.Messages)
	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 8192
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
		if req.ToolChoice == llm.ToolChoiceRequired {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{
				OfAny: &anthropic.ToolChoiceAnyParam{},
			}
		}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic message: %w", err)
	}

	message := llm.Message{Role: llm.RoleAssistant}
	var calls []llm.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			message.Content += block.Text
		case "tool_use":
			calls = append(calls, llm.ToolCall{ID: block.ID, Name: block.Name, Arguments: string(block.Input)})
		}
	}
	message.ToolCalls = calls

	return &llm.ChatResponse{
		Message:      message,
		ToolCalls:    calls,
		FinishReason: mapStopReason(resp.StopReason),
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

// ChatStream is not implemented by this adapter; see openaiclient's
// equivalent note. The mock client exercises the streaming contract.
func (c *Client) ChatStream(ctx context.Context, req llm.ChatRequest) (llm.Stream, error) {
	return nil, errors.New("anthropicclient: streaming not implemented, use Chat")
}

func convertMessages(msgs []llm.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(msgs))

	for _, msg := range msgs {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Type: "text", Text: msg.Content})

		case llm.RoleUser:
			messages = append(messages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)},
			})

		case llm.RoleAssistant:
			var content []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				content = append(content, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				content = append(content, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						Type:  "tool_use",
						ID:    tc.ID,
						Name:  tc.Name,
						Input: []byte(tc.Arguments),
					},
				})
			}
			messages = append(messages, anthropic.MessageParam{Role: anthropic.MessageParamRoleAssistant, Content: content})

		case llm.RoleTool:
			messages = append(messages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false)},
			})
		}
	}
	return system, messages
}

func convertTools(defs []tools.Definition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		schema := anthropic.ToolInputSchemaParam{Type: "object"}
		if def.Function.Parameters.Properties != nil {
			schema.Properties = def.Function.Parameters.Properties
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        def.Function.Name,
				Description: anthropic.String(def.Function.Description),
				InputSchema: schema,
			},
		})
	}
	return out
}

func mapStopReason(reason anthropic.StopReason) string {
	switch reason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		return "stop"
	case anthropic.StopReasonToolUse:
		return "tool_calls"
	case anthropic.StopReasonMaxTokens:
		return "length"
	default:
		return string(reason)
	}
}
