// Package geminiclient implements llm.Client over Google's Gemini API
// using google.golang.org/genai (client construction — NewClient with
// genai.ClientConfig{APIKey} — and its API-key/model defaulting
// pattern are carried over from this module's embedding-client usage
// of the same SDK). Gemini's chat/function-calling surface has no
// precedent elsewhere in this module, so the GenerateContent/FunctionCall
// shape below follows the SDK's own naming conventions.
//
// Gemini is the "weak provider" family: its FunctionCallingConfig.Mode
// only ever nudges the model toward a call, it never strictly forbids
// a text-only reply the way Anthropic's {type: "any"} or OpenAI's
// tool_choice: "required" do. Callers drive this adapter through
// llm.WithDegradation using RejectsToolChoice so that a Mode: ANY
// rejection falls back to auto, then to no tools at all, exactly like
// any other weak provider.
package geminiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"revcore/internal/llm"
	"revcore/internal/tools"
)

// Config configures the Gemini-backed client.
type Config struct {
	APIKey string
	Model  string
}

// Client implements llm.Client via genai's GenerateContent API.
type Client struct {
	client *genai.Client
	model  string
}

// New builds a geminiclient.Client from cfg.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("geminiclient: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-pro"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Chat performs a non-streaming GenerateContent call, setting
// FunctionCallingConfig.Mode to ANY when req.ToolChoice is
// ToolChoiceRequired. Unlike the strict-required and auto-but-must-call
// families, Mode: ANY is a preference, not an enforced contract — the
// model can still reply with only text, which is why this adapter is
// meant to be driven through llm.WithDegradation rather than trusted
// on its own.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	contents, systemInstruction := convertMessages(req.Messages)

	config := &genai.GenerateContentConfig{}
	if systemInstruction != nil {
		config.SystemInstruction = systemInstruction
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		config.Tools = convertTools(req.Tools)
		if req.ToolChoice == llm.ToolChoiceRequired {
			config.ToolConfig = &genai.ToolConfig{
				FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAny},
			}
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, llm.ErrNoChoices
	}

	message := llm.Message{Role: llm.RoleAssistant}
	var calls []llm.ToolCall
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				message.Content += part.Text
			}
			if part.FunctionCall != nil {
				argsJSON, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					return nil, fmt.Errorf("marshal function call args: %w", err)
				}
				calls = append(calls, llm.ToolCall{
					ID:        llm.NewCallID(),
					Name:      part.FunctionCall.Name,
					Arguments: string(argsJSON),
				})
			}
		}
	}
	message.ToolCalls = calls

	finishReason := strings.ToLower(string(resp.Candidates[0].FinishReason))
	if len(calls) > 0 {
		finishReason = "tool_calls"
	}

	usage := llm.Usage{}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return &llm.ChatResponse{
		Message:      message,
		ToolCalls:    calls,
		FinishReason: finishReason,
		Usage:        usage,
	}, nil
}

// ChatStream is not implemented by this adapter; see openaiclient's
// equivalent note.
func (c *Client) ChatStream(ctx context.Context, req llm.ChatRequest) (llm.Stream, error) {
	return nil, errors.New("geminiclient: streaming not implemented, use Chat")
}

// RejectsToolChoice classifies errors that mean Gemini refused the
// requested FunctionCallingConfig.Mode, the signal llm.WithDegradation
// needs to fall back a step.
func RejectsToolChoice(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "function_calling_config") ||
		strings.Contains(msg, "invalid_argument") ||
		strings.Contains(msg, "tool_config")
}

func convertMessages(msgs []llm.Message) ([]*genai.Content, *genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(msgs))

	for _, msg := range msgs {
		switch msg.Role {
		case llm.RoleSystem:
			system = genai.NewContentFromText(msg.Content, genai.RoleUser)

		case llm.RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))

		case llm.RoleAssistant:
			parts := make([]*genai.Part, 0, 1+len(msg.ToolCalls))
			if msg.Content != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal([]byte(tc.Arguments), &args)
				parts = append(parts, genai.NewPartFromFunctionCall(tc.Name, args))
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))

		case llm.RoleTool:
			var result map[string]any
			if err := json.Unmarshal([]byte(msg.Content), &result); err != nil {
				result = map[string]any{"result": msg.Content}
			}
			contents = append(contents, genai.NewContentFromParts(
				[]*genai.Part{genai.NewPartFromFunctionResponse(msg.ToolCallID, result)},
				genai.RoleUser,
			))
		}
	}
	return contents, system
}

func convertTools(defs []tools.Definition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, def := range defs {
		schema := &genai.Schema{Type: genai.TypeObject, Required: def.Function.Parameters.Required}
		if len(def.Function.Parameters.Properties) > 0 {
			schema.Properties = map[string]*genai.Schema{}
			for name, prop := range def.Function.Parameters.Properties {
				schema.Properties[name] = &genai.Schema{
					Type:        genai.Type(strings.ToUpper(prop.Type)),
					Description: prop.Description,
				}
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        def.Function.Name,
			Description: def.Function.Description,
			Parameters:  schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}
