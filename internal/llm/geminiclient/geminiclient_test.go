package geminiclient

import (
	"errors"
	"testing"

	"google.golang.org/genai"

	"revcore/internal/llm"
	"revcore/internal/tools"
)

func TestConvertMessagesExtractsSystemSeparately(t *testing.T) {
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: "be terse"},
		{Role: llm.RoleUser, Content: "read a.go"},
	}

	contents, system := convertMessages(msgs)

	if system == nil || system.Parts[0].Text != "be terse" {
		t.Fatalf("expected system instruction extracted, got %+v", system)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 remaining content, got %d", len(contents))
	}
}

func TestConvertMessagesCarriesFunctionCallAndResponse(t *testing.T) {
	msgs := []llm.Message{
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "read_file", Arguments: `{"path":"a.go"}`}}},
		{Role: llm.RoleTool, Content: `{"result":"package main"}`, ToolCallID: "call_1"},
	}

	contents, _ := convertMessages(msgs)
	if len(contents) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(contents))
	}
	if contents[0].Parts[0].FunctionCall == nil || contents[0].Parts[0].FunctionCall.Name != "read_file" {
		t.Fatalf("expected function call part, got %+v", contents[0].Parts[0])
	}
	if contents[1].Parts[0].FunctionResponse == nil {
		t.Fatalf("expected function response part, got %+v", contents[1].Parts[0])
	}
}

func TestConvertToolsBuildsFunctionDeclarations(t *testing.T) {
	defs := []tools.Definition{
		{
			Type: "function",
			Function: tools.FunctionDef{
				Name:        "write_file",
				Description: "write a file",
				Parameters: tools.Schema{
					Required:   []string{"path"},
					Properties: map[string]tools.Property{"path": {Type: "string"}},
				},
			},
		},
	}

	out := convertTools(defs)
	if len(out) != 1 || len(out[0].FunctionDeclarations) != 1 {
		t.Fatalf("expected 1 tool with 1 declaration, got %+v", out)
	}
	decl := out[0].FunctionDeclarations[0]
	if decl.Name != "write_file" {
		t.Fatalf("unexpected declaration name: %s", decl.Name)
	}
	if decl.Parameters.Type != genai.TypeObject {
		t.Fatalf("expected object schema type, got %v", decl.Parameters.Type)
	}
	if _, ok := decl.Parameters.Properties["path"]; !ok {
		t.Fatalf("expected path property, got %+v", decl.Parameters.Properties)
	}
}

func TestRejectsToolChoiceMatchesKnownSignals(t *testing.T) {
	if !RejectsToolChoice(errors.New("INVALID_ARGUMENT: function_calling_config mode not supported")) {
		t.Fatal("expected function_calling_config error to be classified as rejecting tool choice")
	}
	if RejectsToolChoice(errors.New("context deadline exceeded")) {
		t.Fatal("expected unrelated error not to be classified as rejecting tool choice")
	}
	if RejectsToolChoice(nil) {
		t.Fatal("expected nil error to not reject")
	}
}

func TestNewRejectsEmptyAPIKey(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil { //nolint:staticcheck // nil ctx: constructor fails before using it
		t.Fatal("expected error for empty API key")
	}
}
