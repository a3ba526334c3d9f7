package tools

import (
	"context"
	"testing"
)

func echoTool(name string, required []string) *Tool {
	return &Tool{
		Name:        name,
		Description: "echoes its input",
		Category:    CategoryGeneral,
		Schema:      Schema{Required: required, Properties: map[string]Property{"value": {Type: "string"}}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			v, _ := args["value"].(string)
			return v, nil
		},
	}
}

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	tool := echoTool("echo", nil)
	if err := r.Register(tool); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := r.Get("echo"); got != tool {
		t.Fatal("expected Get to return the registered tool")
	}
	if r.Get("missing") != nil {
		t.Fatal("expected nil for unregistered tool")
	}
}

func TestRegisterDuplicateNameFails(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("echo", nil)); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(echoTool("echo", nil)); err == nil {
		t.Fatal("expected error registering a duplicate tool name")
	}
}

func TestRegisterRejectsInvalidTool(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&Tool{}); err == nil {
		t.Fatal("expected error for a tool with no name or Execute func")
	}
}

func TestExecuteMissingToolReturnsError(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Execute(context.Background(), nil, "ghost", nil); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestExecuteValidatesRequiredArgs(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("echo", []string{"value"})); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Execute(context.Background(), nil, "echo", map[string]any{}); err == nil {
		t.Fatal("expected error for missing required argument")
	}

	result, err := r.Execute(context.Background(), nil, "echo", map[string]any{"value": "hi"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Output != "hi" {
		t.Fatalf("expected output 'hi', got %q", result.Output)
	}
}

func TestExecuteValidatesArgType(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("echo", nil)); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Execute(context.Background(), nil, "echo", map[string]any{"value": 5}); err == nil {
		t.Fatal("expected type-mismatch error for a non-string value")
	}
}

func TestGetByCategoryAndNames(t *testing.T) {
	r := NewRegistry()
	a := echoTool("a", nil)
	a.Category = CategoryFile
	b := echoTool("b", nil)
	b.Category = CategoryExec
	if err := r.Register(a); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(b); err != nil {
		t.Fatal(err)
	}

	if got := r.GetByCategory(CategoryFile); len(got) != 1 || got[0].Name != "a" {
		t.Fatalf("expected only 'a' in CategoryFile, got %v", got)
	}
	if names := r.Names(); len(names) != 2 {
		t.Fatalf("expected 2 names, got %v", names)
	}
}

func TestDefinitionsProducesCanonicalShape(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("echo", []string{"value"})); err != nil {
		t.Fatal(err)
	}
	defs := r.Definitions([]string{"echo"})
	if len(defs) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(defs))
	}
	if defs[0].Type != "function" || defs[0].Function.Name != "echo" {
		t.Fatalf("unexpected definition shape: %+v", defs[0])
	}
}
