package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"revcore/internal/errs"
	"revcore/internal/logging"
	"revcore/internal/transaction"
)

// Registry holds every tool available to the current session. It is
// thread-safe so sub-agents running in parallel can call Execute
// concurrently without external locking.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]*Tool
	byCategory map[Category][]*Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:      make(map[string]*Tool),
		byCategory: make(map[Category][]*Tool),
	}
}

// Register adds a tool, failing if the name is already taken.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return errs.Wrap(errs.KindTool, err, "fix the Tool struct before registering", false)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return errs.New(errs.KindTool, fmt.Sprintf("%v: %s", ErrToolAlreadyRegistered, tool.Name),
			"choose a distinct tool name or deregister the existing one first", false)
	}

	r.tools[tool.Name] = tool
	r.byCategory[tool.Category] = append(r.byCategory[tool.Category], tool)
	return nil
}

// MustRegister registers a tool and panics on failure; used for the
// static default tool set wired at session start.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil if not registered.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// GetByCategory returns every tool in a category.
func (r *Registry) GetByCategory(category Category) []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, len(r.byCategory[category]))
	copy(out, r.byCategory[category])
	return out
}

// GetMultiple returns the tools named, silently skipping names with no match.
func (r *Registry) GetMultiple(names []string) []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(names))
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Names returns every registered tool name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the canonical tool-calling schema for the given
// tool names, in the shape every LM provider adapter expects before
// translating it to its own wire format.
func (r *Registry) Definitions(names []string) []Definition {
	tools := r.GetMultiple(names)
	defs := make([]Definition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, Definition{
			Type: "function",
			Function: FunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Schema,
			},
		})
	}
	return defs
}

// Definition is the canonical {type: "function", function: {...}}
// tool-calling schema shape.
type Definition struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef is the function body of a Definition.
type FunctionDef struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// Execute runs a named tool against args, validating required
// arguments first. When tx is non-nil it is handed to the tool through
// ctx, so file-mutating tools record their pre-state in it; the
// registry itself records nothing, and other tools leave tx untouched.
func (r *Registry) Execute(ctx context.Context, tx *transaction.Transaction, name string, args map[string]any) (*Result, error) {
	tool := r.Get(name)
	if tool == nil {
		return nil, errs.New(errs.KindTool, fmt.Sprintf("%v: %s", ErrToolNotFound, name),
			"check the tool name against Registry.Names()", false)
	}
	return r.executeTool(ctx, tx, tool, args)
}

func (r *Registry) executeTool(ctx context.Context, tx *transaction.Transaction, tool *Tool, args map[string]any) (*Result, error) {
	start := time.Now()
	log := logging.For(logging.CategoryTools)

	if err := validateArgs(tool, args); err != nil {
		return &Result{ToolName: tool.Name, Err: err, DurationMs: time.Since(start).Milliseconds()}, err
	}

	if tx != nil {
		ctx = transaction.WithTransaction(ctx, tx)
	}
	output, err := tool.Execute(ctx, args)
	duration := time.Since(start)

	log.Debug("tool executed",
		zap.String("tool", tool.Name), zap.Duration("duration", duration), zap.Bool("success", err == nil))

	return &Result{ToolName: tool.Name, Output: output, Err: err, DurationMs: duration.Milliseconds()}, err
}

// validateArgs checks every required schema parameter is present and,
// where the schema names a type, that it matches — producing an
// actionable hint naming the missing or mismatched parameter rather
// than a bare "invalid arguments" error.
func validateArgs(tool *Tool, args map[string]any) error {
	for _, required := range tool.Schema.Required {
		if _, ok := args[required]; !ok {
			return errs.New(errs.KindSchema, fmt.Sprintf("%v: %s", ErrMissingRequiredArg, required),
				fmt.Sprintf("call %s again with a %q argument as described in its schema", tool.Name, required), true)
		}
	}
	for name, value := range args {
		prop, ok := tool.Schema.Properties[name]
		if !ok || prop.Type == "" {
			continue
		}
		if !typeMatches(prop.Type, value) {
			return errs.New(errs.KindSchema, fmt.Sprintf("%v: %s (expected %s)", ErrWrongArgType, name, prop.Type),
				fmt.Sprintf("pass %q as a %s value", name, prop.Type), true)
		}
	}
	return nil
}

func typeMatches(schemaType string, value any) bool {
	switch schemaType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case "integer":
		switch v := value.(type) {
		case int, int64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}
