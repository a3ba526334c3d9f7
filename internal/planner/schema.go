package planner

import "revcore/internal/tools"

// emitPlanToolName is the name the Plan schema is bound under as the
// forced tool-choice target: the LM is invoked with the Plan schema
// bound as the tool-choice.
const emitPlanToolName = "emit_plan"

// planDefinition builds the canonical tool-calling schema describing
// the shape an ExecutionPlan's tasks must take, following the same
// {type: function, function: {...}} Definition shape the Tool
// Registry emits for ordinary tools (internal/tools.Registry.
// Definitions) so the LM sees one consistent calling convention for
// every forced tool call it's asked to make.
// tools.Property has no nested-object member shape (every built-in
// tool's arguments are flat), so the task array's per-field contract
// is carried in the system prompt text rather than in the JSON schema
// itself; buildPlan (validate.go) is what actually enforces it once the call
// comes back.
func planDefinition() tools.Definition {
	schema := tools.Schema{
		Required: []string{"goal_description", "tasks"},
		Properties: map[string]tools.Property{
			"goal_description": {
				Type:        "string",
				Description: "one-sentence restatement of what the completed plan must achieve",
			},
			"tasks": {
				Type:        "array",
				Description: "the ordered list of atomic tasks that accomplish the goal",
				Items:       &tools.PropertyItems{Type: "object"},
			},
		},
	}

	return tools.Definition{
		Type: "function",
		Function: tools.FunctionDef{
			Name:        emitPlanToolName,
			Description: "Emit the execution plan: a goal description and an ordered list of tasks.",
			Parameters:  schema,
		},
	}
}

// taskStub is the wire shape one task takes inside the emit_plan tool
// call's "tasks" array, parsed out of ToolCall.ParsedArguments()'s
// generic map before being converted into a plan.Task.
type taskStub struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	ActionType   string   `json:"action_type"`
	TargetPaths  []string `json:"target_paths"`
	Dependencies []string `json:"dependencies"`
	RiskLevel    string   `json:"risk_level"`
}

// planArguments is the full decoded emit_plan call.
type planArguments struct {
	GoalDescription string     `json:"goal_description"`
	Tasks           []taskStub `json:"tasks"`
}
