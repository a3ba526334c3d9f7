// Package subagent implements the seven role-specialized drivers tasks
// route to (CodeWriter, Refactoring, TestExecutor, Debugging,
// Documentation, Research, Analysis), sharing one driver loop. It is
// grounded on internal/session.SubAgent: the
// Idle/Running/Completed/Failed lifecycle, per-agent timeout via
// context.WithTimeout, and cooperative cancellation through the
// caller's context all carry over, narrowed from a JIT-compiled, persistent/ephemeral/
// system agent config to a fixed set of seven agents whose system
// prompt, tool allowlist, and completion sentinel are declared in code
// rather than loaded from a runtime-compiled config.
package subagent

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"revcore/internal/errs"
	"revcore/internal/llm"
	"revcore/internal/logging"
	"revcore/internal/plan"
	"revcore/internal/tools"
	"revcore/internal/transaction"
)

// State mirrors the familiar SubAgentState lifecycle.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Agent is the shared contract every concrete sub-agent implements.
// BuildSystemPrompt receives the task being driven so an
// agent can tailor its prompt to the action type and target paths;
// AllowedTools names the subset of the Tool Registry this agent may
// call; CompletionSentinel is the phrase the model emits in its final
// text content to signal the loop should stop; RecoverFromSchemaError
// turns a malformed-arguments failure into a hint appended to the next
// turn rather than an immediate task failure.
type Agent interface {
	Name() string
	BuildSystemPrompt(task *plan.Task) string
	AllowedTools() []string
	CompletionSentinel() string
	RecoverFromSchemaError(err error) string
}

// Config bounds one driver-loop run.
type Config struct {
	MaxIterations int
	Timeout       time.Duration
}

// DefaultConfig mirrors the familiar DefaultSubAgentConfig defaults,
// narrowed to the fields a stateless per-task loop actually needs.
func DefaultConfig() Config {
	return Config{MaxIterations: 25, Timeout: 30 * time.Minute}
}

// Outcome is what the driver loop hands back to the orchestrator.
type Outcome struct {
	State      State
	FinalText  string
	ToolEvents []plan.ToolEvent
	Err        error
}

// Run drives agent's bounded loop against task: build prompt → chat
// with tools enforced → parse tool calls → dispatch via the Tool
// Registry → append results as tool messages → repeat until the model
// emits agent's completion sentinel or the iteration budget runs out.
// Schema errors from tool dispatch are translated through
// RecoverFromSchemaError into a hint message rather than aborting the
// task outright, the same way CodeWriter handles an empty
// replace-value argument.
func Run(ctx context.Context, agent Agent, client llm.Client, registry *tools.Registry, tx *transaction.Transaction, task *plan.Task, cfg Config) Outcome {
	log := logging.For(logging.CategorySubAgent)
	state := int32(StateRunning)

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	ctx = transaction.WithTransaction(ctx, tx)

	defs := registry.Definitions(agent.AllowedTools())
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: agent.BuildSystemPrompt(task)},
		{Role: llm.RoleUser, Content: task.Description},
	}

	var events []plan.ToolEvent
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultConfig().MaxIterations
	}

	for i := 0; i < maxIter; i++ {
		select {
		case <-ctx.Done():
			atomic.StoreInt32(&state, int32(StateFailed))
			return Outcome{State: StateFailed, ToolEvents: events, Err: ctx.Err()}
		default:
		}

		resp, err := client.Chat(ctx, llm.ChatRequest{
			Messages:   messages,
			Tools:      defs,
			ToolChoice: llm.ToolChoiceRequired,
		})
		if err != nil {
			atomic.StoreInt32(&state, int32(StateFailed))
			log.Error("subagent chat failed", zap.String("agent", agent.Name()), zap.String("task_id", task.ID), zap.Error(err))
			return Outcome{State: StateFailed, ToolEvents: events, Err: err}
		}

		messages = append(messages, resp.Message)

		if len(resp.ToolCalls) == 0 {
			if containsSentinel(resp.Message.Content, agent.CompletionSentinel()) {
				atomic.StoreInt32(&state, int32(StateCompleted))
				return Outcome{State: StateCompleted, FinalText: resp.Message.Content, ToolEvents: events}
			}
			// The model replied with text but no sentinel and no tool
			// call: nudge it back toward either action.
			messages = append(messages, llm.Message{
				Role:    llm.RoleUser,
				Content: fmt.Sprintf("Call a tool to make progress, or reply with %q once the task is done.", agent.CompletionSentinel()),
			})
			continue
		}

		for _, call := range resp.ToolCalls {
			args, err := call.ParsedArguments()
			if err != nil {
				hint := agent.RecoverFromSchemaError(err)
				messages = append(messages, llm.Message{Role: llm.RoleTool, ToolCallID: call.ID, Content: "error: " + hint})
				continue
			}

			result, err := registry.Execute(ctx, tx, call.Name, args)
			event := plan.ToolEvent{ToolName: call.Name, Args: args, Timestamp: time.Now()}
			if err != nil {
				event.Error = err.Error()
				content := err.Error()
				if se, ok := err.(*errs.Error); ok && se.Kind == errs.KindSchema {
					content = agent.RecoverFromSchemaError(se)
				}
				events = append(events, event)
				messages = append(messages, llm.Message{Role: llm.RoleTool, ToolCallID: call.ID, Content: "error: " + content})
				continue
			}

			event.Result = result.Output
			events = append(events, event)
			messages = append(messages, llm.Message{Role: llm.RoleTool, ToolCallID: call.ID, Content: result.Output})
		}
	}

	atomic.StoreInt32(&state, int32(StateFailed))
	return Outcome{
		State:      StateFailed,
		ToolEvents: events,
		Err:        errs.New(errs.KindBudget, fmt.Sprintf("%s exhausted its %d-iteration budget without completing", agent.Name(), maxIter), "break the task into smaller steps or raise the per-task iteration budget", false),
	}
}

func containsSentinel(text, sentinel string) bool {
	return sentinel != "" && strings.Contains(text, sentinel)
}
