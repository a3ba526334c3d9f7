// Package tactileexec is the lowest-level execution layer that
// physically runs shell commands on behalf of the run_cmd and
// run_tests tools. It is grounded on internal/tactile's
// Command/ExecutionResult shape (the "motor cortex" execution layer),
// narrowed from its full sandbox-mode/resource-limit surface to what
// the orchestration core actually needs: a curated allow-list of
// binaries and a risk-confirmation gate for anything that looks
// destructive.
package tactileexec

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"revcore/internal/errs"
)

// AllowList is the set of binaries run_cmd/run_tests may invoke
// without an explicit per-call override. This follows the familiar
// sandboxing principle (minimal trusted surface) without adopting a
// Docker/namespace sandbox mode, which is scoped to an external
// collaborator (the host environment), not this core.
var AllowList = map[string]bool{
	"go":     true,
	"git":    true,
	"bash":   true,
	"sh":     true,
	"make":   true,
	"npm":    true,
	"yarn":   true,
	"pytest": true,
	"python": true,
	"python3": true,
}

// destructiveArgPatterns flags argument substrings that make an
// otherwise-allowed binary risky enough to require confirmation (e.g.
// `git push --force`, `rm -rf`, `git reset --hard`).
var destructiveArgPatterns = []string{"--force", "-f", "-rf", "--hard", "push"}

// Command describes one shell invocation.
type Command struct {
	Binary           string
	Arguments        []string
	WorkingDirectory string
	TimeoutMs        int64
	Stdin            string
}

// CommandString renders the command for display and audit logs.
func (c Command) CommandString() string {
	if len(c.Arguments) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Arguments, " ")
}

// Result is the outcome of running a Command.
type Result struct {
	Success    bool
	ExitCode   int
	Stdout     string
	Stderr     string
	Duration   time.Duration
	StartedAt  time.Time
	FinishedAt time.Time
	Killed     bool
	Error      string
}

// Output returns stdout and stderr concatenated, stdout first.
func (r *Result) Output() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// NeedsConfirmation reports whether cmd's binary is outside the
// allow-list, or its arguments match a destructive pattern, and so
// must be gated behind a risk confirmation before execution rather
// than run automatically.
func NeedsConfirmation(cmd Command) bool {
	if !AllowList[cmd.Binary] {
		return true
	}
	for _, arg := range cmd.Arguments {
		for _, pattern := range destructiveArgPatterns {
			if arg == pattern || strings.Contains(arg, pattern) {
				return true
			}
		}
	}
	return false
}

// Run executes cmd and captures its result. A non-zero exit code is
// not an error at this layer — it is reported via Result.ExitCode and
// Result.Success remains true, following the
// Success-means-infrastructure-succeeded convention so callers can
// distinguish "command ran and failed" from "command could not run".
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cmd.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	started := time.Now()
	execCmd := exec.CommandContext(ctx, cmd.Binary, cmd.Arguments...)
	if cmd.WorkingDirectory != "" {
		execCmd.Dir = cmd.WorkingDirectory
	}
	if cmd.Stdin != "" {
		execCmd.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	runErr := execCmd.Run()
	finished := time.Now()

	result := &Result{
		Success:    true,
		ExitCode:   execCmd.ProcessState.ExitCode(),
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		Duration:   finished.Sub(started),
		StartedAt:  started,
		FinishedAt: finished,
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.Killed = true
		result.Success = false
		result.Error = "command timed out"
		return result, errs.New(errs.KindTool, "command timed out: "+cmd.CommandString(),
			"increase the timeout or break the command into smaller steps", true)
	}

	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			result.Success = false
			result.Error = runErr.Error()
			return result, errs.Wrap(errs.KindTool, runErr, "failed to execute "+cmd.Binary, false)
		}
	}

	return result, nil
}
