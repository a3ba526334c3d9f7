package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"revcore/internal/errs"
	"revcore/internal/filecache"
	"revcore/internal/tactileexec"
	"revcore/internal/transaction"
)

// yaegiAllowedImports is the stdlib-only whitelist eval_snippet enforces,
// grounded on internal/autopoiesis.YaegiExecutor's safety restriction:
// no filesystem, network, or exec access from interpreted code.
var yaegiAllowedImports = map[string]bool{
	"strings": true, "strconv": true, "fmt": true, "math": true,
	"regexp": true, "encoding/json": true, "encoding/base64": true,
	"time": true, "sort": true, "bytes": true, "errors": true,
}

// RegisterDefaults registers the default tool set: read_file,
// write_file, edit_file, append_file, delete_file,
// move_file, run_cmd, run_tests, git_status, git_diff, git_commit,
// web_fetch, eval_snippet.
func RegisterDefaults(r *Registry, cache *filecache.Cache, txManager *transaction.Manager, workspace string) error {
	tools := []*Tool{
		readFileTool(cache, workspace),
		writeFileTool(cache, txManager, workspace),
		editFileTool(cache, txManager, workspace),
		appendFileTool(cache, txManager, workspace),
		deleteFileTool(cache, txManager, workspace),
		moveFileTool(cache, txManager, workspace),
		runCmdTool(workspace),
		runTestsTool(workspace),
		gitStatusTool(workspace),
		gitDiffTool(workspace),
		gitCommitTool(workspace),
		webFetchTool(),
		evalSnippetTool(),
	}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func resolvePath(workspace, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workspace, path)
}

func readFileTool(cache *filecache.Cache, workspace string) *Tool {
	return &Tool{
		Name:        "read_file",
		Description: "Read the contents of a file in the workspace.",
		Category:    CategoryFile,
		Schema: Schema{
			Required:   []string{"path"},
			Properties: map[string]Property{"path": {Type: "string", Description: "workspace-relative file path"}},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			path := resolvePath(workspace, args["path"].(string))
			content, err := cache.Get(path)
			if err != nil {
				return "", err
			}
			return string(content), nil
		},
	}
}

func writeFileTool(cache *filecache.Cache, txManager *transaction.Manager, workspace string) *Tool {
	return &Tool{
		Name:        "write_file",
		Description: "Create or overwrite a file with the given content.",
		Category:    CategoryFile,
		Destructive: true,
		Schema: Schema{
			Required: []string{"path", "content"},
			Properties: map[string]Property{
				"path":    {Type: "string", Description: "workspace-relative file path"},
				"content": {Type: "string", Description: "full file content to write"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			path := resolvePath(workspace, args["path"].(string))
			content := args["content"].(string)
			if tx := transaction.FromContext(ctx); tx != nil {
				if err := txManager.RecordWrite(tx, path, "write_file"); err != nil {
					return "", err
				}
			}
			if err := cache.Put(path, []byte(content), 0o644); err != nil {
				return "", err
			}
			return fmt.Sprintf("wrote %d bytes to %s", len(content), path), nil
		},
	}
}

func editFileTool(cache *filecache.Cache, txManager *transaction.Manager, workspace string) *Tool {
	return &Tool{
		Name:        "edit_file",
		Description: "Replace the first occurrence of old_text with new_text in a file.",
		Category:    CategoryFile,
		Destructive: true,
		Schema: Schema{
			Required: []string{"path", "old_text", "new_text"},
			Properties: map[string]Property{
				"path":     {Type: "string"},
				"old_text": {Type: "string", Description: "exact text to replace"},
				"new_text": {Type: "string", Description: "replacement text"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			path := resolvePath(workspace, args["path"].(string))
			oldText := args["old_text"].(string)
			newText := args["new_text"].(string)

			content, err := cache.Get(path)
			if err != nil {
				return "", err
			}
			if !strings.Contains(string(content), oldText) {
				return "", errs.New(errs.KindTool, "old_text not found in "+path,
					"re-read the file and supply old_text that matches exactly, including whitespace", true)
			}

			if tx := transaction.FromContext(ctx); tx != nil {
				if err := txManager.RecordWrite(tx, path, "edit_file"); err != nil {
					return "", err
				}
			}
			updated := strings.Replace(string(content), oldText, newText, 1)
			if err := cache.Put(path, []byte(updated), 0o644); err != nil {
				return "", err
			}
			return fmt.Sprintf("edited %s", path), nil
		},
	}
}

func appendFileTool(cache *filecache.Cache, txManager *transaction.Manager, workspace string) *Tool {
	return &Tool{
		Name:        "append_file",
		Description: "Append content to the end of a file, creating it if absent.",
		Category:    CategoryFile,
		Destructive: true,
		Schema: Schema{
			Required:   []string{"path", "content"},
			Properties: map[string]Property{"path": {Type: "string"}, "content": {Type: "string"}},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			path := resolvePath(workspace, args["path"].(string))
			content := args["content"].(string)

			existing, err := cache.Get(path)
			if err != nil {
				existing = nil // missing file: append creates it
			}
			if tx := transaction.FromContext(ctx); tx != nil {
				if err := txManager.RecordWrite(tx, path, "append_file"); err != nil {
					return "", err
				}
			}
			updated := append(append([]byte{}, existing...), []byte(content)...)
			if err := cache.Put(path, updated, 0o644); err != nil {
				return "", err
			}
			return fmt.Sprintf("appended %d bytes to %s", len(content), path), nil
		},
	}
}

func deleteFileTool(cache *filecache.Cache, txManager *transaction.Manager, workspace string) *Tool {
	return &Tool{
		Name:        "delete_file",
		Description: "Delete a file from the workspace.",
		Category:    CategoryFile,
		Destructive: true,
		Schema: Schema{
			Required:   []string{"path"},
			Properties: map[string]Property{"path": {Type: "string"}},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			path := resolvePath(workspace, args["path"].(string))
			if tx := transaction.FromContext(ctx); tx != nil {
				if err := txManager.RecordDelete(tx, path, "delete_file"); err != nil {
					return "", err
				}
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return "", errs.Wrap(errs.KindTool, err, "failed to delete "+path, false)
			}
			cache.Invalidate(path)
			return "deleted " + path, nil
		},
	}
}

func moveFileTool(cache *filecache.Cache, txManager *transaction.Manager, workspace string) *Tool {
	return &Tool{
		Name:        "move_file",
		Description: "Move or rename a file within the workspace.",
		Category:    CategoryFile,
		Destructive: true,
		Schema: Schema{
			Required:   []string{"from", "to"},
			Properties: map[string]Property{"from": {Type: "string"}, "to": {Type: "string"}},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			from := resolvePath(workspace, args["from"].(string))
			to := resolvePath(workspace, args["to"].(string))
			if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
				return "", errs.Wrap(errs.KindTool, err, "failed to create destination directory", false)
			}
			if tx := transaction.FromContext(ctx); tx != nil {
				txManager.RecordMove(tx, from, to, "move_file")
			}
			if err := os.Rename(from, to); err != nil {
				return "", errs.Wrap(errs.KindTool, err, "failed to move "+from+" to "+to, false)
			}
			cache.Invalidate(from)
			cache.Invalidate(to)
			return fmt.Sprintf("moved %s to %s", from, to), nil
		},
	}
}

func runCmdTool(workspace string) *Tool {
	return &Tool{
		Name:        "run_cmd",
		Description: "Run a shell command in the workspace. Commands outside the allow-list or matching destructive patterns require confirmation.",
		Category:    CategoryExec,
		Schema: Schema{
			Required: []string{"binary"},
			Properties: map[string]Property{
				"binary":    {Type: "string"},
				"arguments": {Type: "array", Items: &PropertyItems{Type: "string"}},
				"confirmed": {Type: "boolean", Description: "must be true to run a command requiring confirmation", Default: false},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			cmd := tactileexec.Command{
				Binary:           args["binary"].(string),
				WorkingDirectory: workspace,
				Arguments:        stringSlice(args["arguments"]),
			}
			confirmed, _ := args["confirmed"].(bool)
			if tactileexec.NeedsConfirmation(cmd) && !confirmed {
				return "", errs.New(errs.KindTool, "command requires confirmation: "+cmd.CommandString(),
					"re-call run_cmd with confirmed=true if this destructive command is intentional", true)
			}
			result, err := tactileexec.Run(ctx, cmd)
			if err != nil {
				return "", err
			}
			return result.Output(), nil
		},
	}
}

func runTestsTool(workspace string) *Tool {
	return &Tool{
		Name:        "run_tests",
		Description: "Run the project's test suite (go test ./...).",
		Category:    CategoryExec,
		Schema: Schema{
			Properties: map[string]Property{"package": {Type: "string", Description: "package pattern, default ./..."}},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			pkg, _ := args["package"].(string)
			if pkg == "" {
				pkg = "./..."
			}
			result, err := tactileexec.Run(ctx, tactileexec.Command{
				Binary: "go", Arguments: []string{"test", pkg}, WorkingDirectory: workspace,
			})
			if err != nil {
				return "", err
			}
			if result.ExitCode != 0 && strings.Contains(result.Output(), "no test files") {
				return result.Output(), nil // pass-with-warning, not a failure
			}
			return result.Output(), nil
		},
	}
}

func gitStatusTool(workspace string) *Tool {
	return &Tool{
		Name:        "git_status",
		Description: "Show the working tree status.",
		Category:    CategoryGit,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			result, err := tactileexec.Run(ctx, tactileexec.Command{Binary: "git", Arguments: []string{"status", "--porcelain", "-b"}, WorkingDirectory: workspace})
			if err != nil {
				return "", err
			}
			return result.Output(), nil
		},
	}
}

func gitDiffTool(workspace string) *Tool {
	return &Tool{
		Name:        "git_diff",
		Description: "Show uncommitted changes.",
		Category:    CategoryGit,
		Schema:      Schema{Properties: map[string]Property{"path": {Type: "string", Description: "limit diff to this path"}}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			cmdArgs := []string{"diff"}
			if path, ok := args["path"].(string); ok && path != "" {
				cmdArgs = append(cmdArgs, "--", path)
			}
			result, err := tactileexec.Run(ctx, tactileexec.Command{Binary: "git", Arguments: cmdArgs, WorkingDirectory: workspace})
			if err != nil {
				return "", err
			}
			return result.Output(), nil
		},
	}
}

func gitCommitTool(workspace string) *Tool {
	return &Tool{
		Name:        "git_commit",
		Description: "Stage all changes and create a commit.",
		Category:    CategoryGit,
		Destructive: true,
		Schema: Schema{
			Required:   []string{"message"},
			Properties: map[string]Property{"message": {Type: "string"}},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			message := args["message"].(string)
			if _, err := tactileexec.Run(ctx, tactileexec.Command{Binary: "git", Arguments: []string{"add", "-A"}, WorkingDirectory: workspace}); err != nil {
				return "", err
			}
			result, err := tactileexec.Run(ctx, tactileexec.Command{Binary: "git", Arguments: []string{"commit", "-m", message}, WorkingDirectory: workspace})
			if err != nil {
				return "", err
			}
			return result.Output(), nil
		},
	}
}

func webFetchTool() *Tool {
	return &Tool{
		Name:        "web_fetch",
		Description: "Fetch a URL's rendered text content. Uses a headless browser for JS-rendered pages, falling back to a plain HTTP GET.",
		Category:    CategoryWeb,
		Schema: Schema{
			Required:   []string{"url"},
			Properties: map[string]Property{"url": {Type: "string"}, "render_js": {Type: "boolean", Default: false}},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			url := args["url"].(string)
			renderJS, _ := args["render_js"].(bool)
			if renderJS {
				return fetchRendered(ctx, url)
			}
			return fetchPlain(ctx, url)
		},
	}
}

func fetchPlain(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errs.Wrap(errs.KindTool, err, "failed to build request for "+url, false)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", errs.Wrap(errs.KindTransport, err, "failed to fetch "+url, true)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", errs.Wrap(errs.KindTool, err, "failed to read response body", false)
	}
	return string(body), nil
}

func fetchRendered(ctx context.Context, url string) (string, error) {
	path, has := launcher.LookPath()
	if !has {
		return fetchPlain(ctx, url)
	}
	controlURL, err := launcher.New().Bin(path).Headless(true).Launch()
	if err != nil {
		return "", errs.Wrap(errs.KindTool, err, "failed to launch headless browser", true)
	}
	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", errs.Wrap(errs.KindTool, err, "failed to connect to headless browser", true)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", errs.Wrap(errs.KindTool, err, "failed to load "+url, true)
	}
	defer page.Close()

	if err := page.Context(ctx).WaitLoad(); err != nil {
		return "", errs.Wrap(errs.KindTool, err, "page failed to finish loading", true)
	}
	body, err := page.Context(ctx).Element("body")
	if err != nil {
		return "", errs.Wrap(errs.KindTool, err, "failed to read page body", false)
	}
	text, err := body.Text()
	if err != nil {
		return "", errs.Wrap(errs.KindTool, err, "failed to extract page text", false)
	}
	return text, nil
}

func evalSnippetTool() *Tool {
	return &Tool{
		Name:        "eval_snippet",
		Description: "Evaluate a Go snippet defining func Run(input string) (string, error) in a stdlib-only sandbox (no filesystem, network, or exec access).",
		Category:    CategoryEval,
		Schema: Schema{
			Required: []string{"code"},
			Properties: map[string]Property{
				"code":  {Type: "string", Description: "Go source defining func Run(input string) (string, error)"},
				"input": {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			code := args["code"].(string)
			input, _ := args["input"].(string)
			return evalSnippet(ctx, code, input)
		},
	}
}

func evalSnippet(ctx context.Context, code, input string) (string, error) {
	if err := validateSnippetImports(code); err != nil {
		return "", err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return "", errs.Wrap(errs.KindTool, err, "failed to load interpreter stdlib", false)
	}

	full := code
	if !strings.Contains(code, "package main") {
		full = "package main\n\n" + code
	}
	if _, err := i.Eval(full); err != nil {
		return "", errs.Wrap(errs.KindTool, err, "snippet failed to evaluate", true)
	}

	runFn, err := i.Eval("main.Run")
	if err != nil {
		return "", errs.New(errs.KindSchema, "snippet does not define Run",
			"define func Run(input string) (string, error) at the top level", true)
	}
	run, ok := runFn.Interface().(func(string) (string, error))
	if !ok {
		return "", errs.New(errs.KindSchema, "Run has the wrong signature",
			"Run must be func Run(input string) (string, error)", true)
	}

	type outcome struct {
		value string
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := run(input)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return "", errs.Wrap(errs.KindTool, out.err, "snippet returned an error", true)
		}
		return out.value, nil
	case <-ctx.Done():
		return "", errs.New(errs.KindTool, "snippet timed out", "simplify the snippet or raise the timeout", true)
	case <-time.After(10 * time.Second):
		return "", errs.New(errs.KindTool, "snippet timed out after 10s", "simplify the snippet", true)
	}
}

func validateSnippetImports(code string) error {
	var imports []string
	inBlock := false
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
		case inBlock && strings.HasPrefix(trimmed, ")"):
			inBlock = false
		case inBlock:
			if pkg := strings.Trim(trimmed, `"`); pkg != "" {
				imports = append(imports, pkg)
			}
		case strings.HasPrefix(trimmed, "import "):
			pkg := strings.TrimPrefix(trimmed, "import ")
			imports = append(imports, strings.Trim(pkg, `"`))
		}
	}

	var forbidden []string
	for _, pkg := range imports {
		if !yaegiAllowedImports[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}
	if len(forbidden) > 0 {
		return errs.New(errs.KindSchema, "disallowed imports: "+strings.Join(forbidden, ", "),
			"eval_snippet only permits stdlib-safe packages: strings, strconv, fmt, math, regexp, encoding/json, encoding/base64, time, sort, bytes, errors", true)
	}
	return nil
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
