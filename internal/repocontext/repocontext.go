// Package repocontext builds the Repository Context snapshot: a file
// listing, git status/recent-commit summary, and a hybrid TF-IDF +
// substring symbol index used by the Planner to decide reuse-vs-add
// and by sub-agents to find related code. Git access is grounded on
// diillson-chatcli's utils/git_utils.go (plain os/exec calls to the
// git binary, one call per fact); symbol extraction is grounded on
// internal/world/ast_treesitter.go's Go symbol walker, narrowed to
// feed an inverted index instead of a fact store.
package repocontext

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"revcore/internal/analysiscache"
	"revcore/internal/errs"
)

// CommitSummary is one entry of recent git history.
type CommitSummary struct {
	Hash     string
	Author   string
	Relative string
	Subject  string
}

// GitStatus is a condensed view of the working tree's state.
type GitStatus struct {
	Branch         string
	Clean          bool
	ModifiedFiles  []string
	UntrackedFiles []string
	RecentCommits  []CommitSummary
}

// Symbol is one indexed identifier: a function, method or type
// declaration found in a Go source file.
type Symbol struct {
	Name      string
	Kind      string // function, method, type
	Path      string
	Signature string
}

// Snapshot is the complete Repository Context handed to the Planner
// and to sub-agents at the start of a session.
type Snapshot struct {
	Root    string
	Files   []string
	Git     GitStatus
	Symbols []Symbol
	index   invertedIndex
}

// Build walks root, collects the file listing, queries git, and
// indexes every .go file's symbols. A failure to query git (root is
// not a repository) is not fatal — GitStatus is left zeroed and the
// rest of the snapshot still builds.
func Build(ctx context.Context, root string, ast *analysiscache.ASTCache) (*Snapshot, error) {
	files, err := listFiles(root)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Root: root, Files: files}
	snap.Git = gitStatus(ctx, root)

	for _, f := range files {
		if !strings.HasSuffix(f, ".go") {
			continue
		}
		syms, err := extractSymbols(ctx, ast, filepath.Join(root, f), f)
		if err != nil {
			continue // unparsable file contributes no symbols, not a fatal error
		}
		snap.Symbols = append(snap.Symbols, syms...)
	}
	snap.index = buildIndex(snap.Symbols)
	return snap, nil
}

// Exists reports whether path is present in the snapshot's file
// listing, the ExistingFileChecker the reuse-first plan policy needs.
func (s *Snapshot) Exists(path string) bool {
	rel, err := filepath.Rel(s.Root, path)
	if err != nil {
		rel = path
	}
	for _, f := range s.Files {
		if f == rel || f == path {
			return true
		}
	}
	return false
}

// Search returns symbols ranked by a hybrid score: an exact substring
// match on the query anywhere in the symbol name or signature scores
// highest, broken further by TF-IDF relevance over indexed tokens, so
// a query like "retry" surfaces both `RetryWithBackoff` (substring)
// and files whose signatures discuss retries frequently (TF-IDF) ahead
// of incidental one-off mentions.
func (s *Snapshot) Search(query string, limit int) []Symbol {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	terms := tokenize(query)

	type scored struct {
		sym   Symbol
		score float64
	}
	var results []scored
	for i, sym := range s.Symbols {
		substringHit := strings.Contains(strings.ToLower(sym.Name), query) ||
			strings.Contains(strings.ToLower(sym.Signature), query)
		tfidf := s.index.score(i, terms)
		if !substringHit && tfidf == 0 {
			continue
		}
		score := tfidf
		if substringHit {
			score += 10 // substring matches always outrank pure TF-IDF relevance
		}
		results = append(results, scored{sym: sym, score: score})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	if limit <= 0 || limit > len(results) {
		limit = len(results)
	}
	out := make([]Symbol, limit)
	for i := 0; i < limit; i++ {
		out[i] = results[i].sym
	}
	return out
}

func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || name == "node_modules" || name == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindTool, err, "failed to walk workspace", false)
	}
	return files, nil
}

func gitStatus(ctx context.Context, root string) GitStatus {
	run := func(args ...string) (string, error) {
		cmd := exec.CommandContext(ctx, "git", args...)
		cmd.Dir = root
		out, err := cmd.Output()
		return strings.TrimSpace(string(out)), err
	}

	var gs GitStatus
	if _, err := run("rev-parse", "--is-inside-work-tree"); err != nil {
		return gs
	}

	if branch, err := run("branch", "--show-current"); err == nil {
		gs.Branch = branch
	}

	if porcelain, err := run("status", "--porcelain"); err == nil {
		gs.Clean = porcelain == ""
		for _, line := range strings.Split(porcelain, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "??") {
				gs.UntrackedFiles = append(gs.UntrackedFiles, strings.TrimSpace(line[2:]))
			} else {
				gs.ModifiedFiles = append(gs.ModifiedFiles, strings.TrimSpace(line[2:]))
			}
		}
	}

	if log, err := run("log", "-5", "--pretty=format:%h%x09%an%x09%ar%x09%s"); err == nil && log != "" {
		for _, line := range strings.Split(log, "\n") {
			parts := strings.SplitN(line, "\t", 4)
			if len(parts) != 4 {
				continue
			}
			gs.RecentCommits = append(gs.RecentCommits, CommitSummary{
				Hash: parts[0], Author: parts[1], Relative: parts[2], Subject: parts[3],
			})
		}
	}

	return gs
}

func extractSymbols(ctx context.Context, ast *analysiscache.ASTCache, absPath, relPath string) ([]Symbol, error) {
	if ast == nil {
		return nil, fmt.Errorf("no AST cache configured")
	}
	source, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	tree, err := ast.Parse(ctx, absPath, source)
	if err != nil {
		return nil, err
	}
	return walkGoSymbols(tree.RootNode(), relPath, source), nil
}
