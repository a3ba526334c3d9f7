// Package analysiscache holds the Analysis Caches: the LM response
// cache, the AST cache, and the dependency-graph cache. Unlike the
// File-State Cache these are wholesale-flushable — ClearAll() drops
// everything and is idempotent on repeated calls, since a stale
// analysis result is safe to recompute but never safe to silently
// keep past the task boundary that invalidated it.
//
// The response cache is grounded on goadesign-goa-ai's registry.go,
// which fronts an in-process map with an optional go-redis backend for
// cross-process sharing; the AST cache follows the same per-language
// sitter.Parser wrapper shape used elsewhere in this module, narrowed
// to parsing and caching trees rather than running full dataflow
// analysis.
package analysiscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"revcore/internal/logging"
)

// ResponseCache memoizes LM responses keyed by a hash of the request
// payload, so an identical prompt issued twice (e.g. a resumed
// checkpoint replaying the in-flight task) doesn't re-spend a call.
// Backed by an in-process map; if a redis.Client is supplied, reads
// miss locally fall through to Redis, and writes populate both so a
// second process (or a restarted one) still benefits.
type ResponseCache struct {
	mu    sync.RWMutex
	local map[string]string
	redis *redis.Client
}

// NewResponseCache constructs a cache. client may be nil, in which
// case the cache is purely in-process.
func NewResponseCache(client *redis.Client) *ResponseCache {
	return &ResponseCache{local: make(map[string]string), redis: client}
}

// HashKey derives a stable cache key from a request payload.
func HashKey(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached response for key, checking the local map
// first and falling through to Redis (if configured) on a local miss.
func (c *ResponseCache) Get(ctx context.Context, key string) (string, bool) {
	c.mu.RLock()
	v, ok := c.local[key]
	c.mu.RUnlock()
	if ok {
		return v, true
	}
	if c.redis == nil {
		return "", false
	}
	v, err := c.redis.Get(ctx, "revcore:response:"+key).Result()
	if err != nil {
		return "", false
	}
	c.mu.Lock()
	c.local[key] = v
	c.mu.Unlock()
	return v, true
}

// Put stores a response under key in the local map and, when
// configured, in Redis with a one-hour expiry.
func (c *ResponseCache) Put(ctx context.Context, key, value string) {
	c.mu.Lock()
	c.local[key] = value
	c.mu.Unlock()
	if c.redis != nil {
		_ = c.redis.Set(ctx, "revcore:response:"+key, value, time.Hour).Err()
	}
}

// Clear empties the local map. Idempotent: clearing an already-empty
// cache is a no-op, not an error.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	c.local = make(map[string]string)
	c.mu.Unlock()
}

// ASTEntry is a parsed tree plus the source hash it was parsed from,
// so a cache hit can be validated against the current file content
// without re-parsing.
type ASTEntry struct {
	SourceHash string
	Tree       *sitter.Tree
}

// ASTCache parses and caches Go source trees keyed by file path. Only
// Go is wired by default (repocontext's symbol extraction parses only
// Go); adding a per-language parser set (python/rust/js/ts) would follow
// the same shape without changing this cache's contract.
type ASTCache struct {
	mu      sync.Mutex
	parser  *sitter.Parser
	entries map[string]ASTEntry
}

// NewASTCache constructs a tree-sitter-backed AST cache for Go source.
func NewASTCache() *ASTCache {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &ASTCache{parser: p, entries: make(map[string]ASTEntry)}
}

// Parse returns the cached tree for path if source is unchanged since
// the last parse (by content hash), parsing and caching otherwise.
func (c *ASTCache) Parse(ctx context.Context, path string, source []byte) (*sitter.Tree, error) {
	sum := sha256.Sum256(source)
	hash := hex.EncodeToString(sum[:])

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[path]; ok && entry.SourceHash == hash {
		return entry.Tree, nil
	}

	tree, err := c.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, err
	}
	if old, ok := c.entries[path]; ok && old.Tree != nil {
		old.Tree.Close()
	}
	c.entries[path] = ASTEntry{SourceHash: hash, Tree: tree}
	return tree, nil
}

// Clear releases every cached tree and empties the cache.
func (c *ASTCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.Tree != nil {
			e.Tree.Close()
		}
	}
	c.entries = make(map[string]ASTEntry)
}

// Close releases the underlying parser.
func (c *ASTCache) Close() {
	c.Clear()
	c.parser.Close()
}

// DependencyGraphCache caches a package's import-dependency edges,
// keyed by package path, so the Verifier's import-validity subcheck
// and the Planner's reuse-first scan don't recompute the graph for
// every task in a plan touching the same package.
type DependencyGraphCache struct {
	mu    sync.RWMutex
	edges map[string][]string
}

// NewDependencyGraphCache constructs an empty cache.
func NewDependencyGraphCache() *DependencyGraphCache {
	return &DependencyGraphCache{edges: make(map[string][]string)}
}

// Get returns the cached import edges for pkg, if present.
func (c *DependencyGraphCache) Get(pkg string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	edges, ok := c.edges[pkg]
	return edges, ok
}

// Put stores the import edges for pkg.
func (c *DependencyGraphCache) Put(pkg string, edges []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edges[pkg] = edges
}

// Clear empties the cache.
func (c *DependencyGraphCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edges = make(map[string][]string)
}

// Caches bundles the three Analysis Caches so the orchestrator can
// clear all of them in one call at the natural invalidation boundary:
// after a destructive task completes and a replan is triggered.
type Caches struct {
	Response *ResponseCache
	AST      *ASTCache
	DepGraph *DependencyGraphCache
}

// New constructs the full set of Analysis Caches. client may be nil to
// run the response cache purely in-process.
func New(client *redis.Client) *Caches {
	return &Caches{
		Response: NewResponseCache(client),
		AST:      NewASTCache(),
		DepGraph: NewDependencyGraphCache(),
	}
}

// ClearAll flushes every Analysis Cache. Idempotent: calling it twice
// in a row, or on a cache that was never populated, does nothing harmful.
func (c *Caches) ClearAll() {
	c.Response.Clear()
	c.AST.Clear()
	c.DepGraph.Clear()
	logging.For(logging.CategoryAnalysisCache).Debug("analysis caches cleared")
}
