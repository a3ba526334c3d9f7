package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"

	"revcore/internal/plan"
)

// repeatThreshold is how many times the exact same tool-call arg tuple
// must recur before the loop-guard trips, independently detecting
// repeated reads of the same path or repeated identical tool-call arg
// tuples.
const repeatThreshold = 3

// loopGuard tracks how often each (tool_name, args) pair has been seen
// across the whole session, independent of which task produced it —
// the pathological case this guards against (re-reading the same file
// over and over because the model forgot it already has the content)
// can span task boundaries once a task gets split into retries. Tasks
// in the same dependency-free batch run their sub-agent loops
// concurrently, so observe is called from multiple goroutines at once;
// mu guards seen against concurrent map writes.
type loopGuard struct {
	mu   sync.Mutex
	seen map[string]int
}

func newLoopGuard() *loopGuard {
	return &loopGuard{seen: make(map[string]int)}
}

// observe records one tool event and reports whether its (tool, args)
// pair has now recurred often enough to force a replan.
func (g *loopGuard) observe(event plan.ToolEvent) bool {
	key := fingerprint(event.ToolName, event.Args)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen[key]++
	return g.seen[key] >= repeatThreshold
}

// fingerprint canonicalizes a tool call's arguments (sorted keys via
// json.Marshal of a map, which Go already emits in key order) into a
// stable hash so two logically identical calls always collide.
func fingerprint(toolName string, args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make(map[string]any, len(args))
	for _, k := range keys {
		ordered[k] = args[k]
	}
	encoded, _ := json.Marshal(ordered)

	sum := sha256.Sum256(append([]byte(toolName+":"), encoded...))
	return hex.EncodeToString(sum[:])
}
