package llm

import "sort"

// pendingCall accumulates argument fragments for one tool call under
// construction during a stream.
type pendingCall struct {
	id   string
	name string
	args []byte
}

// ToolCallAssembler reassembles streamed tool-call fragments into
// complete ToolCall values, indexed by position rather than appended
// to a list: providers split one call's arguments across many deltas,
// all sharing the same index, and assembling by append-to-list would
// fabricate extra calls out of what is really one call's fragments.
type ToolCallAssembler struct {
	byIndex map[int]*pendingCall
	order   []int
}

// NewToolCallAssembler returns an empty assembler.
func NewToolCallAssembler() *ToolCallAssembler {
	return &ToolCallAssembler{byIndex: make(map[int]*pendingCall)}
}

// Add folds one delta fragment into the call at its index, creating a
// new pending call the first time an index is seen.
func (a *ToolCallAssembler) Add(delta ToolCallDelta) {
	call, ok := a.byIndex[delta.Index]
	if !ok {
		call = &pendingCall{}
		a.byIndex[delta.Index] = call
		a.order = append(a.order, delta.Index)
	}
	if delta.ID != "" {
		call.id = delta.ID
	}
	if delta.Name != "" {
		call.name = delta.Name
	}
	call.args = append(call.args, []byte(delta.ArgumentsFrag)...)
}

// Finish returns every assembled call, in index order. Call this only
// once the stream signals end-of-call for tool calls; dispatching
// before then risks truncated argument JSON.
func (a *ToolCallAssembler) Finish() []ToolCall {
	indexes := append([]int(nil), a.order...)
	sort.Ints(indexes)

	calls := make([]ToolCall, 0, len(indexes))
	for _, idx := range indexes {
		call := a.byIndex[idx]
		calls = append(calls, ToolCall{ID: call.id, Name: call.name, Arguments: string(call.args)})
	}
	return calls
}
