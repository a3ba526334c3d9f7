package llm

import (
	"context"
	"encoding/json"

	"revcore/internal/analysiscache"
)

// CachingClient memoizes non-tool-calling Chat replies through a
// analysiscache.ResponseCache, so resuming a checkpoint and replaying
// an already-answered turn (the scenario analysiscache's doc comment
// names) doesn't re-spend a call against the underlying provider.
// Tool-calling requests are never cached: a cached ToolCall response
// replayed against a now-stale workspace (files the first attempt
// already wrote) is exactly the kind of silently-stale result
// analysiscache's package doc warns a destructive-task boundary must
// flush, so the safer default is to only cache the deterministic,
// side-effect-free, text-only turns tool-choice "none" produces.
type CachingClient struct {
	Client
	cache *analysiscache.ResponseCache
}

// NewCachingClient wraps client with a response cache. cache must be
// non-nil.
func NewCachingClient(client Client, cache *analysiscache.ResponseCache) *CachingClient {
	return &CachingClient{Client: client, cache: cache}
}

// Chat serves a cached reply for ToolChoiceNone requests when the
// exact request payload was seen before, otherwise delegates and
// caches the result.
func (c *CachingClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.ToolChoice != ToolChoiceNone {
		return c.Client.Chat(ctx, req)
	}

	key, err := cacheKey(c.Client.Model(), req)
	if err != nil {
		return c.Client.Chat(ctx, req)
	}

	if cached, ok := c.cache.Get(ctx, key); ok {
		var resp ChatResponse
		if err := json.Unmarshal([]byte(cached), &resp); err == nil {
			return &resp, nil
		}
	}

	resp, err := c.Client.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(resp); err == nil {
		c.cache.Put(ctx, key, string(data))
	}
	return resp, nil
}

func cacheKey(model string, req ChatRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	return analysiscache.HashKey(model + ":" + string(payload)), nil
}
