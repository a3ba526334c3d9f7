package analysiscache

import (
	"context"
	"testing"
)

func TestResponseCacheGetPutRoundtrip(t *testing.T) {
	c := NewResponseCache(nil)
	ctx := context.Background()
	key := HashKey("prompt: list files")

	if _, ok := c.Get(ctx, key); ok {
		t.Fatal("expected miss before Put")
	}
	c.Put(ctx, key, "response body")
	v, ok := c.Get(ctx, key)
	if !ok || v != "response body" {
		t.Fatalf("expected cached response body, got %q ok=%v", v, ok)
	}
}

func TestResponseCacheClearIsIdempotent(t *testing.T) {
	c := NewResponseCache(nil)
	ctx := context.Background()
	c.Put(ctx, "k", "v")

	c.Clear()
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expected entry gone after Clear")
	}
	c.Clear() // must not panic or error on an already-empty cache
}

func TestHashKeyIsStableAndDistinguishesPayloads(t *testing.T) {
	a := HashKey("payload-a")
	b := HashKey("payload-a")
	c := HashKey("payload-b")
	if a != b {
		t.Fatal("expected identical payloads to hash identically")
	}
	if a == c {
		t.Fatal("expected distinct payloads to hash differently")
	}
}

func TestASTCacheParsesAndReusesUnchangedSource(t *testing.T) {
	cache := NewASTCache()
	defer cache.Close()

	src := []byte("package main\n\nfunc main() {}\n")
	tree1, err := cache.Parse(context.Background(), "main.go", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tree2, err := cache.Parse(context.Background(), "main.go", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tree1 != tree2 {
		t.Fatal("expected unchanged source to reuse the cached tree")
	}

	changed := []byte("package main\n\nfunc main() { println(1) }\n")
	tree3, err := cache.Parse(context.Background(), "main.go", changed)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tree3 == tree1 {
		t.Fatal("expected changed source to produce a new tree")
	}
}

func TestDependencyGraphCacheGetPutClear(t *testing.T) {
	c := NewDependencyGraphCache()
	if _, ok := c.Get("pkg/a"); ok {
		t.Fatal("expected miss before Put")
	}
	c.Put("pkg/a", []string{"pkg/b", "pkg/c"})
	edges, ok := c.Get("pkg/a")
	if !ok || len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %v ok=%v", edges, ok)
	}
	c.Clear()
	if _, ok := c.Get("pkg/a"); ok {
		t.Fatal("expected cache empty after Clear")
	}
}

func TestCachesClearAllIsIdempotent(t *testing.T) {
	caches := New(nil)
	defer caches.AST.Close()

	ctx := context.Background()
	caches.Response.Put(ctx, "k", "v")
	caches.DepGraph.Put("pkg", []string{"dep"})
	if _, err := caches.AST.Parse(ctx, "a.go", []byte("package main\n")); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	caches.ClearAll()
	if _, ok := caches.Response.Get(ctx, "k"); ok {
		t.Fatal("expected response cache cleared")
	}
	if _, ok := caches.DepGraph.Get("pkg"); ok {
		t.Fatal("expected dependency graph cleared")
	}

	caches.ClearAll() // second call must not panic
}
