// wire.go turns a loaded internal/config.Config into the constructed
// collaborators internal/orchestrator.Deps needs. Keeping this
// translation in cmd/revd rather than inside internal/config matches
// that package's own doc comment: configuration loading stays thin,
// and wiring concrete clients/caches/tools from it is an external
// collaborator's job.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"revcore/internal/analysiscache"
	"revcore/internal/config"
	"revcore/internal/filecache"
	"revcore/internal/llm"
	"revcore/internal/llm/anthropicclient"
	"revcore/internal/llm/geminiclient"
	"revcore/internal/llm/mockclient"
	"revcore/internal/llm/openaiclient"
	"revcore/internal/orchestrator"
	"revcore/internal/planner"
	"revcore/internal/repocontext"
	"revcore/internal/tools"
	"revcore/internal/transaction"
	"revcore/internal/verify"
)

// loadConfig loads the YAML config at path and pins its Workspace to
// workspace when the caller resolved one explicitly (a --workspace
// flag wins over whatever the file or REVCORE_WORKSPACE set).
func loadConfig(path, workspace string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if workspace != "" {
		cfg.Workspace = workspace
	}
	return cfg, nil
}

// neverRejects is the llm.RejectsToolChoice for providers in
// llm.FamilyStrictRequired and llm.FamilyAutoButMustCall: both enforce
// tool choice server-side, so llm.WithDegradation never has anything
// to degrade from.
func neverRejects(error) bool { return false }

// buildClient selects a provider per cfg.SelectProvider and constructs
// the matching llm.Client plus its RejectsToolChoice classifier.
func buildClient(ctx context.Context, cfg *config.Config, phase string) (llm.Client, llm.RejectsToolChoice, error) {
	switch cfg.SelectProvider(phase, "") {
	case config.ProviderAnthropic:
		c, err := anthropicclient.New(anthropicclient.Config{APIKey: cfg.LLM.AnthropicAPIKey, Model: cfg.LLM.Model})
		return c, neverRejects, err
	case config.ProviderOpenAI:
		c, err := openaiclient.New(openaiclient.Config{APIKey: cfg.LLM.OpenAIAPIKey, Model: cfg.LLM.Model})
		return c, neverRejects, err
	case config.ProviderGemini:
		c, err := geminiclient.New(ctx, geminiclient.Config{APIKey: cfg.LLM.GeminiAPIKey, Model: cfg.LLM.Model})
		return c, geminiclient.RejectsToolChoice, err
	default:
		return mockclient.New(cfg.LLM.Model), mockclient.RejectsToolChoice, nil
	}
}

// toOrchestratorConfig maps the environment knobs config.Config models
// onto orchestrator.Config's run-shape knobs. Fields SPEC_FULL.md names
// that config.Config has no corresponding environment knob for
// (TaskTimeout, the Enable* phase gates, FreezeOnInterrupt) are left at
// orchestrator.DefaultConfig's values; a future config.Config revision
// can add YAML keys for them without this function's shape changing.
func toOrchestratorConfig(cfg *config.Config) orchestrator.Config {
	oc := orchestrator.DefaultConfig(cfg.Workspace)
	oc.MaxParallelTasks = cfg.Execution.MaxParallelTasks
	oc.MaxRetries = cfg.LLM.MaxRetries
	oc.MaxLMCalls = cfg.Budget.MaxSteps
	oc.MaxToolCalls = cfg.Budget.MaxSteps * 4
	oc.CampaignTimeout = time.Duration(cfg.Budget.MaxWallclockSeconds) * time.Second
	oc.CheckpointDir = cfg.Checkpoint.Dir
	oc.CheckpointRetention = cfg.Checkpoint.RetainLast
	return oc
}

// redisClientFor returns a redis.Client for cfg.AnalysisCache.RedisURL,
// or nil when unset — analysiscache.NewResponseCache and
// analysiscache.New both accept a nil client and fall back to a
// purely in-process cache, matching goadesign-goa-ai/registry.go's
// optional-backend shape.
func redisClientFor(cfg *config.Config) (*redis.Client, error) {
	if cfg.AnalysisCache.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.AnalysisCache.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse analysis cache redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// buildDeps constructs every collaborator orchestrator.New needs from
// cfg, rooted at cfg.Workspace. progress is wired straight through as
// the orchestrator's event channel.
func buildDeps(ctx context.Context, cfg *config.Config, progress chan<- orchestrator.Progress) (orchestrator.Deps, error) {
	client, rejects, err := buildClient(ctx, cfg, "")
	if err != nil {
		return orchestrator.Deps{}, fmt.Errorf("construct llm client: %w", err)
	}

	redisClient, err := redisClientFor(cfg)
	if err != nil {
		return orchestrator.Deps{}, err
	}
	caches := analysiscache.New(redisClient)
	client = llm.NewCachingClient(client, caches.Response)

	cache, err := filecache.New()
	if err != nil {
		return orchestrator.Deps{}, fmt.Errorf("construct file cache: %w", err)
	}
	txManager := transaction.NewManager()

	registry := tools.NewRegistry()
	if err := tools.RegisterDefaults(registry, cache, txManager, cfg.Workspace); err != nil {
		return orchestrator.Deps{}, fmt.Errorf("register tools: %w", err)
	}

	snapshot, err := repocontext.Build(ctx, cfg.Workspace, caches.AST)
	if err != nil {
		return orchestrator.Deps{}, fmt.Errorf("build repository context: %w", err)
	}

	verifier := verify.New(cfg.Workspace)
	verifier.SimilarityThreshold = cfg.Verification.SimilarityThreshold

	p := planner.New(client, rejects)

	return orchestrator.Deps{
		Client:    client,
		Rejects:   rejects,
		Registry:  registry,
		TxManager: txManager,
		Snapshot:  snapshot,
		Verifier:  verifier,
		Planner:   p,
		Caches:    caches,
		Progress:  progress,
	}, nil
}
