// Package config loads the environment knobs the orchestration core
// recognizes (provider selection, timeouts, retries, budgets,
// checkpoint directory). It is deliberately thin: wiring concrete
// clients/caches/tools from it is an external collaborator's job —
// this package only turns a YAML file plus environment variables into
// the typed struct every other component reads from, layering env
// overrides on top of a YAML-decoded default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider identifies a language-model vendor.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderMock      Provider = "mock"
)

// LLMConfig configures the default provider and per-phase overrides.
type LLMConfig struct {
	Provider        Provider            `yaml:"provider"`
	Model           string              `yaml:"model"`
	Timeout         time.Duration       `yaml:"timeout"`
	PhaseOverrides  map[string]Provider `yaml:"phase_overrides,omitempty"`
	MaxRetries      int                 `yaml:"max_retries"`
	InitialTimeout  time.Duration       `yaml:"initial_timeout"`
	OpenAIAPIKey    string              `yaml:"-"`
	AnthropicAPIKey string              `yaml:"-"`
	GeminiAPIKey    string              `yaml:"-"`
}

// BudgetConfig bounds a single run's resource consumption (§3 "budgets").
type BudgetConfig struct {
	MaxSteps            int           `yaml:"max_steps"`
	MaxTokens           int           `yaml:"max_tokens"`
	MaxWallclockSeconds int           `yaml:"max_wallclock_seconds"`
	RetryBackoffBase    time.Duration `yaml:"retry_backoff_base"`
	RetryBackoffMax     time.Duration `yaml:"retry_backoff_max"`
}

// ExecutionConfig configures dispatch.
type ExecutionConfig struct {
	Mode             string `yaml:"mode"` // "single-agent" or "sub-agent"
	MaxParallelTasks int    `yaml:"max_parallel_tasks"`
}

// CheckpointConfig configures where/how checkpoints are retained.
type CheckpointConfig struct {
	Dir          string `yaml:"dir"`
	RetainLast   int    `yaml:"retain_last"`
}

// VerificationConfig configures the Verifier's tunables.
type VerificationConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// AnalysisCacheConfig configures the response-cache backend.
type AnalysisCacheConfig struct {
	RedisURL string `yaml:"redis_url,omitempty"`
}

// Config is the complete set of environment knobs the core recognizes.
type Config struct {
	Workspace    string              `yaml:"workspace"`
	LLM          LLMConfig           `yaml:"llm"`
	Budget       BudgetConfig        `yaml:"budget"`
	Execution    ExecutionConfig     `yaml:"execution"`
	Checkpoint   CheckpointConfig    `yaml:"checkpoint"`
	Verification VerificationConfig  `yaml:"verification"`
	AnalysisCache AnalysisCacheConfig `yaml:"analysis_cache"`
	Debug        bool                `yaml:"debug"`
}

// Default returns the baseline configuration used when no file is present.
func Default() *Config {
	return &Config{
		Workspace: ".",
		LLM: LLMConfig{
			Provider:       ProviderAnthropic,
			Model:          "claude-sonnet",
			Timeout:        120 * time.Second,
			InitialTimeout: 30 * time.Second,
			MaxRetries:     3,
		},
		Budget: BudgetConfig{
			MaxSteps:            500,
			MaxTokens:           2_000_000,
			MaxWallclockSeconds: 4 * 60 * 60,
			RetryBackoffBase:    5 * time.Second,
			RetryBackoffMax:     5 * time.Minute,
		},
		Execution: ExecutionConfig{
			Mode:             "sub-agent",
			MaxParallelTasks: 3,
		},
		Checkpoint: CheckpointConfig{
			Dir:        ".rev_checkpoints",
			RetainLast: 10,
		},
		Verification: VerificationConfig{
			SimilarityThreshold: 0.75,
		},
	}
}

// Load reads an optional .env file (credentials) and an optional YAML
// file (everything else) and layers environment variables on top.
// A missing YAML file is not an error — Default() is used instead.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.OpenAIAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.LLM.AnthropicAPIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.GeminiAPIKey = v
	}
	if v := os.Getenv("REVCORE_PROVIDER"); v != "" {
		c.LLM.Provider = Provider(v)
	}
	if v := os.Getenv("REVCORE_CHECKPOINT_DIR"); v != "" {
		c.Checkpoint.Dir = v
	}
	if v := os.Getenv("REVCORE_DEBUG"); v == "1" || v == "true" {
		c.Debug = true
	}
	if v := os.Getenv("REVCORE_WORKSPACE"); v != "" {
		c.Workspace = v
	}
}

// SelectProvider implements the selection-priority contract of §4.5:
// explicit override, then the per-phase override for phase, then the
// configured llm.provider (Default sets it to anthropic), and only when
// that is empty the first credential-bearing cloud provider in a fixed
// precedence (Anthropic, OpenAI, Gemini), then mock as the local
// default used by tests and offline runs.
func (c *Config) SelectProvider(phase string, override Provider) Provider {
	if override != "" {
		return override
	}
	if p, ok := c.LLM.PhaseOverrides[phase]; ok {
		return p
	}
	if c.LLM.Provider != "" {
		return c.LLM.Provider
	}
	switch {
	case c.LLM.AnthropicAPIKey != "":
		return ProviderAnthropic
	case c.LLM.OpenAIAPIKey != "":
		return ProviderOpenAI
	case c.LLM.GeminiAPIKey != "":
		return ProviderGemini
	default:
		return ProviderMock
	}
}
