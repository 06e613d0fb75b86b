package config

import (
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/docqa/internal/chunker"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "k")
	cfg := Load()

	if cfg.ChunkWindowWords != 1000 || cfg.ChunkOverlapWords != 50 {
		t.Errorf("unexpected chunk defaults %d/%d", cfg.ChunkWindowWords, cfg.ChunkOverlapWords)
	}
	if cfg.TopK != 1 || cfg.MaxNewTokens != 200 || cfg.Sample {
		t.Errorf("unexpected generation defaults %+v", cfg)
	}
	if cfg.Retriever != "bm25" || cfg.LedgerBackend != "json" {
		t.Errorf("unexpected backend defaults %q %q", cfg.Retriever, cfg.LedgerBackend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults with a key should validate: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("CHUNK_WINDOW_WORDS", "300")
	t.Setenv("CHUNK_OVERLAP_WORDS", "30")
	t.Setenv("GENERATE_TIMEOUT", "5s")
	t.Setenv("DO_SAMPLE", "true")
	t.Setenv("TOP_K", "not-a-number")

	cfg := Load()
	if cfg.ChunkConfig() != (chunker.Config{WindowWords: 300, OverlapWords: 30}) {
		t.Errorf("unexpected chunk config %+v", cfg.ChunkConfig())
	}
	if cfg.GenerateTimeout != 5*time.Second || !cfg.GenerateConfig().Sample {
		t.Errorf("unexpected generation settings %+v", cfg.GenerateConfig())
	}
	if cfg.TopK != 1 {
		t.Errorf("unparseable TOP_K should fall back to default, got %d", cfg.TopK)
	}
	if p := cfg.ProviderConfig(); p.Provider != "ollama" || p.BaseURL != "http://localhost:11434" {
		t.Errorf("unexpected provider config %+v", p)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("ollama needs no key: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	base := func() Config {
		t.Setenv("ANTHROPIC_API_KEY", "k")
		return Load()
	}
	cases := map[string]func(*Config){
		"missing key":       func(c *Config) { c.AnthropicAPIKey = "" },
		"unknown provider":  func(c *Config) { c.LLMProvider = "gpt" },
		"hf without token":  func(c *Config) { c.LLMProvider = "huggingface" },
		"overlap >= window": func(c *Config) { c.ChunkOverlapWords = c.ChunkWindowWords },
		"zero top k":        func(c *Config) { c.TopK = 0 },
		"unknown retriever": func(c *Config) { c.Retriever = "dense" },
		"unknown tokenizer": func(c *Config) { c.Tokenizer = "bpe" },
		"same json paths":   func(c *Config) { c.QALogPath = c.StatsPath },
		"unknown ledger":    func(c *Config) { c.LedgerBackend = "redis" },
	}
	for name, mutate := range cases {
		cfg := base()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	cfg := base()
	cfg.ChunkWindowWords = 0
	var ce *chunker.ConfigError
	if err := cfg.Validate(); !errors.As(err, &ce) {
		t.Errorf("expected chunker.ConfigError, got %v", err)
	}
}
