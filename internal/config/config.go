package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgallion1/docqa/internal/chunker"
	"github.com/dgallion1/docqa/internal/index"
	"github.com/dgallion1/docqa/internal/llm"
)

type Config struct {
	Port string

	// Generation
	LLMProvider         string
	AnthropicAPIKey     string
	AnthropicModel      string
	OllamaURL           string
	OllamaModel         string
	HuggingFaceToken    string
	HuggingFaceModel    string
	HuggingFaceURL      string
	MaxNewTokens        int
	Sample              bool
	GenerateTimeout     time.Duration
	GenerateMaxAttempts int
	LLMStatsWindow      time.Duration

	// Chunking and retrieval
	ChunkWindowWords  int
	ChunkOverlapWords int
	Retriever         string
	Tokenizer         string
	TopK              int

	// Feedback ledger
	LedgerBackend     string
	StatsPath         string
	QALogPath         string
	SQLitePath        string
	LoadLedgerOnStart bool

	// Ingestion
	DocumentPath         string
	MaxQueueSize         int
	MaxUploadBytes       int64
	JobTTL               time.Duration
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		LLMProvider:         envOr("LLM_PROVIDER", "claude"),
		AnthropicAPIKey:     os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:      envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		OllamaURL:           envOr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:         envOr("OLLAMA_MODEL", "llama3.1:8b"),
		HuggingFaceToken:    os.Getenv("HF_API_TOKEN"),
		HuggingFaceModel:    envOr("HF_MODEL", "google/flan-t5-base"),
		HuggingFaceURL:      os.Getenv("HF_API_URL"),
		MaxNewTokens:        envInt("MAX_NEW_TOKENS", 200),
		Sample:              envBool("DO_SAMPLE", false),
		GenerateTimeout:     envDuration("GENERATE_TIMEOUT", 60*time.Second),
		GenerateMaxAttempts: envInt("GENERATE_MAX_ATTEMPTS", 3),
		LLMStatsWindow:      envDuration("LLM_STATS_WINDOW", time.Hour),

		ChunkWindowWords:  envInt("CHUNK_WINDOW_WORDS", 1000),
		ChunkOverlapWords: envInt("CHUNK_OVERLAP_WORDS", 50),
		Retriever:         envOr("RETRIEVER", "bm25"),
		Tokenizer:         envOr("TOKENIZER", "whitespace"),
		TopK:              envInt("TOP_K", 1),

		LedgerBackend:     envOr("LEDGER_BACKEND", "json"),
		StatsPath:         envOr("STATS_PATH", "stats.json"),
		QALogPath:         envOr("QA_LOG_PATH", "qa_log.json"),
		SQLitePath:        envOr("LEDGER_SQLITE_PATH", "ledger.db"),
		LoadLedgerOnStart: envBool("LEDGER_LOAD_ON_START", true),

		DocumentPath:         os.Getenv("DOCUMENT_PATH"),
		MaxQueueSize:         envInt("MAX_QUEUE_SIZE", 16),
		MaxUploadBytes:       envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		JobTTL:               envDuration("JOB_TTL", 1*time.Hour),
		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.MaxNewTokens <= 0 {
		cfg.MaxNewTokens = 200
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 60 * time.Second
	}
	if cfg.GenerateMaxAttempts <= 0 {
		cfg.GenerateMaxAttempts = 3
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 16
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate rejects configurations that cannot start. Chunk window and
// overlap are not clamped: an invalid pair is an error.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case "claude":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for provider claude")
		}
	case "huggingface":
		if c.HuggingFaceToken == "" {
			return fmt.Errorf("HF_API_TOKEN is required for provider huggingface")
		}
	case "ollama":
	default:
		return fmt.Errorf("LLM_PROVIDER must be claude, ollama or huggingface, got %q", c.LLMProvider)
	}
	if err := c.ChunkConfig().Validate(); err != nil {
		return err
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	if c.Retriever != "bm25" && c.Retriever != "tfidf" {
		return fmt.Errorf("RETRIEVER must be bm25 or tfidf, got %q", c.Retriever)
	}
	if _, err := index.TokenizerByName(c.Tokenizer); err != nil {
		return fmt.Errorf("TOKENIZER: %w", err)
	}
	switch c.LedgerBackend {
	case "json":
		if c.StatsPath == "" || c.QALogPath == "" {
			return fmt.Errorf("STATS_PATH and QA_LOG_PATH are required for the json ledger")
		}
		if c.StatsPath == c.QALogPath {
			return fmt.Errorf("STATS_PATH and QA_LOG_PATH must differ")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("LEDGER_SQLITE_PATH is required for the sqlite ledger")
		}
	default:
		return fmt.Errorf("LEDGER_BACKEND must be json or sqlite, got %q", c.LedgerBackend)
	}
	return nil
}

// ChunkConfig returns the configured word window.
func (c Config) ChunkConfig() chunker.Config {
	return chunker.Config{WindowWords: c.ChunkWindowWords, OverlapWords: c.ChunkOverlapWords}
}

// GenerateConfig returns per-call generation settings.
func (c Config) GenerateConfig() llm.GenerateConfig {
	return llm.GenerateConfig{MaxTokens: c.MaxNewTokens, Sample: c.Sample}
}

// ProviderConfig returns the settings of the selected LLM provider.
func (c Config) ProviderConfig() llm.ProviderConfig {
	switch c.LLMProvider {
	case "ollama":
		return llm.ProviderConfig{Provider: "ollama", BaseURL: c.OllamaURL, Model: c.OllamaModel}
	case "huggingface":
		return llm.ProviderConfig{Provider: "huggingface", APIKey: c.HuggingFaceToken, Model: c.HuggingFaceModel, BaseURL: c.HuggingFaceURL}
	default:
		return llm.ProviderConfig{Provider: "claude", APIKey: c.AnthropicAPIKey, Model: c.AnthropicModel}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
