package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

func validConfig() Config {
	cfg := Config{
		HTTP:       HTTPConfig{Port: 8080},
		Index:      IndexConfig{Dimension: 1536},
		Embedding:  EmbeddingConfig{Model: "text-embedding-3-small"},
		Generation: GenerationConfig{Model: "gpt-4o-mini"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func intPtr(v int) *int { return &v }

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_OverlapNotBelowSize(t *testing.T) {
	for _, overlap := range []int{100, 150} {
		cfg := validConfig()
		cfg.Chunking.Size = 100
		cfg.Chunking.Overlap = intPtr(overlap)

		err := cfg.Validate()
		if !errors.Is(err, domain.ErrConfiguration) {
			t.Errorf("overlap %d: expected ErrConfiguration, got %v", overlap, err)
		}
	}
}

func TestValidate_ZeroOverlapAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.Chunking.Overlap = intPtr(0)

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Chunking.OverlapOrDefault() != 0 {
		t.Errorf("expected explicit zero overlap, got %d", cfg.Chunking.OverlapOrDefault())
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing dimension", func(c *Config) { c.Index.Dimension = 0 }, "index.dimension"},
		{"unknown backend", func(c *Config) { c.Index.Backend = "faiss" }, "index.backend"},
		{"unknown tokenizer", func(c *Config) { c.Chunking.Tokenizer = "words" }, "chunking.tokenizer"},
		{"top_k bounds", func(c *Config) { c.Index.DefaultTopK = 60 }, "default_top_k"},
		{"missing embedding model", func(c *Config) { c.Embedding.Model = "" }, "embedding.model"},
		{"dimension conflict", func(c *Config) { c.Embedding.Dimensions = 768 }, "embedding.dimensions"},
		{"missing generation model", func(c *Config) { c.Generation.Model = "" }, "generation.model"},
		{"cache without addrs", func(c *Config) { c.Cache.Enabled = true }, "cache.addrs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{Embedding: EmbeddingConfig{APIKey: "emb-key", BaseURL: "https://emb.example/v1"}}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 120 {
		t.Errorf("expected WriteTimeoutSec=120, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Chunking.Size != 500 {
		t.Errorf("expected chunk size 500, got %d", cfg.Chunking.Size)
	}
	if cfg.Chunking.OverlapOrDefault() != 50 {
		t.Errorf("expected overlap 50, got %d", cfg.Chunking.OverlapOrDefault())
	}
	if cfg.Index.Backend != BackendFile || cfg.Index.Path != "data/index" {
		t.Errorf("unexpected index defaults: %+v", cfg.Index)
	}
	if cfg.Index.DefaultTopK != 5 || cfg.Index.MaxTopK != 50 {
		t.Errorf("unexpected top_k defaults: %+v", cfg.Index)
	}
	if cfg.Embedding.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Embedding.Workers)
	}
	if cfg.Generation.APIKey != "emb-key" || cfg.Generation.BaseURL != "https://emb.example/v1" {
		t.Errorf("expected generation to inherit embedding credentials, got %+v", cfg.Generation)
	}
	if cfg.Generation.Provider != "openai" {
		t.Errorf("expected generation provider to inherit %q, got %q", "openai", cfg.Generation.Provider)
	}
	if len(cfg.HTTP.CORSOrigins) != 1 || cfg.HTTP.CORSOrigins[0] != "*" {
		t.Errorf("expected CORS origins [*], got %v", cfg.HTTP.CORSOrigins)
	}
}

func TestApplyDefaults_SeparateGenerationProvider(t *testing.T) {
	cfg := Config{
		Embedding:  EmbeddingConfig{Provider: "nebius"},
		Generation: GenerationConfig{Provider: "openai"},
	}
	cfg.ApplyDefaults()

	if cfg.Embedding.Provider != "nebius" || cfg.Generation.Provider != "openai" {
		t.Errorf("providers overridden: embedding=%q generation=%q",
			cfg.Embedding.Provider, cfg.Generation.Provider)
	}
}

func TestApplyDefaults_CORSDisabled(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{CORSOrigins: []string{}}}
	cfg.ApplyDefaults()

	if len(cfg.HTTP.CORSOrigins) != 0 {
		t.Errorf("explicit empty CORS list replaced with %v", cfg.HTTP.CORSOrigins)
	}
}

func TestApplyDefaults_SQLitePath(t *testing.T) {
	cfg := Config{Index: IndexConfig{Backend: BackendSQLite}}
	cfg.ApplyDefaults()

	if cfg.Index.Path != "data/index.db" {
		t.Errorf("expected sqlite default path, got %q", cfg.Index.Path)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 5, WriteTimeoutSec: 60, ShutdownSec: 5},
		Chunking: ChunkingConfig{Size: 256, Overlap: intPtr(32), Tokenizer: "runes"},
		Index:    IndexConfig{Backend: BackendMemory, Path: "/tmp/x", DefaultTopK: 3, MaxTopK: 10},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 5 {
		t.Errorf("expected ReadTimeoutSec=5, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Chunking.Size != 256 || cfg.Chunking.OverlapOrDefault() != 32 {
		t.Errorf("chunking overridden: %+v", cfg.Chunking)
	}
	if cfg.Index.Path != "/tmp/x" || cfg.Index.DefaultTopK != 3 {
		t.Errorf("index overridden: %+v", cfg.Index)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("VECRAG_TEST_KEY", "sk-123")

	got := string(expandEnvVars([]byte("a: ${VECRAG_TEST_KEY}\nb: ${VECRAG_TEST_MISSING:-fallback}\nc: ${VECRAG_TEST_MISSING}")))
	want := "a: sk-123\nb: fallback\nc: "
	if got != want {
		t.Errorf("unexpected expansion:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("VECRAG_TEST_DIM", "4")

	path := filepath.Join(t.TempDir(), "test.yaml")
	yaml := `
http:
  port: 9000
chunking:
  size: 100
  overlap: 10
  tokenizer: runes
index:
  dimension: ${VECRAG_TEST_DIM}
  backend: memory
embedding:
  model: test-embed
generation:
  model: test-chat
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9000 || cfg.Index.Dimension != 4 || cfg.Index.Backend != BackendMemory {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Chunking.OverlapOrDefault() != 10 {
		t.Errorf("expected overlap 10, got %d", cfg.Chunking.OverlapOrDefault())
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("http:\n  port: 8080\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}
