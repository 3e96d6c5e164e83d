package vecrag

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type openAIConfig struct {
	apiKey         string
	baseURL        string
	embeddingModel string
	chatModel      string
}

type clientConfig struct {
	dimension  int
	indexDir   string
	sqlitePath string

	embedder  Embedder
	generator Generator
	openai    *openAIConfig

	chunkSize    int
	chunkOverlap int
	tokenizer    string
	workers      int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithDimension sets the vector dimension of the index. Required.
func WithDimension(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimension = dim
	})
}

// WithFileIndex persists the index as snapshot files under dir.
// Without a file or SQLite index the client keeps vectors in memory only.
func WithFileIndex(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexDir = dir
		c.sqlitePath = ""
	})
}

// WithSQLiteIndex persists the index in the SQLite database at path.
func WithSQLiteIndex(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.sqlitePath = path
		c.indexDir = ""
	})
}

// WithEmbedder sets the text embedding provider.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithGenerator sets the answer generator.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithOpenAI uses an OpenAI-compatible API for embeddings and answers.
// An empty baseURL means api.openai.com. Explicit WithEmbedder and
// WithGenerator options take precedence.
func WithOpenAI(apiKey, baseURL, embeddingModel, chatModel string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openai = &openAIConfig{
			apiKey:         apiKey,
			baseURL:        baseURL,
			embeddingModel: embeddingModel,
			chatModel:      chatModel,
		}
	})
}

// WithChunking sets the chunk window size and overlap in tokens.
// Defaults: 500 and 50.
func WithChunking(size, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkSize = size
		c.chunkOverlap = overlap
	})
}

// WithTokenizer selects "tiktoken" (cl100k_base, default) or "runes".
func WithTokenizer(kind string) Option {
	return optionFunc(func(c *clientConfig) {
		c.tokenizer = kind
	})
}

// WithWorkers bounds concurrent embedding calls during ingestion. Default: 4.
func WithWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
