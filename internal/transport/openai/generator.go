package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/metrics"
)

// DefaultSystemPrompt restricts answers to the retrieved passages.
const DefaultSystemPrompt = "You are an AI assistant that answers questions about the uploaded " +
	"documents. Answer questions strictly based on the provided context. " +
	"If the answer is not present, say: 'The document does not contain this information.'"

// DefaultMaxTokens caps the length of a generated answer.
const DefaultMaxTokens = 256

// GeneratorConfig holds chat completion settings.
type GeneratorConfig struct {
	Config
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
}

// Generator synthesizes answers with the chat completions API.
type Generator struct {
	client       *openai.Client
	model        string
	systemPrompt string
	maxTokens    int
	temperature  float32
	logger       *zap.Logger
}

// Compile-time check: Generator implements domain.Generator.
var _ domain.Generator = (*Generator)(nil)

// NewGenerator creates an OpenAI-compatible answer generator.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Generator{
		client:       newClient(&cfg.Config),
		model:        cfg.Model,
		systemPrompt: prompt,
		maxTokens:    maxTokens,
		temperature:  cfg.Temperature,
		logger:       logger,
	}
}

// Generate answers question from passages. The answer is trimmed of surrounding whitespace.
func (g *Generator) Generate(ctx context.Context, question, passages string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(question, passages)},
		},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", parseAPIError("generation", err, domain.ErrGenerationProviderError)
	}
	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrGenerationProviderError)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.model).Observe(duration.Seconds())

	g.logger.Debug("Answer generated",
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildPrompt lays out the retrieved context and the question for the model.
func BuildPrompt(question, passages string) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(passages)
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
