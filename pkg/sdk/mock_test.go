package vecrag

import (
	"context"
	"strings"

	"github.com/kailas-cloud/vecrag/internal/domain"
	documentuc "github.com/kailas-cloud/vecrag/internal/usecase/document"
	healthuc "github.com/kailas-cloud/vecrag/internal/usecase/health"
	searchuc "github.com/kailas-cloud/vecrag/internal/usecase/search"
)

// --- documentUseCase mock ---

type mockDocumentUC struct {
	ingestFn func(ctx context.Context, rawText, docID, filename string) (documentuc.Stats, error)
	deleteFn func(ctx context.Context, docID string) (int, error)
	docs     []domain.DocumentInfo
	total    int
}

func (m *mockDocumentUC) ProcessAndIndex(
	ctx context.Context, rawText, docID, filename string,
) (documentuc.Stats, error) {
	return m.ingestFn(ctx, rawText, docID, filename)
}

func (m *mockDocumentUC) DeleteDocument(ctx context.Context, docID string) (int, error) {
	return m.deleteFn(ctx, docID)
}

func (m *mockDocumentUC) ListDocuments() []domain.DocumentInfo { return m.docs }

func (m *mockDocumentUC) TotalVectors() int { return m.total }

// --- searchUseCase mock ---

type mockSearchUC struct {
	answerFn func(ctx context.Context, question string, topK int) searchuc.Result
}

func (m *mockSearchUC) AnswerQuery(ctx context.Context, question string, topK int) searchuc.Result {
	return m.answerFn(ctx, question, topK)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report { return m.report }

// --- capability mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

// letterEmbedder maps text to (count of 'a', count of 'b').
func letterEmbedder() *mockEmbedder {
	return &mockEmbedder{fn: func(_ context.Context, text string) (EmbeddingResult, error) {
		return EmbeddingResult{
			Embedding:   []float32{float32(strings.Count(text, "a")), float32(strings.Count(text, "b"))},
			TotalTokens: len(text),
		}, nil
	}}
}

type mockGenerator struct {
	calls int
}

func (m *mockGenerator) Generate(_ context.Context, question, passages string) (string, error) {
	m.calls++
	return question + " <- " + passages, nil
}

// --- helpers ---

func testClient(docSvc documentUseCase, searchSvc searchUseCase, healthSvc healthUseCase) *Client {
	return &Client{
		docSvc:    docSvc,
		searchSvc: searchSvc,
		healthSvc: healthSvc,
		dimension: 2,
	}
}
