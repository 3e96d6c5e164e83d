package chi

import (
	"time"

	searchuc "github.com/kailas-cloud/vecrag/internal/usecase/search"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest              ErrorCode = "bad_request"
	CodeValidationFailed        ErrorCode = "validation_failed"
	CodeUnsupportedFileType     ErrorCode = "unsupported_file_type"
	CodeDocumentNotFound        ErrorCode = "document_not_found"
	CodeUnauthorized            ErrorCode = "unauthorized"
	CodeVectorDimMismatch       ErrorCode = "vector_dim_mismatch"
	CodeEmbeddingProviderError  ErrorCode = "embedding_provider_error"
	CodeGenerationProviderError ErrorCode = "generation_provider_error"
	CodeInternalError           ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// CreateDocumentRequest is the body of POST /api/documents.
type CreateDocumentRequest struct {
	DocID    string `json:"doc_id,omitempty"`
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// DocumentResponse describes an ingested document.
type DocumentResponse struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	FileSize    int       `json:"file_size"`
	FileType    string    `json:"file_type"`
	UploadDate  time.Time `json:"upload_date"`
	Status      string    `json:"status"`
	ChunkCount  int       `json:"chunk_count"`
	TotalTokens int       `json:"total_tokens"`
}

// QueryRequest is the body of POST /api/query. TopK defaults to the server default.
type QueryRequest struct {
	Question string `json:"question"`
	TopK     *int   `json:"top_k,omitempty"`
}

// QueryResponse is the answer to a question.
type QueryResponse struct {
	QueryID   string            `json:"query_id"`
	Question  string            `json:"question"`
	Answer    string            `json:"answer"`
	Sources   []searchuc.Source `json:"sources"`
	Timestamp time.Time         `json:"timestamp"`
}

// DocumentSummary is one entry of GET /api/documents.
type DocumentSummary struct {
	ID            string `json:"id"`
	Filename      string `json:"filename"`
	Status        string `json:"status"`
	ChunkCount    int    `json:"chunk_count"`
	IndexedTokens int    `json:"indexed_tokens"`
}

// DocumentListResponse lists indexed documents in upload order.
type DocumentListResponse struct {
	Documents []DocumentSummary `json:"documents"`
	Total     int               `json:"total"`
}

// StatsResponse describes the index.
type StatsResponse struct {
	TotalDocuments int `json:"total_documents"`
	TotalVectors   int `json:"total_vectors"`
	Dimension      int `json:"dimension"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// RootResponse is the API banner.
type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}
