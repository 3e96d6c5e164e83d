// Package chi exposes the ingestion and retrieval use cases over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/logger"
	documentuc "github.com/kailas-cloud/vecrag/internal/usecase/document"
	healthuc "github.com/kailas-cloud/vecrag/internal/usecase/health"
	searchuc "github.com/kailas-cloud/vecrag/internal/usecase/search"
	"github.com/kailas-cloud/vecrag/internal/version"
)

// NoDocumentsAnswer is returned by /api/query while the index is empty.
const NoDocumentsAnswer = "No documents available. Please upload documents first."

const (
	defaultMaxUploadBytes = 10 << 20
	documentStatusReady   = "ready"
	defaultFilename       = "untitled.txt"
)

// allowedExtensions lists the upload types read as plain UTF-8 text.
var allowedExtensions = map[string]struct{}{
	".txt":      {},
	".md":       {},
	".markdown": {},
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Options tunes request limits.
type Options struct {
	Dimension      int
	DefaultTopK    int
	MaxTopK        int
	MaxUploadBytes int64
}

// Server holds the HTTP handlers.
type Server struct {
	documents     *documentuc.Service
	search        *searchuc.Service
	health        *healthuc.Service
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	documents *documentuc.Service,
	search *searchuc.Service,
	health *healthuc.Service,
	opts Options,
	logger *zap.Logger,
) *Server {
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = searchuc.DefaultTopK
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	s := &Server{
		documents: documents,
		search:    search,
		health:    health,
		opts:      opts,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrUnsupportedFileType, http.StatusBadRequest, CodeUnsupportedFileType),
		sentinelHandler(domain.ErrConfiguration, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusBadGateway, CodeVectorDimMismatch),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrGenerationProviderError, http.StatusBadGateway, CodeGenerationProviderError),
	}
	return s
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r chirouter.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api", func(r chirouter.Router) {
		r.Get("/", s.Root)
		r.Get("/documents", s.ListDocuments)
		r.Post("/documents", s.CreateDocument)
		r.Post("/documents/upload", s.UploadDocument)
		r.Delete("/documents/{docID}", s.DeleteDocument)
		r.Post("/query", s.Query)
		r.Get("/stats", s.Stats)
	})
}

// Root handles GET /api/.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{Message: "vecrag API", Version: version.Version})
}

// UploadDocument handles POST /api/documents/upload (multipart field "file").
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeBadRequest,
				"file exceeds "+strconv.FormatInt(s.opts.MaxUploadBytes, 10)+" bytes")
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	ext, err := checkExtension(header.Filename)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "failed to read uploaded file")
		return
	}
	if !utf8.Valid(data) {
		s.handleDomainError(w, r, fmt.Errorf("file is not UTF-8 text: %w", domain.ErrUnsupportedFileType))
		return
	}

	s.ingest(w, r, uuid.NewString(), header.Filename, ext, string(data))
}

// CreateDocument handles POST /api/documents with inline text.
func (s *Server) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.DocID == "" {
		req.DocID = uuid.NewString()
	}
	if req.Filename == "" {
		req.Filename = defaultFilename
	}
	ext, err := checkExtension(req.Filename)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	s.ingest(w, r, req.DocID, req.Filename, ext, req.Text)
}

func (s *Server) ingest(w http.ResponseWriter, r *http.Request, docID, filename, ext, text string) {
	ctx, usage := domain.NewContextWithUsage(r.Context())

	stats, err := s.documents.ProcessAndIndex(ctx, text, docID, filename)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, DocumentResponse{
		ID:          docID,
		Filename:    filename,
		FileSize:    len(text),
		FileType:    ext,
		UploadDate:  time.Now().UTC(),
		Status:      documentStatusReady,
		ChunkCount:  stats.ChunkCount,
		TotalTokens: stats.TotalTokens,
	})
}

// ListDocuments handles GET /api/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, _ *http.Request) {
	docs := s.documents.ListDocuments()
	items := make([]DocumentSummary, len(docs))
	for i, d := range docs {
		items[i] = DocumentSummary{
			ID:            d.DocID,
			Filename:      d.Filename,
			Status:        documentStatusReady,
			ChunkCount:    d.ChunkCount,
			IndexedTokens: d.IndexedTokens,
		}
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: len(items)})
}

// DeleteDocument handles DELETE /api/documents/{docID}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chirouter.URLParam(r, "docID")

	removed, err := s.documents.DeleteDocument(r.Context(), docID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if removed == 0 {
		writeError(w, http.StatusNotFound, CodeDocumentNotFound, "document not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Query handles POST /api/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "question is required")
		return
	}

	topK := s.opts.DefaultTopK
	if req.TopK != nil && *req.TopK > 0 {
		topK = *req.TopK
	}
	if s.opts.MaxTopK > 0 && topK > s.opts.MaxTopK {
		topK = s.opts.MaxTopK
	}

	if s.documents.TotalVectors() == 0 {
		writeJSON(w, http.StatusOK, QueryResponse{
			QueryID:   uuid.NewString(),
			Question:  req.Question,
			Answer:    NoDocumentsAnswer,
			Sources:   []searchuc.Source{},
			Timestamp: time.Now().UTC(),
		})
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res := s.search.AnswerQuery(ctx, req.Question, topK)
	setEmbeddingHeaders(w, usage)

	writeJSON(w, http.StatusOK, QueryResponse{
		QueryID:   res.QueryID,
		Question:  req.Question,
		Answer:    res.Answer,
		Sources:   res.Sources,
		Timestamp: time.Now().UTC(),
	})
}

// Stats handles GET /api/stats.
func (s *Server) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{
		TotalDocuments: len(s.documents.ListDocuments()),
		TotalVectors:   s.documents.TotalVectors(),
		Dimension:      s.opts.Dimension,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func checkExtension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("%q: allowed .txt, .md, .markdown: %w", ext, domain.ErrUnsupportedFileType)
	}
	return ext, nil
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrUnsupportedFileType,
		domain.ErrConfiguration,
		domain.ErrDimensionMismatch,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
