// Package chunk splits document text into overlapping token windows.
package chunk

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

// Defaults used when the caller does not configure chunking.
const (
	DefaultSize    = 500
	DefaultOverlap = 50
)

// Chunk is one token window of a document.
type Chunk struct {
	text       string
	index      int
	tokenCount int
}

// Reconstruct restores a chunk from trusted values (tests, storage).
func Reconstruct(text string, index, tokenCount int) Chunk {
	return Chunk{text: text, index: index, tokenCount: tokenCount}
}

// Text returns the decoded window text.
func (c Chunk) Text() string { return c.text }

// Index returns the 0-based position of the chunk within its document.
func (c Chunk) Index() int { return c.index }

// TokenCount returns the number of tokens in the window.
func (c Chunk) TokenCount() int { return c.tokenCount }

// Chunker splits text with a fixed window size and overlap.
type Chunker struct {
	tokenizer domain.Tokenizer
	size      int
	overlap   int
}

// New creates a Chunker. Parameters are validated once here so Split cannot fail.
func New(tok domain.Tokenizer, size, overlap int) (*Chunker, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, domain.NewConfigError("tokenizer", "is required")
	}
	return &Chunker{tokenizer: tok, size: size, overlap: overlap}, nil
}

// Size returns the window size in tokens.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of tokens shared by consecutive windows.
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks text with the configured parameters.
func (c *Chunker) Split(text string) []Chunk {
	return split(c.tokenizer, c.tokenizer.Encode(text), c.size, c.overlap)
}

// CountTokens returns the token count of text.
func (c *Chunker) CountTokens(text string) int {
	return len(c.tokenizer.Encode(text))
}

// Split tokenizes text and emits windows of size tokens advancing by size-overlap.
// The last window may be shorter than size. Empty text yields no chunks.
// Chunk text is always valid UTF-8: bytes of a character split across a
// window edge become U+FFFD.
func Split(tok domain.Tokenizer, text string, size, overlap int) ([]Chunk, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}
	return split(tok, tok.Encode(text), size, overlap), nil
}

// Validate rejects parameters that would produce a non-positive step.
func Validate(size, overlap int) error {
	if size <= 0 {
		return domain.NewConfigError("chunk size", "must be positive, got "+strconv.Itoa(size))
	}
	if overlap < 0 {
		return domain.NewConfigError("chunk overlap", "must not be negative, got "+strconv.Itoa(overlap))
	}
	if overlap >= size {
		return domain.NewConfigError("chunk overlap",
			"must be less than size ("+strconv.Itoa(overlap)+" >= "+strconv.Itoa(size)+")")
	}
	return nil
}

func split(tok domain.Tokenizer, tokens []int, size, overlap int) []Chunk {
	if len(tokens) == 0 {
		return nil
	}
	step := size - overlap
	chunks := make([]Chunk, 0, (len(tokens)+step-1)/step)
	for start := 0; start < len(tokens); start += step {
		end := min(start+size, len(tokens))
		window := tokens[start:end]
		// A window edge may cut a multi-byte character in half.
		chunks = append(chunks, Chunk{
			text:       strings.ToValidUTF8(tok.Decode(window), "\uFFFD"),
			index:      len(chunks),
			tokenCount: len(window),
		})
	}
	return chunks
}
