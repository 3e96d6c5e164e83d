// Package tokenizer provides the token codecs used to size chunks.
package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

// DefaultEncoding is the BPE encoding used by OpenAI embedding and chat models.
const DefaultEncoding = "cl100k_base"

var (
	_ domain.Tokenizer = (*Tiktoken)(nil)
	_ domain.Tokenizer = Runes{}
)

// Tiktoken wraps a tiktoken BPE encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

var offlineLoader sync.Once

// NewTiktoken loads the named encoding from the BPE ranks embedded in the
// binary, so startup never touches the network.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	offlineLoader.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %q: %w", encoding, err)
	}
	return &Tiktoken{enc: enc}, nil
}

// Encode converts text to token ids. Special tokens are treated as plain text.
func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode converts token ids back to text. A token sequence that ends inside a
// multi-byte character decodes the partial bytes to U+FFFD.
func (t *Tiktoken) Decode(tokens []int) string {
	return strings.ToValidUTF8(t.enc.Decode(tokens), "\uFFFD")
}

// Count returns the number of tokens in text.
func (t *Tiktoken) Count(text string) int {
	return len(t.Encode(text))
}

// Runes treats every Unicode code point as a token. It needs no vocabulary,
// which makes it suitable for tests and offline tooling.
type Runes struct{}

func (Runes) Encode(text string) []int {
	rs := []rune(text)
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = int(r)
	}
	return out
}

func (Runes) Decode(tokens []int) string {
	rs := make([]rune, len(tokens))
	for i, tok := range tokens {
		rs[i] = rune(tok)
	}
	return string(rs)
}

// New returns the tokenizer named by kind: "tiktoken" (default) or "runes".
func New(kind, encoding string) (domain.Tokenizer, error) {
	switch kind {
	case "", "tiktoken":
		return NewTiktoken(encoding)
	case "runes":
		return Runes{}, nil
	default:
		return nil, domain.NewConfigError("tokenizer", fmt.Sprintf("unknown kind %q", kind))
	}
}
