package chunk

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

// runeTokenizer treats every rune as one token.
type runeTokenizer struct{}

func (runeTokenizer) Encode(text string) []int {
	out := make([]int, 0, len(text))
	for _, r := range text {
		out = append(out, int(r))
	}
	return out
}

func (runeTokenizer) Decode(tokens []int) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteRune(rune(t))
	}
	return b.String()
}

// byteTokenizer treats every byte as one token, so windows can end inside a
// multi-byte character the way BPE windows do.
type byteTokenizer struct{}

func (byteTokenizer) Encode(text string) []int {
	out := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = int(text[i])
	}
	return out
}

func (byteTokenizer) Decode(tokens []int) string {
	b := make([]byte, len(tokens))
	for i, t := range tokens {
		b[i] = byte(t)
	}
	return string(b)
}

func TestSplit_WindowEdgeInsideCharacter(t *testing.T) {
	// "气" is three bytes; a 4-byte window ends one byte into it.
	chunks, err := Split(byteTokenizer{}, "abc气d", 4, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if !utf8.ValidString(c.Text()) {
			t.Errorf("chunk %d is not valid UTF-8: %q", c.Index(), c.Text())
		}
	}
	if got := chunks[0].Text(); got != "abc\uFFFD" {
		t.Errorf("chunk 0 = %q", got)
	}
	if got := chunks[1].Text(); got != "\uFFFDd" {
		t.Errorf("chunk 1 = %q", got)
	}
	if chunks[0].TokenCount() != 4 || chunks[1].TokenCount() != 3 {
		t.Errorf("unexpected token counts %d, %d", chunks[0].TokenCount(), chunks[1].TokenCount())
	}
}

func TestSplit_Windows(t *testing.T) {
	chunks, err := Split(runeTokenizer{}, "abcdefghij", 4, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"abcd", "defg", "ghij", "j"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, c := range chunks {
		if c.Text() != want[i] {
			t.Errorf("chunk %d: got %q, want %q", i, c.Text(), want[i])
		}
		if c.Index() != i {
			t.Errorf("chunk %d: got index %d", i, c.Index())
		}
		if c.TokenCount() != len([]rune(want[i])) {
			t.Errorf("chunk %d: got token count %d", i, c.TokenCount())
		}
	}
}

func TestSplit_NoOverlap(t *testing.T) {
	chunks, err := Split(runeTokenizer{}, "abcdef", 3, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 || chunks[0].Text() != "abc" || chunks[1].Text() != "def" {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}

func TestSplit_ShorterThanWindow(t *testing.T) {
	chunks, err := Split(runeTokenizer{}, "hi", DefaultSize, DefaultOverlap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text() != "hi" || chunks[0].TokenCount() != 2 {
		t.Errorf("unexpected chunk: %q (%d tokens)", chunks[0].Text(), chunks[0].TokenCount())
	}
}

func TestSplit_EmptyText(t *testing.T) {
	chunks, err := Split(runeTokenizer{}, "", DefaultSize, DefaultOverlap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestSplit_IndexesContiguousAndCoverAllTokens(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 37)
	tok := runeTokenizer{}
	total := len(tok.Encode(text))

	params := []struct{ size, overlap int }{
		{1, 0}, {7, 3}, {50, 49}, {64, 0}, {500, 50}, {total, 0}, {total + 10, 5},
	}
	for _, p := range params {
		chunks, err := Split(tok, text, p.size, p.overlap)
		if err != nil {
			t.Fatalf("size=%d overlap=%d: unexpected error: %v", p.size, p.overlap, err)
		}

		covered := make([]bool, total)
		step := p.size - p.overlap
		for i, c := range chunks {
			if c.Index() != i {
				t.Fatalf("size=%d overlap=%d: chunk %d has index %d", p.size, p.overlap, i, c.Index())
			}
			if c.TokenCount() <= 0 || c.TokenCount() > p.size {
				t.Fatalf("size=%d overlap=%d: chunk %d has %d tokens", p.size, p.overlap, i, c.TokenCount())
			}
			start := i * step
			for j := start; j < start+c.TokenCount(); j++ {
				covered[j] = true
			}
		}
		for j, ok := range covered {
			if !ok {
				t.Fatalf("size=%d overlap=%d: token %d not covered", p.size, p.overlap, j)
			}
		}
	}
}

func TestSplit_RejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 11},
		{"zero size", 0, 0},
		{"negative size", -5, 0},
		{"negative overlap", 10, -1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Split(runeTokenizer{}, "some text", tc.size, tc.overlap)
			if !errors.Is(err, domain.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
			var cfgErr *domain.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *domain.ConfigError, got %T", err)
			}
		})
	}
}

func TestNew_ValidatesOnce(t *testing.T) {
	if _, err := New(runeTokenizer{}, 5, 5); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if _, err := New(nil, 5, 1); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for nil tokenizer, got %v", err)
	}

	c, err := New(runeTokenizer{}, 5, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Size() != 5 || c.Overlap() != 1 {
		t.Errorf("unexpected parameters: size=%d overlap=%d", c.Size(), c.Overlap())
	}
	if got := len(c.Split("abcdefghi")); got != 3 {
		t.Errorf("expected 3 chunks, got %d", got)
	}
	if got := c.CountTokens("héllo"); got != 5 {
		t.Errorf("expected 5 tokens, got %d", got)
	}
}
