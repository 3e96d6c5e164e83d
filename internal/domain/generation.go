package domain

import "context"

// Generator produces natural-language answers from a question and retrieved context.
type Generator interface {
	Generate(ctx context.Context, question, passages string) (string, error)
}

// Tokenizer encodes text into tokens and back.
// Decode(Encode(t)) must return t for well-formed text.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}
