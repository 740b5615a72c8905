package rag

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// CharsPerToken is the heuristic ratio used when no BPE tokenizer is available.
const CharsPerToken = 4

type Tokenizer interface {
	Count(text string) int
	// Split cuts text into pieces of at most maxTokens tokens each.
	Split(text string, maxTokens int) []string
}

var (
	defaultTokenizer Tokenizer
	tokenizerOnce    sync.Once
)

// DefaultTokenizer returns the cl100k_base tokenizer, or the char heuristic
// when the encoding cannot be loaded (it is fetched on first use).
func DefaultTokenizer() Tokenizer {
	tokenizerOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			defaultTokenizer = CharTokenizer{}
			return
		}
		defaultTokenizer = &bpeTokenizer{enc: enc}
	})
	return defaultTokenizer
}

type bpeTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (b *bpeTokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(b.enc.Encode(text, nil, nil))
}

func (b *bpeTokenizer) Split(text string, maxTokens int) []string {
	tokens := b.enc.Encode(text, nil, nil)
	var out []string
	for i := 0; i < len(tokens); i += maxTokens {
		end := min(i+maxTokens, len(tokens))
		out = append(out, b.enc.Decode(tokens[i:end]))
	}
	return out
}

// CharTokenizer counts one token per CharsPerToken runes, rounding up.
type CharTokenizer struct{}

func (CharTokenizer) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + CharsPerToken - 1) / CharsPerToken
}

func (CharTokenizer) Split(text string, maxTokens int) []string {
	runes := []rune(text)
	size := maxTokens * CharsPerToken
	var out []string
	for i := 0; i < len(runes); i += size {
		end := min(i+size, len(runes))
		out = append(out, string(runes[i:end]))
	}
	return out
}
