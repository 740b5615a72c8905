package rag

import (
	"strings"
	"unicode"
)

type Chunk struct {
	Text      string
	TokenSize int
	Index     int
}

type ChunkerConfig struct {
	MaxTokens     int
	OverlapTokens int
	// Tokenizer defaults to DefaultTokenizer().
	Tokenizer Tokenizer
}

// VaultChunkerConfig sizes passages so a handful fit in a retrieval slice.
func VaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		MaxTokens:     200,
		OverlapTokens: 30,
	}
}

// ChunkText packs sentences into chunks of at most MaxTokens, carrying
// OverlapTokens worth of trailing sentences into the next chunk.
func ChunkText(text string, cfg ChunkerConfig) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	tok := cfg.Tokenizer
	if tok == nil {
		tok = DefaultTokenizer()
	}

	sentences := splitSentences(text)

	var chunks []Chunk
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Text:      strings.TrimSpace(current.String()),
			TokenSize: currentTokens,
			Index:     len(chunks),
		})
		current.Reset()
		currentTokens = 0
	}

	for i, sentence := range sentences {
		sentenceTokens := tok.Count(sentence)

		// Oversized sentence: flush, then hard-split by tokens.
		if sentenceTokens > cfg.MaxTokens {
			flush()
			for _, piece := range tok.Split(sentence, cfg.MaxTokens) {
				if piece = strings.TrimSpace(piece); piece != "" {
					chunks = append(chunks, Chunk{Text: piece, TokenSize: tok.Count(piece), Index: len(chunks)})
				}
			}
			continue
		}

		if currentTokens+sentenceTokens > cfg.MaxTokens && current.Len() > 0 {
			flush()
			overlap := overlapFrom(sentences, i, cfg.OverlapTokens, tok)
			// Overlap must leave room for the sentence itself.
			if overlap != "" && tok.Count(overlap)+sentenceTokens <= cfg.MaxTokens {
				current.WriteString(overlap)
				currentTokens = tok.Count(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
		currentTokens += sentenceTokens
	}
	flush()

	return chunks
}

func splitSentences(text string) []string {
	enders := map[rune]bool{
		'.': true, '!': true, '?': true,
		'。': true, '！': true, '？': true, '．': true, '…': true,
	}

	var sentences []string
	for _, para := range splitParagraphs(text) {
		var current strings.Builder
		runes := []rune(para)

		for i, r := range runes {
			current.WriteRune(r)
			if enders[r] && (i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) || isCJK(runes[i+1])) {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}

		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
	}

	if len(sentences) == 0 {
		return []string{text}
	}
	return sentences
}

// splitParagraphs splits on blank lines and unwraps soft line breaks.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var result []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(strings.ReplaceAll(p, "\n", " "))
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func overlapFrom(sentences []string, currentIdx, targetTokens int, tok Tokenizer) string {
	if currentIdx == 0 || targetTokens <= 0 {
		return ""
	}

	var overlap []string
	tokens := 0
	for i := currentIdx - 1; i >= 0 && tokens < targetTokens; i-- {
		overlap = append([]string{sentences[i]}, overlap...)
		tokens += tok.Count(sentences[i])
	}
	return strings.Join(overlap, " ")
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
