package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func charCfg(maxTokens, overlap int) ChunkerConfig {
	return ChunkerConfig{MaxTokens: maxTokens, OverlapTokens: overlap, Tokenizer: CharTokenizer{}}
}

func TestChunkText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		cfg      ChunkerConfig
		expected []string
	}{
		{name: "empty input", text: "", cfg: charCfg(10, 0), expected: nil},
		{name: "whitespace only", text: "   \n\t   ", cfg: charCfg(10, 0), expected: nil},
		{
			name:     "two sentences fit",
			text:     "Hello world. How are you?",
			cfg:      charCfg(10, 0),
			expected: []string{"Hello world. How are you?"},
		},
		{
			// "First sentence." is 15 runes -> 4 tokens
			name:     "split by sentence",
			text:     "First sentence. Second sentence.",
			cfg:      charCfg(4, 0),
			expected: []string{"First sentence.", "Second sentence."},
		},
		{
			name:     "paragraphs unwrap soft breaks",
			text:     "Line one\ncontinues.\n\nNext para.",
			cfg:      charCfg(100, 0),
			expected: []string{"Line one continues. Next para."},
		},
		{
			name:     "oversized sentence is hard split",
			text:     strings.Repeat("a", 20),
			cfg:      charCfg(2, 0),
			expected: []string{"aaaaaaaa", "aaaaaaaa", "aaaa"},
		},
		{
			name:     "overlap carries previous sentence",
			text:     "One a. Two b. Six c.",
			cfg:      charCfg(4, 1),
			expected: []string{"One a. Two b.", "Two b. Six c."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := ChunkText(tt.text, tt.cfg)

			var got []string
			for i, c := range chunks {
				assert.Equal(t, i, c.Index)
				assert.LessOrEqual(t, c.TokenSize, tt.cfg.MaxTokens)
				got = append(got, c.Text)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCharTokenizer(t *testing.T) {
	tok := CharTokenizer{}
	assert.Equal(t, 0, tok.Count(""))
	assert.Equal(t, 1, tok.Count("abc"))
	assert.Equal(t, 2, tok.Count("abcde"))
	assert.Equal(t, 1, tok.Count("日本語"))
	assert.Equal(t, []string{"abcd", "ef"}, tok.Split("abcdef", 1))
}

func TestSplitSentences_CJK(t *testing.T) {
	assert.Equal(t, []string{"你好。", "世界。"}, splitSentences("你好。世界。"))
}
