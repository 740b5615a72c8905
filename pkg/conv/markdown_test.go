package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownToTelegramHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty input", input: "", expected: ""},
		{name: "plain text", input: "Hello world", expected: "Hello world\n"},
		{name: "bold text", input: "**bold**", expected: "<strong>bold</strong>\n"},
		{name: "inline code", input: "`x := 1`", expected: "<code>x := 1</code>\n"},
		{name: "headings are flattened", input: "# Title", expected: "Title\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MarkdownToTelegramHTML([]byte(tt.input)))
		})
	}
}

func TestMarkdownToPlainText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{name: "empty", input: ""},
		{
			name:     "emphasis removed",
			input:    "Some **bold** and *italic* words",
			contains: []string{"Some bold and italic words"},
			excludes: []string{"**", "<strong>"},
		},
		{
			name:     "links keep text",
			input:    "See [the guide](https://example.com/guide).",
			contains: []string{"the guide"},
			excludes: []string{"https://example.com"},
		},
		{
			name:     "scripts stripped",
			input:    "before\n\n<script>alert(1)</script>\n\nafter",
			contains: []string{"before", "after"},
			excludes: []string{"alert"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarkdownToPlainText([]byte(tt.input))
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, bad := range tt.excludes {
				assert.NotContains(t, got, bad)
			}
		})
	}
}

func TestSplitFrontmatter(t *testing.T) {
	t.Run("with header", func(t *testing.T) {
		fm, body, err := SplitFrontmatter([]byte("---\ntitle: Roadmap\ntags: [plan, q3]\n---\n# Body\n"))
		require.NoError(t, err)
		assert.Equal(t, "Roadmap", fm.Title)
		assert.Equal(t, []string{"plan", "q3"}, fm.Tags)
		assert.Equal(t, "# Body\n", string(body))
	})

	t.Run("no header", func(t *testing.T) {
		in := []byte("# Just markdown\n---\nrule above")
		fm, body, err := SplitFrontmatter(in)
		require.NoError(t, err)
		assert.Empty(t, fm.Title)
		assert.Equal(t, in, body)
	})

	t.Run("unterminated header", func(t *testing.T) {
		in := []byte("---\ntitle: x\nno end")
		_, body, err := SplitFrontmatter(in)
		require.NoError(t, err)
		assert.Equal(t, in, body)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, _, err := SplitFrontmatter([]byte("---\ntitle: [unclosed\n---\nbody"))
		assert.Error(t, err)
	})
}
