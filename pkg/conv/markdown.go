package conv

import (
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/inbucket/html2text"
	"github.com/microcosm-cc/bluemonday"
)

var (
	extensions = parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	htmlFlags  = html.CommonFlags | html.HrefTargetBlank
	tgPolicy   = bluemonday.NewPolicy()
	textPolicy = bluemonday.UGCPolicy()
)

func init() {
	// Allowed tags https://core.telegram.org/bots/api#html-style
	tgPolicy.AllowElements("b", "strong", "i", "em", "u", "ins", "s", "strike", "del", "code", "pre", "blockquote")
	tgPolicy.AllowAttrs("href").OnElements("a")
	tgPolicy.AllowAttrs("class").OnElements("code")
}

func renderHTML(md []byte) []byte {
	// Parsers are stateful, one per call.
	p := parser.NewWithExtensions(extensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})
	return markdown.Render(p.Parse(md), renderer)
}

func MarkdownToTelegramHTML(md []byte) string {
	return string(tgPolicy.SanitizeBytes(renderHTML(md)))
}

// MarkdownToPlainText renders markdown to text suitable for indexing and snippets.
// Links keep their visible text only.
func MarkdownToPlainText(md []byte) (string, error) {
	if len(md) == 0 {
		return "", nil
	}
	sanitized := textPolicy.SanitizeBytes(renderHTML(md))
	text, err := html2text.FromString(string(sanitized), html2text.Options{
		OmitLinks: true,
		TextOnly:  true,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
