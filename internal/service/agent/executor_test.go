package agent

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/sandevgo/quill/internal/core"
)

func TestExecutor_TruncateKeepsRunes(t *testing.T) {
	e := NewExecutor(core.ToolSet{})

	short := strings.Repeat("é", 100)
	assert.Equal(t, short, e.truncate(short))

	// Both cut points fall inside a two-byte rune.
	input := "a" + strings.Repeat("é", 3000) + "z"
	out := e.truncate(input)

	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasPrefix(out, "a"+strings.Repeat("é", 499)+"\n"))
	assert.True(t, strings.HasSuffix(out, "\n"+strings.Repeat("é", 1500)+"z"))
	assert.Contains(t, out, "[TRUNCATED 2002 bytes]")
}
