package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEScanner(t *testing.T) {
	input := ": keepalive\n" +
		"event: message_start\n" +
		"data: {\"a\":1}\n\n" +
		"data: line1\n" +
		"data: line2\r\n\r\n" +
		"\n\n" +
		"data:nospace\n" +
		"id: 7\n\n" +
		"data: tail-without-blank"

	s := newSSEScanner(strings.NewReader(input))

	var got []sseEvent
	for s.Next() {
		got = append(got, s.Event())
	}
	require.NoError(t, s.Err())

	assert.Equal(t, []sseEvent{
		{Type: "message_start", Data: `{"a":1}`},
		{Data: "line1\nline2"},
		{Data: "nospace"},
		{Data: "tail-without-blank"},
	}, got)
	assert.False(t, s.Next())
}
