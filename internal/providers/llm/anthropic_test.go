package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sandevgo/quill/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropic_BuildPayload(t *testing.T) {
	a := NewAnthropic("k", "claude")
	history := []core.Message{
		{Role: core.RoleSystem, Content: "sys one"},
		{Role: core.RoleSystem, Content: "sys two"},
		{Role: core.RoleUser, Content: "find docs"},
		{Role: core.RoleAssistant, ToolCalls: []core.ToolCall{
			{ID: "t1", Function: core.FunctionCall{Name: "search_docs", Arguments: `{"query":"a"}`}},
			{ID: "t2", Function: core.FunctionCall{Name: "list_docs", Arguments: `not json`}},
		}},
		{Role: core.RoleTool, ToolCallID: "t1", Content: "r1"},
		{Role: core.RoleTool, ToolCallID: "t2", Content: "r2"},
	}

	payload := a.buildAnthropicPayload(history, nil, true)

	assert.Equal(t, "sys one\n\nsys two", payload["system"])
	assert.Equal(t, true, payload["stream"])
	msgs := payload["messages"].([]anthropicMessage)
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, json.RawMessage(`{}`), msgs[1].Content[1].Input)
	assert.Equal(t, "user", msgs[2].Role)
	require.Len(t, msgs[2].Content, 2)
	assert.Equal(t, "tool_result", msgs[2].Content[0].Type)
	assert.Equal(t, "t2", msgs[2].Content[1].ToolUseID)
}

func TestAnthropic_ChatStream(t *testing.T) {
	stream := strings.Join([]string{
		"event: message_start\ndata: {\"type\":\"message_start\"}\n",
		"event: content_block_start\ndata: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"thinking\"}}\n",
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"thinking_delta\",\"thinking\":\"hmm\"}}\n",
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":1,\"delta\":{\"type\":\"text_delta\",\"text\":\"Hello\"}}\n",
		"event: content_block_start\ndata: {\"type\":\"content_block_start\",\"index\":2,\"content_block\":{\"type\":\"tool_use\",\"id\":\"tu_1\",\"name\":\"read_doc\"}}\n",
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":2,\"delta\":{\"type\":\"input_json_delta\",\"partial_json\":\"{\\\"path\\\":\"}}\n",
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":2,\"delta\":{\"type\":\"input_json_delta\",\"partial_json\":\"\\\"a.md\\\"}\"}}\n",
		"event: content_block_stop\ndata: {\"type\":\"content_block_stop\",\"index\":2}\n",
		"event: message_stop\ndata: {\"type\":\"message_stop\"}\n",
	}, "\n")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		io.WriteString(w, stream)
	}))
	defer srv.Close()

	a := &Anthropic{baseProvider: newBaseProvider(srv.URL, "k", "claude")}

	var texts []string
	msg, err := a.ChatStream(context.Background(), []core.Message{{Role: core.RoleUser, Content: "hi"}}, nil, func(ev core.StreamEvent) {
		if ev.Kind == core.EventText {
			texts = append(texts, ev.Text)
		}
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello"}, texts)
	assert.Equal(t, "Hello", msg.Content)
	assert.Equal(t, "hmm", msg.Reasoning)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "tu_1", msg.ToolCalls[0].ID)
	assert.JSONEq(t, `{"path":"a.md"}`, msg.ToolCalls[0].Function.Arguments)
}

func TestReadAnthropicStream_Error(t *testing.T) {
	_, err := readAnthropicStream(strings.NewReader("event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n"), nil)
	assert.ErrorContains(t, err, "Overloaded")
}
