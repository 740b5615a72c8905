package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/sandevgo/quill/internal/core"
)

type OpenAICompatible struct {
	baseProvider
	authHeader   string
	authPrefix   string
	extraHeaders map[string]string
	chatPath     string
	modelsPath   string
}

type OpenAICompatibleConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	AuthHeader   string // e.g., "Authorization"
	AuthPrefix   string // e.g., "Bearer "
	ExtraHeaders map[string]string
	// ChatPath and ModelsPath default to the /v1 endpoints.
	ChatPath   string
	ModelsPath string
}

func NewOpenAICompatible(cfg OpenAICompatibleConfig) *OpenAICompatible {
	if cfg.ChatPath == "" {
		cfg.ChatPath = "/v1/chat/completions"
	}
	if cfg.ModelsPath == "" {
		cfg.ModelsPath = "/v1/models"
	}
	return &OpenAICompatible{
		baseProvider: newBaseProvider(strings.TrimRight(cfg.BaseURL, "/"), cfg.APIKey, cfg.Model),
		authHeader:   cfg.AuthHeader,
		authPrefix:   cfg.AuthPrefix,
		extraHeaders: cfg.ExtraHeaders,
		chatPath:     cfg.ChatPath,
		modelsPath:   cfg.ModelsPath,
	}
}

// wireMessage drops fields the chat completions API does not accept.
type wireMessage struct {
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	ToolCalls  []core.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

func (o *OpenAICompatible) payload(history []core.Message, tools []core.Tool, stream bool) map[string]any {
	msgs := make([]wireMessage, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, wireMessage{Role: m.Role, Content: m.Content, ToolCalls: m.ToolCalls, ToolCallID: m.ToolCallID})
	}

	payload := map[string]any{
		"model":    o.model,
		"messages": msgs,
	}
	if len(tools) > 0 {
		payload["tools"] = tools
	}
	if stream {
		payload["stream"] = true
	}
	return payload
}

func (o *OpenAICompatible) headers() map[string]string {
	headers := make(map[string]string, len(o.extraHeaders)+1)
	if o.authHeader != "" && o.apiKey != "" {
		headers[o.authHeader] = o.authPrefix + o.apiKey
	}
	for k, v := range o.extraHeaders {
		headers[k] = v
	}
	return headers
}

func (o *OpenAICompatible) Chat(ctx context.Context, history []core.Message, tools []core.Tool) (core.Message, error) {
	resp, err := o.send(ctx, http.MethodPost, o.chatPath, o.payload(history, tools, false), o.headers())
	if err != nil {
		return core.Message{}, err
	}
	defer resp.Body.Close()

	return parseOpenAIResponse(resp)
}

func (o *OpenAICompatible) ChatStream(ctx context.Context, history []core.Message, tools []core.Tool, onEvent func(core.StreamEvent)) (core.Message, error) {
	resp, err := o.send(ctx, http.MethodPost, o.chatPath, o.payload(history, tools, true), o.headers())
	if err != nil {
		return core.Message{}, err
	}
	defer resp.Body.Close()

	return readOpenAIStream(resp.Body, onEvent)
}

func parseOpenAIResponse(resp *http.Response) (core.Message, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.Message{}, fmt.Errorf("read body: %w", err)
	}

	var result struct {
		Choices []struct {
			Message struct {
				core.Message
				ReasoningContent string `json:"reasoning_content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return core.Message{}, fmt.Errorf("decode: %w", err)
	}
	if len(result.Choices) == 0 {
		return core.Message{}, fmt.Errorf("empty choices: %s", string(data))
	}

	msg := result.Choices[0].Message.Message
	if msg.Reasoning == "" {
		msg.Reasoning = result.Choices[0].Message.ReasoningContent
	}
	msg.Role = core.RoleAssistant
	return msg, nil
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			Reasoning        string `json:"reasoning"`
			ReasoningContent string `json:"reasoning_content"`
			ToolCalls        []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Type     string `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// readOpenAIStream assembles a chat completions SSE stream. Tool call
// fragments are merged by index and emitted once the stream ends.
func readOpenAIStream(body io.Reader, onEvent func(core.StreamEvent)) (core.Message, error) {
	msg := core.Message{Role: core.RoleAssistant}
	var content, reasoning strings.Builder
	calls := make(map[int]*core.ToolCall)

	scanner := newSSEScanner(body)
	for scanner.Next() {
		data := strings.TrimSpace(scanner.Event().Data)
		if data == "[DONE]" {
			break
		}

		var chunk openAIStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return msg, fmt.Errorf("decode stream chunk: %w", err)
		}
		if chunk.Error != nil {
			return msg, fmt.Errorf("stream error: %s", chunk.Error.Message)
		}

		for _, choice := range chunk.Choices {
			d := choice.Delta
			if r := d.Reasoning + d.ReasoningContent; r != "" {
				reasoning.WriteString(r)
				emit(onEvent, core.StreamEvent{Kind: core.EventReasoning, Text: r})
			}
			if d.Content != "" {
				content.WriteString(d.Content)
				emit(onEvent, core.StreamEvent{Kind: core.EventText, Text: d.Content})
			}
			for _, tc := range d.ToolCalls {
				call, ok := calls[tc.Index]
				if !ok {
					call = &core.ToolCall{Type: "function"}
					calls[tc.Index] = call
				}
				if tc.ID != "" {
					call.ID = tc.ID
				}
				call.Function.Name += tc.Function.Name
				call.Function.Arguments += tc.Function.Arguments
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return msg, fmt.Errorf("read stream: %w", err)
	}

	indexes := make([]int, 0, len(calls))
	for i := range calls {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		call := *calls[i]
		msg.ToolCalls = append(msg.ToolCalls, call)
		emit(onEvent, core.StreamEvent{Kind: core.EventToolCall, ToolCall: &call})
	}

	msg.Content = content.String()
	msg.Reasoning = reasoning.String()
	return msg, nil
}

func emit(onEvent func(core.StreamEvent), ev core.StreamEvent) {
	if onEvent != nil {
		onEvent(ev)
	}
}

// Models reads a /v1/models style listing.
func (o *OpenAICompatible) Models(ctx context.Context) ([]core.Model, error) {
	resp, err := o.send(ctx, http.MethodGet, o.modelsPath, nil, o.headers())
	if err != nil {
		return nil, fmt.Errorf("fetch models: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Data []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			ContextLength int    `json:"context_length"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode models response: %w", err)
	}

	models := make([]core.Model, 0, len(result.Data))
	for _, m := range result.Data {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		models = append(models, core.Model{ID: m.ID, Name: name, ContextLength: m.ContextLength})
	}
	return models, nil
}
