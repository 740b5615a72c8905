package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sandevgo/quill/internal/core"
)

const (
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 4096
)

type Anthropic struct {
	baseProvider
}

func NewAnthropic(apiKey, model string) *Anthropic {
	return &Anthropic{
		baseProvider: newBaseProvider("https://api.anthropic.com", apiKey, model),
	}
}

func (a *Anthropic) headers() map[string]string {
	return map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}
}

type anthropicBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// buildAnthropicPayload maps chat messages onto the Messages API. System
// messages are hoisted, tool results become user tool_result blocks and
// consecutive messages of the same role are merged.
func (a *Anthropic) buildAnthropicPayload(history []core.Message, tools []core.Tool, stream bool) map[string]any {
	var system []string
	var msgs []anthropicMessage

	push := func(role string, blocks ...anthropicBlock) {
		if len(blocks) == 0 {
			return
		}
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content = append(msgs[n-1].Content, blocks...)
			return
		}
		msgs = append(msgs, anthropicMessage{Role: role, Content: blocks})
	}

	for _, m := range history {
		switch m.Role {
		case core.RoleSystem:
			system = append(system, m.Content)
		case core.RoleTool:
			push("user", anthropicBlock{Type: "tool_result", ToolUseID: m.ToolCallID, Content: m.Content})
		case core.RoleAssistant:
			var blocks []anthropicBlock
			if m.Content != "" {
				blocks = append(blocks, anthropicBlock{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				input := json.RawMessage(tc.Function.Arguments)
				if !json.Valid(input) {
					input = json.RawMessage(`{}`)
				}
				blocks = append(blocks, anthropicBlock{Type: "tool_use", ID: tc.ID, Name: tc.Function.Name, Input: input})
			}
			push("assistant", blocks...)
		default:
			if m.Content != "" {
				push("user", anthropicBlock{Type: "text", Text: m.Content})
			}
		}
	}

	payload := map[string]any{
		"model":      a.model,
		"max_tokens": anthropicMaxTokens,
		"messages":   msgs,
	}
	if len(system) > 0 {
		payload["system"] = strings.Join(system, "\n\n")
	}
	if len(tools) > 0 {
		defs := make([]anthropicTool, 0, len(tools))
		for _, t := range tools {
			defs = append(defs, anthropicTool{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				InputSchema: t.Function.Parameters,
			})
		}
		payload["tools"] = defs
	}
	if stream {
		payload["stream"] = true
	}
	return payload
}

func (a *Anthropic) Chat(ctx context.Context, history []core.Message, tools []core.Tool) (core.Message, error) {
	resp, err := a.send(ctx, http.MethodPost, "/v1/messages", a.buildAnthropicPayload(history, tools, false), a.headers())
	if err != nil {
		return core.Message{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.Message{}, fmt.Errorf("read body: %w", err)
	}

	var result struct {
		Content []anthropicBlock `json:"content"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return core.Message{}, fmt.Errorf("decode: %w", err)
	}

	msg := core.Message{Role: core.RoleAssistant}
	for _, c := range result.Content {
		switch c.Type {
		case "text":
			msg.Content += c.Text
		case "thinking":
			msg.Reasoning += c.Thinking
		case "tool_use":
			msg.ToolCalls = append(msg.ToolCalls, core.ToolCall{
				ID:       c.ID,
				Type:     "function",
				Function: core.FunctionCall{Name: c.Name, Arguments: string(c.Input)},
			})
		}
	}
	return msg, nil
}

type anthropicStreamEvent struct {
	Type         string         `json:"type"`
	Index        int            `json:"index"`
	ContentBlock anthropicBlock `json:"content_block"`
	Delta        struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		Thinking    string `json:"thinking"`
		PartialJSON string `json:"partial_json"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *Anthropic) ChatStream(ctx context.Context, history []core.Message, tools []core.Tool, onEvent func(core.StreamEvent)) (core.Message, error) {
	resp, err := a.send(ctx, http.MethodPost, "/v1/messages", a.buildAnthropicPayload(history, tools, true), a.headers())
	if err != nil {
		return core.Message{}, err
	}
	defer resp.Body.Close()

	return readAnthropicStream(resp.Body, onEvent)
}

func readAnthropicStream(body io.Reader, onEvent func(core.StreamEvent)) (core.Message, error) {
	msg := core.Message{Role: core.RoleAssistant}
	var content, reasoning strings.Builder

	type pendingTool struct {
		call core.ToolCall
		args strings.Builder
	}
	tools := make(map[int]*pendingTool)

	scanner := newSSEScanner(body)
	for scanner.Next() {
		var ev anthropicStreamEvent
		if err := json.Unmarshal([]byte(scanner.Event().Data), &ev); err != nil {
			return msg, fmt.Errorf("decode stream event: %w", err)
		}

		switch ev.Type {
		case "error":
			if ev.Error != nil {
				return msg, fmt.Errorf("stream error: %s: %s", ev.Error.Type, ev.Error.Message)
			}
			return msg, fmt.Errorf("stream error")
		case "content_block_start":
			if ev.ContentBlock.Type == "tool_use" {
				tools[ev.Index] = &pendingTool{call: core.ToolCall{
					ID:       ev.ContentBlock.ID,
					Type:     "function",
					Function: core.FunctionCall{Name: ev.ContentBlock.Name},
				}}
			}
		case "content_block_delta":
			switch ev.Delta.Type {
			case "text_delta":
				content.WriteString(ev.Delta.Text)
				emit(onEvent, core.StreamEvent{Kind: core.EventText, Text: ev.Delta.Text})
			case "thinking_delta":
				reasoning.WriteString(ev.Delta.Thinking)
				emit(onEvent, core.StreamEvent{Kind: core.EventReasoning, Text: ev.Delta.Thinking})
			case "input_json_delta":
				if t, ok := tools[ev.Index]; ok {
					t.args.WriteString(ev.Delta.PartialJSON)
				}
			}
		case "content_block_stop":
			if t, ok := tools[ev.Index]; ok {
				t.call.Function.Arguments = t.args.String()
				if t.call.Function.Arguments == "" {
					t.call.Function.Arguments = "{}"
				}
				call := t.call
				msg.ToolCalls = append(msg.ToolCalls, call)
				emit(onEvent, core.StreamEvent{Kind: core.EventToolCall, ToolCall: &call})
				delete(tools, ev.Index)
			}
		case "message_stop":
			msg.Content = content.String()
			msg.Reasoning = reasoning.String()
			return msg, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return msg, fmt.Errorf("read stream: %w", err)
	}

	msg.Content = content.String()
	msg.Reasoning = reasoning.String()
	return msg, nil
}

func (a *Anthropic) Models(ctx context.Context) ([]core.Model, error) {
	var models []core.Model
	afterID := ""

	for {
		path := "/v1/models?limit=1000"
		if afterID != "" {
			path = fmt.Sprintf("%s&after_id=%s", path, url.QueryEscape(afterID))
		}

		resp, err := a.send(ctx, http.MethodGet, path, nil, a.headers())
		if err != nil {
			return nil, err
		}

		var result struct {
			Data []struct {
				ID          string `json:"id"`
				DisplayName string `json:"display_name"`
				Type        string `json:"type"`
			} `json:"data"`
			HasMore bool   `json:"has_more"`
			LastID  string `json:"last_id"`
		}
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}

		for _, m := range result.Data {
			if m.Type == "model" {
				models = append(models, core.Model{ID: m.ID, Name: m.DisplayName})
			}
		}

		if !result.HasMore {
			break
		}
		afterID = result.LastID
	}

	return models, nil
}
