package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/pkg/log"
)

type MessagesRepo struct {
	db *sql.DB
}

func NewMessagesRepo(db *sql.DB) *MessagesRepo {
	return &MessagesRepo{db: db}
}

func (r *MessagesRepo) AddMessage(ctx context.Context, sessionID string, msg core.Message) error {
	tcStr, err := encodeToolCalls(msg.ToolCalls)
	if err != nil {
		return err
	}

	query := `INSERT INTO messages (session_id, role, content, reasoning, tool_calls, tool_call_id) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, sessionID, msg.Role, msg.Content, msg.Reasoning, tcStr, msg.ToolCallID); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (r *MessagesRepo) GetMessages(ctx context.Context, sessionID string, limit int) ([]core.Message, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}

	// Newest first so LIMIT keeps the tail, reversed below.
	query := `SELECT id, role, content, reasoning, tool_calls, tool_call_id FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []core.Message
	for rows.Next() {
		var msg core.Message
		var content, reasoning, toolCallsStr, toolCallID sql.NullString

		if err := rows.Scan(&msg.StoreID, &msg.Role, &content, &reasoning, &toolCallsStr, &toolCallID); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg.Content = content.String
		msg.Reasoning = reasoning.String
		msg.ToolCallID = toolCallID.String

		if toolCallsStr.Valid && toolCallsStr.String != "" {
			if err := json.Unmarshal([]byte(toolCallsStr.String), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tool calls: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.Reverse(messages)

	log.FromCtx(ctx).Debug().Str("session", sessionID).Int("count", len(messages)).Msg("loaded history messages")
	return messages, nil
}

// CompactMessages deletes the session messages up to throughID and stores
// summary in that slot, so it sorts before everything that was kept,
// including messages appended meanwhile. A boundary at or below an existing
// summary comes from a stale snapshot and is skipped.
func (r *MessagesRepo) CompactMessages(ctx context.Context, sessionID string, throughID int64, summary core.Message) (bool, error) {
	if throughID <= 0 {
		return false, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var folded bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM messages WHERE session_id = ? AND summary = 1 AND id >= ?)`,
		sessionID, throughID,
	).Scan(&folded)
	if err != nil {
		return false, fmt.Errorf("failed to check compaction boundary: %w", err)
	}
	if folded {
		log.FromCtx(ctx).Debug().Str("session", sessionID).Int64("through", throughID).Msg("compaction boundary already summarized")
		return false, nil
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ? AND id <= ?`, sessionID, throughID)
	if err != nil {
		return false, fmt.Errorf("failed to delete compacted messages: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, summary) VALUES (?, ?, ?, ?, 1)`,
		throughID, sessionID, summary.Role, summary.Content,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert summary message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func encodeToolCalls(calls []core.ToolCall) (string, error) {
	if len(calls) == 0 {
		return "", nil
	}
	data, err := json.Marshal(calls)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool calls: %w", err)
	}
	return string(data), nil
}
