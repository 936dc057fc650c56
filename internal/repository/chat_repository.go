package repository

import (
	"context"

	"storefront-service/internal/entity"
)

type ChatRepository struct {
	db DBTX
}

func NewChatRepository(db DBTX) *ChatRepository {
	return &ChatRepository{db}
}

func (r *ChatRepository) InsertMessage(ctx context.Context, msg *entity.ChatMessage) error {
	query := `INSERT INTO chat_messages (id, user_id, message, is_from_ai, session_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, msg.ID, msg.UserID, msg.Message, msg.IsFromAI, msg.SessionID, msg.CreatedAt)
	return err
}

func (r *ChatRepository) ListMessages(ctx context.Context, userID, sessionID string, skip, limit int) ([]*entity.ChatMessage, error) {
	query := `SELECT id, user_id, message, is_from_ai, session_id, created_at FROM chat_messages
		WHERE user_id = ? AND session_id = ? ORDER BY created_at, id LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, userID, sessionID, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*entity.ChatMessage{}
	for rows.Next() {
		var msg entity.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Message, &msg.IsFromAI, &msg.SessionID, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

func (r *ChatRepository) ListSessions(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT DISTINCT session_id FROM chat_messages WHERE user_id = ? AND session_id IS NOT NULL AND session_id <> ''`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var session string
		if err := rows.Scan(&session); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (r *ChatRepository) DeleteSession(ctx context.Context, userID, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE user_id = ? AND session_id = ?`, userID, sessionID)
	return err
}
