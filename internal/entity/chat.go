package entity

import "time"

type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	IsFromAI  bool      `json:"is_from_ai"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}
