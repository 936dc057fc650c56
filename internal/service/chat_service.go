package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront-service/internal/entity"
	"storefront-service/internal/repository"
)

const (
	defaultHistorySize = 50

	assistantPrompt = `You are a parts expert for an online storefront selling tractor and off-road vehicle parts.
Help customers find the right parts for their machines. Keep responses helpful and professional.`

	assistantUnavailable = "I'm sorry, but the AI service is not available at the moment. Please try again later or contact support."
)

// ChatService stores the conversation and asks the language model for the
// assistant's replies. model may be nil, in which case every reply is the
// unavailable notice.
type ChatService struct {
	messages repository.ChatStore
	model    LanguageModel
	now      func() time.Time
}

// NewChatService creates a new instance of ChatService.
func NewChatService(messages repository.ChatStore, model LanguageModel) *ChatService {
	return &ChatService{
		messages: messages,
		model:    model,
		now:      time.Now,
	}
}

// Send records the user's message and the assistant's reply, returning the
// reply. If the model call fails the user message stays recorded.
func (s *ChatService) Send(ctx context.Context, userID, sessionID, text string) (*entity.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("message is required: %w", entity.ErrInvalidInput)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if err := s.messages.InsertMessage(ctx, &entity.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   text,
		SessionID: sessionID,
		CreatedAt: s.now().UTC(),
	}); err != nil {
		logger.Error().Err(err).Msg("Error saving chat message")
		return nil, err
	}

	reply := assistantUnavailable
	if s.model != nil {
		answer, err := s.model.Complete(ctx, assistantPrompt, text)
		if err != nil {
			logger.Error().Err(err).Msgf("Error getting assistant reply for user %s", userID)
			return nil, err
		}
		reply = answer
	} else {
		logger.Warn().Msg("No language model configured, using fallback reply")
	}

	aiMessage := &entity.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   reply,
		IsFromAI:  true,
		SessionID: sessionID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.messages.InsertMessage(ctx, aiMessage); err != nil {
		logger.Error().Err(err).Msg("Error saving assistant reply")
		return nil, err
	}
	return aiMessage, nil
}

func (s *ChatService) History(ctx context.Context, userID, sessionID string, skip, limit int) ([]*entity.ChatMessage, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > defaultHistorySize {
		limit = defaultHistorySize
	}
	return s.messages.ListMessages(ctx, userID, sessionID, skip, limit)
}

func (s *ChatService) Sessions(ctx context.Context, userID string) ([]string, error) {
	return s.messages.ListSessions(ctx, userID)
}

func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if err := s.messages.DeleteSession(ctx, userID, sessionID); err != nil {
		logger.Error().Err(err).Msgf("Error deleting chat session %s", sessionID)
		return err
	}
	return nil
}
