package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"

	"storefront-service/internal/entity"
)

const serviceName = "language model"

var errEmptyReply = errors.New("model returned no choices")

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient answers assistant prompts with a chat completion.
type OpenAIClient struct {
	client      chatCompleter
	model       string
	maxTokens   int
	temperature float32
}

func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return newClient(openai.NewClient(apiKey), model)
}

// NewOpenAIClientWithBaseURL targets an OpenAI compatible endpoint.
func NewOpenAIClientWithBaseURL(apiKey, model, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return newClient(openai.NewClientWithConfig(cfg), model)
}

func newClient(client chatCompleter, model string) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{client: client, model: model, maxTokens: 300, temperature: 0.7}
}

func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", entity.NewUpstreamError(serviceName, err)
	}
	if len(resp.Choices) == 0 {
		return "", entity.NewUpstreamError(serviceName, errEmptyReply)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
