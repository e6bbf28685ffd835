package services

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"

	"github.com/andrei-assa/fda-gpt/config"
	"github.com/andrei-assa/fda-gpt/models"
)

var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")

// ChatCompleter is the part of the OpenAI client the pipeline uses.
// *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error)
}

// ClientFactory builds a client for one request's LLM configuration.
type ClientFactory func(cfg config.LLMConfig) (ChatCompleter, error)

// NewOpenAIClient is the default ClientFactory.
func NewOpenAIClient(cfg config.LLMConfig) (ChatCompleter, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig), nil
}

func toOpenAIMessages(history []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, msg := range history {
		out = append(out, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return out
}
