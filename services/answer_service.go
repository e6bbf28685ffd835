package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"github.com/andrei-assa/fda-gpt/config"
	"github.com/andrei-assa/fda-gpt/logger"
	"github.com/andrei-assa/fda-gpt/models"
)

// ErrCompletion wraps failures of the streamed answer.
var ErrCompletion = errors.New("completion failed")

// BuildAnswerMessages returns the message list sent to the answer model:
// the conversation without its last message, the summarize instruction, the
// context, then the last message's content as the question. conversation is
// not modified.
func BuildAnswerMessages(conversation []models.Message, fdaContext string) []models.Message {
	if len(conversation) == 0 {
		return nil
	}
	last := conversation[len(conversation)-1]

	out := make([]models.Message, 0, len(conversation)+2)
	out = append(out, conversation[:len(conversation)-1]...)
	out = append(out,
		models.Message{Role: models.RoleSystem, Content: SummarizeSystemPrompt},
		models.Message{Role: models.RoleUser, Content: fdaContext},
		models.Message{Role: models.RoleUser, Content: "Question:\n" + last.Content},
	)
	return out
}

type AnswerService struct {
	log *logger.Logger
}

func NewAnswerService(log *logger.Logger) *AnswerService {
	return &AnswerService{log: log.With("service", "AnswerService")}
}

// Open starts the streamed completion. An error here means nothing has been
// sent to the client yet.
func (s *AnswerService) Open(ctx context.Context, client ChatCompleter, cfg config.LLMConfig, messages []models.Message) (*openai.ChatCompletionStream, error) {
	stream, err := client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       cfg.Model,
		Temperature: requestTemperature(cfg.AnswerTemp),
		MaxTokens:   cfg.AnswerMaxTokens(),
		Messages:    toOpenAIMessages(messages),
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompletion, err)
	}
	return stream, nil
}

// Relay passes every delta of stream to onDelta in order and returns the
// full completion once the stream ends. The stream is always closed.
func (s *AnswerService) Relay(stream *openai.ChatCompletionStream, onDelta func(string) error) (string, error) {
	defer stream.Close()

	var completion []byte
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return string(completion), nil
		}
		if err != nil {
			return string(completion), fmt.Errorf("%w: %w", ErrCompletion, err)
		}
		if len(resp.Choices) == 0 {
			continue
		}

		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		completion = append(completion, delta...)
		if err := onDelta(delta); err != nil {
			return string(completion), err
		}
	}
}
