package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/andrei-assa/fda-gpt/config"
	"github.com/andrei-assa/fda-gpt/logger"
	"github.com/andrei-assa/fda-gpt/models"
)

// ErrTranslation wraps failures of the model call that turns a question
// into a structured search.
var ErrTranslation = errors.New("query translation failed")

// SearchParser turns the raw model reply into a structured search.
type SearchParser interface {
	ParseSearch(raw string) (models.StructuredSearch, error)
}

// SearchParserFunc adapts a plain function to SearchParser.
type SearchParserFunc func(raw string) (models.StructuredSearch, error)

func (f SearchParserFunc) ParseSearch(raw string) (models.StructuredSearch, error) {
	return f(raw)
}

// DefaultSearchParser accepts the "JSON: {...}" form the prompt examples use,
// with or without a surrounding code fence.
var DefaultSearchParser SearchParser = SearchParserFunc(ParseSearch)

// ParseSearch decodes and validates a model reply.
func ParseSearch(raw string) (models.StructuredSearch, error) {
	text := strings.TrimSpace(raw)
	text = stripCodeFence(text)
	text = strings.TrimSpace(strings.TrimPrefix(text, "JSON:"))
	text = stripCodeFence(text)

	var search models.StructuredSearch
	if err := json.Unmarshal([]byte(text), &search); err != nil {
		return models.StructuredSearch{}, fmt.Errorf("%w: %w", models.ErrInvalidSearch, err)
	}
	if err := search.Validate(); err != nil {
		return models.StructuredSearch{}, err
	}
	return search, nil
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}

type TranslatorService struct {
	parser SearchParser
	log    *logger.Logger
}

func NewTranslatorService(parser SearchParser, log *logger.Logger) *TranslatorService {
	if parser == nil {
		parser = DefaultSearchParser
	}
	return &TranslatorService{parser: parser, log: log.With("service", "TranslatorService")}
}

// Translate asks the model for a structured search answering question.
func (s *TranslatorService) Translate(ctx context.Context, client ChatCompleter, cfg config.LLMConfig, question string) (models.StructuredSearch, error) {
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       cfg.Model,
		Temperature: requestTemperature(cfg.TranslatorTemp),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: TranslationSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	})
	if err != nil {
		return models.StructuredSearch{}, fmt.Errorf("%w: %w", ErrTranslation, err)
	}
	if len(resp.Choices) == 0 {
		return models.StructuredSearch{}, fmt.Errorf("%w: no choices in response", ErrTranslation)
	}

	content := resp.Choices[0].Message.Content
	s.log.Debug("Translator reply", "content", content)

	search, err := s.parser.ParseSearch(content)
	if err != nil {
		return models.StructuredSearch{}, err
	}
	return search, nil
}

// requestTemperature maps 0 to the smallest positive float32: go-openai
// drops a zero temperature from the request, which the API reads as 1.
func requestTemperature(t float32) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}
