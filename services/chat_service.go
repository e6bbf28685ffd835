package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/andrei-assa/fda-gpt/config"
	"github.com/andrei-assa/fda-gpt/logger"
	"github.com/andrei-assa/fda-gpt/metrics"
	"github.com/andrei-assa/fda-gpt/models"
	"github.com/andrei-assa/fda-gpt/stores"
)

var (
	ErrEmptyConversation = errors.New("messages must not be empty")
	ErrChatForbidden     = errors.New("chat belongs to another user")
)

// RecordFetcher returns the context text for a structured search.
type RecordFetcher interface {
	Search(ctx context.Context, search models.StructuredSearch) (string, error)
}

type ChatRequest struct {
	UserID       string
	Messages     []models.Message
	PreviewToken string
	ID           string
}

// PreparedChat is a request whose answer stream is open and ready to relay.
type PreparedChat struct {
	req      ChatRequest
	search   models.StructuredSearch
	messages []models.Message
	stream   *openai.ChatCompletionStream
}

type ChatServiceDeps struct {
	LLM        config.LLMConfig
	Clients    ClientFactory
	Translator *TranslatorService
	Fetcher    RecordFetcher
	Answer     *AnswerService
	Store      stores.ChatStore
	Log        *logger.Logger
	Metrics    *metrics.Metrics
	Clock      Clock
	NewID      func() string
}

type ChatService struct {
	llm        config.LLMConfig
	clients    ClientFactory
	translator *TranslatorService
	fetcher    RecordFetcher
	answer     *AnswerService
	store      stores.ChatStore
	log        *logger.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	clock      Clock
	newID      func() string
}

func NewChatService(deps ChatServiceDeps) *ChatService {
	s := &ChatService{
		llm:        deps.LLM,
		clients:    deps.Clients,
		translator: deps.Translator,
		fetcher:    deps.Fetcher,
		answer:     deps.Answer,
		store:      deps.Store,
		log:        deps.Log.With("service", "ChatService"),
		metrics:    deps.Metrics,
		tracer:     otel.Tracer("github.com/andrei-assa/fda-gpt/services"),
		clock:      deps.Clock,
		newID:      deps.NewID,
	}
	if s.clients == nil {
		s.clients = NewOpenAIClient
	}
	if s.translator == nil {
		s.translator = NewTranslatorService(nil, deps.Log)
	}
	if s.answer == nil {
		s.answer = NewAnswerService(deps.Log)
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// stage runs fn inside a span and records its duration and outcome.
func (s *ChatService) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "chat."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	s.metrics.RecordStage(name, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Error("Chat stage failed", "stage", name, "error", err)
	}
	return err
}

// Prepare runs everything up to and including opening the answer stream.
// Any error it returns happens before a byte reaches the client.
func (s *ChatService) Prepare(ctx context.Context, req ChatRequest) (*PreparedChat, error) {
	if len(req.Messages) == 0 {
		return nil, ErrEmptyConversation
	}

	if req.ID != "" {
		existing, err := s.store.GetChat(ctx, req.ID)
		switch {
		case err == nil && existing.UserID != req.UserID:
			return nil, ErrChatForbidden
		case err != nil && !errors.Is(err, stores.ErrChatNotFound):
			return nil, err
		}
	}

	cfg := s.llm.ForRequest(req.PreviewToken)
	client, err := s.clients(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranslation, err)
	}

	question := req.Messages[len(req.Messages)-1].Content
	prepared := &PreparedChat{req: req}

	err = s.stage(ctx, metrics.StageTranslate, func(ctx context.Context) error {
		search, err := s.translator.Translate(ctx, client, cfg, question)
		if err != nil {
			return err
		}
		prepared.search = search
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.Int("fda.constraints", len(search.Constraints)),
			attribute.Int("fda.fields", len(search.Fields)),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var fdaContext string
	err = s.stage(ctx, metrics.StageFetch, func(ctx context.Context) error {
		var err error
		fdaContext, err = s.fetcher.Search(ctx, prepared.search)
		return err
	})
	if err != nil {
		return nil, err
	}

	_ = s.stage(ctx, metrics.StageTruncate, func(ctx context.Context) error {
		var truncated bool
		fdaContext, truncated = TruncateContext(fdaContext, cfg.ContextBudget())
		if truncated {
			s.metrics.RecordTruncation()
			s.log.Debug("Context truncated", "budget", cfg.ContextBudget())
		}
		return nil
	})

	prepared.messages = BuildAnswerMessages(req.Messages, fdaContext)

	err = s.stage(ctx, metrics.StageStream, func(ctx context.Context) error {
		stream, err := s.answer.Open(ctx, client, cfg, prepared.messages)
		if err != nil {
			return err
		}
		prepared.stream = stream
		return nil
	})
	if err != nil {
		return nil, err
	}

	return prepared, nil
}

// Relay streams the answer to onDelta and returns the full completion.
func (s *ChatService) Relay(prepared *PreparedChat, onDelta func(string) error) (string, error) {
	completion, err := s.answer.Relay(prepared.stream, onDelta)
	if err != nil {
		s.log.Warn("Answer stream ended early", "user_id", prepared.req.UserID, "error", err)
	}
	return completion, err
}

// Persist stores the finished turn: one chat record, then its index entry.
// It ignores ctx cancellation so a client hanging up after the last token
// still gets its chat saved.
func (s *ChatService) Persist(ctx context.Context, prepared *PreparedChat, completion string) (*models.Chat, error) {
	ctx = context.WithoutCancel(ctx)

	id := prepared.req.ID
	if id == "" {
		id = s.newID()
	}

	messages := make([]models.Message, 0, len(prepared.messages)+1)
	messages = append(messages, prepared.messages...)
	messages = append(messages, models.Message{Role: models.RoleAssistant, Content: completion})

	chat := models.Chat{
		ID:        id,
		Title:     models.ChatTitle(prepared.req.Messages[0].Content),
		UserID:    prepared.req.UserID,
		CreatedAt: s.clock.GetCurrentTimestamp(),
		Path:      models.ChatPath(id),
		Messages:  messages,
	}

	err := s.stage(ctx, metrics.StagePersist, func(ctx context.Context) error {
		if err := s.store.PutChat(ctx, chat); err != nil {
			return err
		}
		return s.store.IndexChat(ctx, chat.UserID, chat.ID, chat.CreatedAt)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPersisted()
	s.log.Info("Chat saved", "chat_id", chat.ID, "user_id", chat.UserID, "messages", len(chat.Messages))
	return &chat, nil
}

// ListChats returns the user's chats, newest first.
func (s *ChatService) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	return s.store.ListChats(ctx, userID)
}

// GetChat returns one of the user's chats. Chats owned by someone else are
// reported as not found.
func (s *ChatService) GetChat(ctx context.Context, userID, id string) (*models.Chat, error) {
	chat, err := s.store.GetChat(ctx, id)
	if err != nil {
		return nil, err
	}
	if chat.UserID != userID {
		return nil, stores.ErrChatNotFound
	}
	return chat, nil
}

func (s *ChatService) DeleteChat(ctx context.Context, userID, id string) error {
	if _, err := s.GetChat(ctx, userID, id); err != nil {
		return err
	}
	return s.store.DeleteChat(ctx, userID, id)
}
