// Package stores persists chats and the per-user chat index.
package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrei-assa/fda-gpt/config"
	"github.com/andrei-assa/fda-gpt/logger"
	"github.com/andrei-assa/fda-gpt/models"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatStore holds one record per chat and a per-user index ordered by
// creation time. PutChat and IndexChat are separate writes; callers must
// not assume they are atomic together.
type ChatStore interface {
	// PutChat writes or overwrites the chat record.
	PutChat(ctx context.Context, chat models.Chat) error
	// IndexChat adds or refreshes the user's index entry for the chat.
	IndexChat(ctx context.Context, userID, chatID string, createdAt int64) error
	GetChat(ctx context.Context, id string) (*models.Chat, error)
	// ListChats returns the user's indexed chats, newest first.
	ListChats(ctx context.Context, userID string) ([]models.Chat, error)
	DeleteChat(ctx context.Context, userID, id string) error
	// ScanChats calls fn for every stored chat record.
	ScanChats(ctx context.Context, fn func(models.Chat) error) error
	Close() error
}

// New opens the backend named by cfg.Backend.
func New(ctx context.Context, cfg config.StoreConfig, log *logger.Logger) (ChatStore, error) {
	switch cfg.Backend {
	case "", "redis":
		return NewRedisStore(ctx, cfg.RedisURL, log)
	case "dynamodb":
		return NewDynamoStore(ctx, cfg, log)
	case "postgres":
		return NewPostgresStore(ctx, cfg.PostgresDSN, log)
	default:
		return nil, fmt.Errorf("unknown chat store backend %q", cfg.Backend)
	}
}
