package services

import (
	"context"
	"fmt"

	"github.com/andrei-assa/fda-gpt/logger"
	"github.com/andrei-assa/fda-gpt/metrics"
	"github.com/andrei-assa/fda-gpt/models"
	"github.com/andrei-assa/fda-gpt/stores"
)

// BatchProcessor restores per-user index entries. A chat record is written
// before its index entry, so a failure between the two leaves a chat that
// ListChats cannot see until this runs.
type BatchProcessor struct {
	store   stores.ChatStore
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewBatchProcessor(store stores.ChatStore, log *logger.Logger, m *metrics.Metrics) *BatchProcessor {
	return &BatchProcessor{
		store:   store,
		log:     log.With("service", "BatchProcessor"),
		metrics: m,
	}
}

// ProcessChats re-indexes every stored chat and returns how many entries it
// wrote. Re-indexing an indexed chat is a no-op, so runs are idempotent.
// A failure on one chat is logged and the scan moves on.
func (bp *BatchProcessor) ProcessChats(ctx context.Context) (int, error) {
	indexed := 0
	failed := 0

	err := bp.store.ScanChats(ctx, func(chat models.Chat) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if chat.UserID == "" {
			bp.log.Warn("Chat without owner skipped", "chat_id", chat.ID)
			return nil
		}
		if err := bp.store.IndexChat(ctx, chat.UserID, chat.ID, chat.CreatedAt); err != nil {
			bp.log.Error("Error indexing chat", "chat_id", chat.ID, "user_id", chat.UserID, "error", err)
			failed++
			return nil
		}
		bp.metrics.RecordIndexRepair()
		indexed++
		return nil
	})
	if err != nil {
		return indexed, fmt.Errorf("failed to scan chats: %w", err)
	}

	bp.log.Info("Index repair finished", "indexed", indexed, "failed", failed)
	return indexed, nil
}
