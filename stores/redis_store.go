package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andrei-assa/fda-gpt/logger"
	"github.com/andrei-assa/fda-gpt/models"
)

// RedisStore keeps each chat in a hash at chat:<id> and the user index in a
// sorted set at user:chat:<userId> scored by creation time.
type RedisStore struct {
	rdb *redis.Client
	log *logger.Logger
}

func NewRedisStore(ctx context.Context, redisURL string, log *logger.Logger) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn("Failed to parse Redis URL, using it as an address", "error", err)
		opt = &redis.Options{Addr: redisURL}
	}
	opt.DialTimeout = 5 * time.Second
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreFromClient(rdb, log), nil
}

func NewRedisStoreFromClient(rdb *redis.Client, log *logger.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, log: log.With("store", "RedisStore")}
}

func userIndexKey(userID string) string {
	return "user:chat:" + userID
}

func (s *RedisStore) PutChat(ctx context.Context, chat models.Chat) error {
	msgs, err := json.Marshal(chat.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	err = s.rdb.HSet(ctx, models.ChatKey(chat.ID), map[string]interface{}{
		"id":        chat.ID,
		"title":     chat.Title,
		"userId":    chat.UserID,
		"createdAt": chat.CreatedAt,
		"path":      chat.Path,
		"messages":  string(msgs),
	}).Err()
	if err != nil {
		return fmt.Errorf("redis hset %s: %w", chat.ID, err)
	}
	return nil
}

func (s *RedisStore) IndexChat(ctx context.Context, userID, chatID string, createdAt int64) error {
	err := s.rdb.ZAdd(ctx, userIndexKey(userID), redis.Z{
		Score:  float64(createdAt),
		Member: models.ChatKey(chatID),
	}).Err()
	if err != nil {
		return fmt.Errorf("redis zadd %s: %w", chatID, err)
	}
	return nil
}

func (s *RedisStore) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	fields, err := s.rdb.HGetAll(ctx, models.ChatKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrChatNotFound
	}
	return chatFromHash(fields)
}

func (s *RedisStore) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	keys, err := s.rdb.ZRevRange(ctx, userIndexKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange: %w", err)
	}
	if len(keys) == 0 {
		return []models.Chat{}, nil
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(keys))
	for _, key := range keys {
		cmds = append(cmds, pipe.HGetAll(ctx, key))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis pipeline: %w", err)
	}

	chats := make([]models.Chat, 0, len(keys))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			s.log.Warn("Index entry without chat record", "key", keys[i], "user_id", userID)
			continue
		}
		chat, err := chatFromHash(fields)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *chat)
	}
	return chats, nil
}

func (s *RedisStore) DeleteChat(ctx context.Context, userID, id string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, models.ChatKey(id))
		pipe.ZRem(ctx, userIndexKey(userID), models.ChatKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) ScanChats(ctx context.Context, fn func(models.Chat) error) error {
	iter := s.rdb.Scan(ctx, 0, "chat:*", 100).Iterator()
	for iter.Next(ctx) {
		fields, err := s.rdb.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return fmt.Errorf("redis hgetall %s: %w", iter.Val(), err)
		}
		if len(fields) == 0 {
			continue
		}
		chat, err := chatFromHash(fields)
		if err != nil {
			s.log.Warn("Skipping unreadable chat record", "key", iter.Val(), "error", err)
			continue
		}
		if err := fn(*chat); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func chatFromHash(fields map[string]string) (*models.Chat, error) {
	chat := &models.Chat{
		ID:     fields["id"],
		Title:  fields["title"],
		UserID: fields["userId"],
		Path:   fields["path"],
	}
	if raw := fields["createdAt"]; raw != "" {
		createdAt, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("chat %s: bad createdAt %q: %w", chat.ID, raw, err)
		}
		chat.CreatedAt = createdAt
	}
	if raw := fields["messages"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &chat.Messages); err != nil {
			return nil, fmt.Errorf("chat %s: bad messages: %w", chat.ID, err)
		}
	}
	return chat, nil
}
