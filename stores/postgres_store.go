package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/andrei-assa/fda-gpt/logger"
	"github.com/andrei-assa/fda-gpt/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS chats (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    title      TEXT NOT NULL,
    path       TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    messages   JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS user_chats (
    user_id  TEXT NOT NULL,
    chat_key TEXT NOT NULL,
    chat_id  TEXT NOT NULL,
    score    BIGINT NOT NULL,
    PRIMARY KEY (user_id, chat_key)
);
`

// PostgresStore mirrors the redis layout in two tables: chats holds the
// records and user_chats the per-user index.
type PostgresStore struct {
	db  *sql.DB
	log *logger.Logger
}

func NewPostgresStore(ctx context.Context, postgresURI string, log *logger.Logger) (*PostgresStore, error) {
	connStr := postgresURI
	if !strings.Contains(postgresURI, "sslmode=") {
		if strings.Contains(postgresURI, "?") {
			connStr += "&sslmode=disable"
		} else if strings.Contains(postgresURI, "://") {
			connStr += "?sslmode=disable"
		} else {
			connStr += " sslmode=disable"
		}
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := NewPostgresStoreFromDB(db, log)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func NewPostgresStoreFromDB(db *sql.DB, log *logger.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log.With("store", "PostgresStore")}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) PutChat(ctx context.Context, chat models.Chat) error {
	msgs, err := json.Marshal(chat.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	query := `
        INSERT INTO chats (id, user_id, title, path, created_at, messages)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id)
        DO UPDATE SET
            user_id = EXCLUDED.user_id,
            title = EXCLUDED.title,
            path = EXCLUDED.path,
            created_at = EXCLUDED.created_at,
            messages = EXCLUDED.messages
    `
	if _, err := s.db.ExecContext(ctx, query, chat.ID, chat.UserID, chat.Title, chat.Path, chat.CreatedAt, string(msgs)); err != nil {
		return fmt.Errorf("failed to save chat %s: %w", chat.ID, err)
	}
	return nil
}

func (s *PostgresStore) IndexChat(ctx context.Context, userID, chatID string, createdAt int64) error {
	query := `
        INSERT INTO user_chats (user_id, chat_key, chat_id, score)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id, chat_key)
        DO UPDATE SET score = EXCLUDED.score
    `
	if _, err := s.db.ExecContext(ctx, query, userID, models.ChatKey(chatID), chatID, createdAt); err != nil {
		return fmt.Errorf("failed to index chat %s: %w", chatID, err)
	}
	return nil
}

const chatColumns = `c.id, c.user_id, c.title, c.path, c.created_at, c.messages`

func (s *PostgresStore) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+chatColumns+` FROM chats c WHERE c.id = $1`, id)
	chat, err := scanChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	}
	return chat, err
}

func (s *PostgresStore) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+chatColumns+`
        FROM user_chats u
        JOIN chats c ON c.id = u.chat_id
        WHERE u.user_id = $1
        ORDER BY u.score DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats failed: %w", err)
	}
	defer rows.Close()

	chats := []models.Chat{}
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *chat)
	}
	return chats, rows.Err()
}

func (s *PostgresStore) DeleteChat(ctx context.Context, userID, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete chat %s: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_chats WHERE user_id = $1 AND chat_key = $2`, userID, models.ChatKey(id)); err != nil {
		return fmt.Errorf("failed to delete index for %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) ScanChats(ctx context.Context, fn func(models.Chat) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT `+chatColumns+` FROM chats c ORDER BY c.created_at`)
	if err != nil {
		return fmt.Errorf("scan chats failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return err
		}
		if err := fn(*chat); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(row rowScanner) (*models.Chat, error) {
	var chat models.Chat
	var msgs []byte
	if err := row.Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.Path, &chat.CreatedAt, &msgs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("row scan failed: %w", err)
	}
	if len(msgs) > 0 {
		if err := json.Unmarshal(msgs, &chat.Messages); err != nil {
			return nil, fmt.Errorf("chat %s: bad messages: %w", chat.ID, err)
		}
	}
	return &chat, nil
}
