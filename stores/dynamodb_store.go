package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/andrei-assa/fda-gpt/config"
	"github.com/andrei-assa/fda-gpt/logger"
	"github.com/andrei-assa/fda-gpt/models"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore keeps chats in one table keyed by ID and the user index in a
// second table keyed by (UserID, ChatKey).
type DynamoStore struct {
	db             DynamoAPI
	chatsTable     string
	userChatsTable string
	log            *logger.Logger
}

func NewDynamoStore(ctx context.Context, cfg config.StoreConfig, log *logger.Logger) (*DynamoStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.DynamoRegion),
	}
	if cfg.DynamoEndpoint != "" {
		endpoint := cfg.DynamoEndpoint
		customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: endpoint}, nil
		})
		opts = append(opts,
			awsconfig.WithEndpointResolverWithOptions(customResolver),
			awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
				Value: aws.Credentials{
					AccessKeyID: "dummy", SecretAccessKey: "dummy", SessionToken: "dummy",
				},
			}),
		)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	store := NewDynamoStoreFromClient(dynamodb.NewFromConfig(awsCfg), cfg.ChatsTable, cfg.UserChatsTable, log)
	store.ensureTablesExist(ctx)
	return store, nil
}

func NewDynamoStoreFromClient(db DynamoAPI, chatsTable, userChatsTable string, log *logger.Logger) *DynamoStore {
	return &DynamoStore{
		db:             db,
		chatsTable:     chatsTable,
		userChatsTable: userChatsTable,
		log:            log.With("store", "DynamoStore"),
	}
}

func (s *DynamoStore) ensureTablesExist(ctx context.Context) {
	_, err := s.db.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.chatsTable),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("ID"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("ID"), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		s.log.Debug("Table might already exist", "table", s.chatsTable, "error", err)
	}

	_, err = s.db.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.userChatsTable),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("UserID"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("ChatKey"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("UserID"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("ChatKey"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		s.log.Debug("Table might already exist", "table", s.userChatsTable, "error", err)
	}
}

func (s *DynamoStore) PutChat(ctx context.Context, chat models.Chat) error {
	item, err := chatToItem(chat)
	if err != nil {
		return err
	}
	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.chatsTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put chat %s: %w", chat.ID, err)
	}
	return nil
}

func (s *DynamoStore) IndexChat(ctx context.Context, userID, chatID string, createdAt int64) error {
	_, err := s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.userChatsTable),
		Item: map[string]types.AttributeValue{
			"UserID":    &types.AttributeValueMemberS{Value: userID},
			"ChatKey":   &types.AttributeValueMemberS{Value: models.ChatKey(chatID)},
			"ChatID":    &types.AttributeValueMemberS{Value: chatID},
			"CreatedAt": &types.AttributeValueMemberN{Value: strconv.FormatInt(createdAt, 10)},
		},
	})
	if err != nil {
		return fmt.Errorf("dynamodb index chat %s: %w", chatID, err)
	}
	return nil
}

func (s *DynamoStore) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.chatsTable),
		Key: map[string]types.AttributeValue{
			"ID": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get chat %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrChatNotFound
	}
	return chatFromItem(out.Item)
}

type indexEntry struct {
	chatID    string
	createdAt int64
}

func (s *DynamoStore) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	var entries []indexEntry
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.db.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.userChatsTable),
			KeyConditionExpression: aws.String("UserID = :uid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: userID},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("dynamodb query index: %w", err)
		}
		for _, item := range out.Items {
			createdAt, _ := numberAttr(item, "CreatedAt")
			entries = append(entries, indexEntry{chatID: stringAttr(item, "ChatID"), createdAt: createdAt})
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].createdAt > entries[j].createdAt })

	chats := make([]models.Chat, 0, len(entries))
	for _, e := range entries {
		chat, err := s.GetChat(ctx, e.chatID)
		if errors.Is(err, ErrChatNotFound) {
			s.log.Warn("Index entry without chat record", "chat_id", e.chatID, "user_id", userID)
			continue
		}
		if err != nil {
			return nil, err
		}
		chats = append(chats, *chat)
	}
	return chats, nil
}

func (s *DynamoStore) DeleteChat(ctx context.Context, userID, id string) error {
	_, err := s.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.chatsTable),
		Key: map[string]types.AttributeValue{
			"ID": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("dynamodb delete chat %s: %w", id, err)
	}
	_, err = s.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.userChatsTable),
		Key: map[string]types.AttributeValue{
			"UserID":  &types.AttributeValueMemberS{Value: userID},
			"ChatKey": &types.AttributeValueMemberS{Value: models.ChatKey(id)},
		},
	})
	if err != nil {
		return fmt.Errorf("dynamodb delete index %s: %w", id, err)
	}
	return nil
}

func (s *DynamoStore) ScanChats(ctx context.Context, fn func(models.Chat) error) error {
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.db.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.chatsTable),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return fmt.Errorf("dynamodb scan: %w", err)
		}
		for _, item := range out.Items {
			chat, err := chatFromItem(item)
			if err != nil {
				s.log.Warn("Skipping unreadable chat record", "error", err)
				continue
			}
			if err := fn(*chat); err != nil {
				return err
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (s *DynamoStore) Close() error { return nil }

func chatToItem(chat models.Chat) (map[string]types.AttributeValue, error) {
	msgs, err := json.Marshal(chat.Messages)
	if err != nil {
		return nil, fmt.Errorf("encode messages: %w", err)
	}
	return map[string]types.AttributeValue{
		"ID":        &types.AttributeValueMemberS{Value: chat.ID},
		"Title":     &types.AttributeValueMemberS{Value: chat.Title},
		"UserID":    &types.AttributeValueMemberS{Value: chat.UserID},
		"CreatedAt": &types.AttributeValueMemberN{Value: strconv.FormatInt(chat.CreatedAt, 10)},
		"Path":      &types.AttributeValueMemberS{Value: chat.Path},
		"Messages":  &types.AttributeValueMemberS{Value: string(msgs)},
	}, nil
}

func chatFromItem(item map[string]types.AttributeValue) (*models.Chat, error) {
	createdAt, err := numberAttr(item, "CreatedAt")
	if err != nil {
		return nil, err
	}
	chat := &models.Chat{
		ID:        stringAttr(item, "ID"),
		Title:     stringAttr(item, "Title"),
		UserID:    stringAttr(item, "UserID"),
		CreatedAt: createdAt,
		Path:      stringAttr(item, "Path"),
	}
	if raw := stringAttr(item, "Messages"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &chat.Messages); err != nil {
			return nil, fmt.Errorf("chat %s: bad messages: %w", chat.ID, err)
		}
	}
	return chat, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func numberAttr(item map[string]types.AttributeValue, name string) (int64, error) {
	v, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(v.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("attribute %s: %w", name, err)
	}
	return n, nil
}
