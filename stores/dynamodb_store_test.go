package stores

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrei-assa/fda-gpt/logger"
	"github.com/andrei-assa/fda-gpt/models"
)

// fakeDynamo keeps items per table keyed by their primary key attributes.
type fakeDynamo struct {
	tables  map[string]map[string]map[string]types.AttributeValue
	created []string
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{tables: map[string]map[string]map[string]types.AttributeValue{}}
}

func itemKey(item map[string]types.AttributeValue) string {
	if id := stringAttr(item, "ID"); id != "" {
		return id
	}
	return stringAttr(item, "UserID") + "|" + stringAttr(item, "ChatKey")
}

func (f *fakeDynamo) table(name string) map[string]map[string]types.AttributeValue {
	if f.tables[name] == nil {
		f.tables[name] = map[string]map[string]types.AttributeValue{}
	}
	return f.tables[name]
}

func (f *fakeDynamo) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.created = append(f.created, *in.TableName)
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.table(*in.TableName)[itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.table(*in.TableName)[itemKey(in.Key)]}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	delete(f.table(*in.TableName), itemKey(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	uid := in.ExpressionAttributeValues[":uid"].(*types.AttributeValueMemberS).Value
	var items []map[string]types.AttributeValue
	for _, item := range f.table(*in.TableName) {
		if stringAttr(item, "UserID") == uid {
			items = append(items, item)
		}
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	var items []map[string]types.AttributeValue
	for _, item := range f.table(*in.TableName) {
		items = append(items, item)
	}
	return &dynamodb.ScanOutput{Items: items}, nil
}

func newTestDynamoStore() (*DynamoStore, *fakeDynamo) {
	fake := newFakeDynamo()
	store := NewDynamoStoreFromClient(fake, "Chats", "UserChats", logger.NewNop())
	store.ensureTablesExist(context.Background())
	return store, fake
}

func TestChatItemRoundTrip(t *testing.T) {
	chat := sampleChat("c1", "u1", 1700000000123)
	item, err := chatToItem(chat)
	require.NoError(t, err)
	assert.Equal(t, "1700000000123", item["CreatedAt"].(*types.AttributeValueMemberN).Value)

	got, err := chatFromItem(item)
	require.NoError(t, err)
	assert.Equal(t, chat, *got)
}

func TestChatFromItemBadNumber(t *testing.T) {
	_, err := chatFromItem(map[string]types.AttributeValue{
		"ID":        &types.AttributeValueMemberS{Value: "c1"},
		"CreatedAt": &types.AttributeValueMemberN{Value: "soon"},
	})
	assert.Error(t, err)
}

func TestDynamoStoreLifecycle(t *testing.T) {
	store, fake := newTestDynamoStore()
	ctx := context.Background()
	assert.Equal(t, []string{"Chats", "UserChats"}, fake.created)

	for _, c := range []models.Chat{sampleChat("a", "u1", 100), sampleChat("b", "u1", 300), sampleChat("c", "u2", 200)} {
		require.NoError(t, store.PutChat(ctx, c))
		require.NoError(t, store.IndexChat(ctx, c.UserID, c.ID, c.CreatedAt))
	}

	// Same id again: overwritten, still one index entry.
	again := sampleChat("a", "u1", 400)
	require.NoError(t, store.PutChat(ctx, again))
	require.NoError(t, store.IndexChat(ctx, "u1", "a", 400))
	assert.Len(t, fake.tables["Chats"], 3)
	assert.Len(t, fake.tables["UserChats"], 3)

	chats, err := store.ListChats(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "a", chats[0].ID)
	assert.Equal(t, "b", chats[1].ID)

	require.NoError(t, store.DeleteChat(ctx, "u1", "a"))
	_, err = store.GetChat(ctx, "a")
	assert.True(t, errors.Is(err, ErrChatNotFound))
	assert.Len(t, fake.tables["UserChats"], 2)

	var scanned []string
	require.NoError(t, store.ScanChats(ctx, func(c models.Chat) error {
		scanned = append(scanned, c.ID)
		return nil
	}))
	assert.ElementsMatch(t, []string{"b", "c"}, scanned)
}
