package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrei-assa/fda-gpt/logger"
	"github.com/andrei-assa/fda-gpt/models"
)

func TestBuildAnswerMessages(t *testing.T) {
	conversation := []models.Message{
		{Role: models.RoleUser, Content: "Tell me about Xarelto."},
		{Role: models.RoleAssistant, Content: "Xarelto is an anticoagulant."},
		{Role: models.RoleUser, Content: "What are its warnings?"},
	}
	original := append([]models.Message(nil), conversation...)

	got := BuildAnswerMessages(conversation, `[{"warnings":["Bleeding risk."]}]`)

	require.Len(t, got, 5)
	assert.Equal(t, conversation[:2], got[:2])
	assert.Equal(t, models.Message{Role: models.RoleSystem, Content: SummarizeSystemPrompt}, got[2])
	assert.Equal(t, models.Message{Role: models.RoleUser, Content: `[{"warnings":["Bleeding risk."]}]`}, got[3])
	assert.Equal(t, models.Message{Role: models.RoleUser, Content: "Question:\nWhat are its warnings?"}, got[4])
	assert.Equal(t, original, conversation)
}

func TestBuildAnswerMessagesSingle(t *testing.T) {
	got := BuildAnswerMessages([]models.Message{{Role: models.RoleUser, Content: "q"}}, "ctx")
	require.Len(t, got, 3)
	assert.Equal(t, models.RoleSystem, got[0].Role)
	assert.Equal(t, "Question:\nq", got[2].Content)

	assert.Nil(t, BuildAnswerMessages(nil, "ctx"))
}

func TestAnswerStream(t *testing.T) {
	fake := newFakeOpenAI(t)
	fake.chunks = []string{"Summary", ": bleeding", " risk."}

	cfg := fake.llmConfig()
	client, err := NewOpenAIClient(cfg)
	require.NoError(t, err)

	answers := NewAnswerService(logger.NewNop())
	stream, err := answers.Open(context.Background(), client, cfg, []models.Message{{Role: models.RoleUser, Content: "q"}})
	require.NoError(t, err)

	var deltas []string
	completion, err := answers.Relay(stream, func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Summary", ": bleeding", " risk."}, deltas)
	assert.Equal(t, "Summary: bleeding risk.", completion)

	reqs := fake.recorded()
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].Stream)
	assert.Equal(t, 6400, reqs[0].MaxTokens)
	assert.InDelta(t, 0.7, reqs[0].Temperature, 1e-6)
}

func TestAnswerStreamOpenError(t *testing.T) {
	fake := newFakeOpenAI(t)
	fake.streamStatus = http.StatusTooManyRequests

	cfg := fake.llmConfig()
	client, err := NewOpenAIClient(cfg)
	require.NoError(t, err)

	stream, err := NewAnswerService(logger.NewNop()).Open(context.Background(), client, cfg,
		[]models.Message{{Role: models.RoleUser, Content: "q"}})
	assert.True(t, errors.Is(err, ErrCompletion))
	assert.Nil(t, stream)
}

func TestAnswerRelayStopsOnWriteError(t *testing.T) {
	fake := newFakeOpenAI(t)
	fake.chunks = []string{"a", "b", "c"}

	cfg := fake.llmConfig()
	client, err := NewOpenAIClient(cfg)
	require.NoError(t, err)

	answers := NewAnswerService(logger.NewNop())
	stream, err := answers.Open(context.Background(), client, cfg, []models.Message{{Role: models.RoleUser, Content: "q"}})
	require.NoError(t, err)

	gone := errors.New("client gone")
	n := 0
	completion, err := answers.Relay(stream, func(string) error {
		n++
		if n == 2 {
			return gone
		}
		return nil
	})
	assert.True(t, errors.Is(err, gone))
	assert.Equal(t, "ab", completion)
}
