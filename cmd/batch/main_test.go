package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrei-assa/fda-gpt/logger"
	"github.com/andrei-assa/fda-gpt/metrics"
	"github.com/andrei-assa/fda-gpt/models"
	"github.com/andrei-assa/fda-gpt/services"
	"github.com/andrei-assa/fda-gpt/stores"
)

func TestMetricsServerExposesIndexRepairs(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := stores.NewRedisStoreFromClient(rdb, logger.NewNop())

	ctx := context.Background()
	require.NoError(t, store.PutChat(ctx, models.Chat{
		ID: "a", Title: "a", UserID: "user-1", CreatedAt: 1, Path: models.ChatPath("a"),
	}))

	m := metrics.NewMetrics()
	n, err := services.NewBatchProcessor(store, logger.NewNop(), m).ProcessChats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	srv := newMetricsServer(":0", m)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fdagpt_index_repairs_total 1")
}
