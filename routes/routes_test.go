package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/andrei-assa/fda-gpt/config"
	"github.com/andrei-assa/fda-gpt/controllers"
	"github.com/andrei-assa/fda-gpt/logger"
	"github.com/andrei-assa/fda-gpt/metrics"
	"github.com/andrei-assa/fda-gpt/middlewares"
	"github.com/andrei-assa/fda-gpt/services"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	cfg := &config.Config{
		App:       config.AppConfig{CorsAllowedOrigins: []string{"http://localhost:3000"}},
		Telemetry: config.TelemetryConfig{ServiceName: "fda-gpt-test"},
	}
	chats := services.NewChatService(services.ChatServiceDeps{Log: log})
	return SetupRouter(RouterDeps{
		Config:  cfg,
		Log:     log,
		Metrics: metrics.NewMetrics(),
		Auth:    middlewares.NewAuthMiddleware("secret", log),
		Chat:    controllers.NewChatController(chats, log),
	})
}

func TestHealthz(t *testing.T) {
	r := newTestRouter()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `fdagpt_http_requests_total{method="GET",path="/healthz",status="200"} 1`)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	r := newTestRouter()
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/chat"},
		{http.MethodGet, "/api/chats"},
		{http.MethodGet, "/api/chats/abc"},
		{http.MethodDelete, "/api/chats/abc"},
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)
		assert.Equal(t, "Unauthorized", rec.Body.String(), tc.path)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/examples", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
