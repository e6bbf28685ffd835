package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/andrei-assa/fda-gpt/config"
	"github.com/andrei-assa/fda-gpt/controllers"
	"github.com/andrei-assa/fda-gpt/logger"
	"github.com/andrei-assa/fda-gpt/metrics"
	"github.com/andrei-assa/fda-gpt/middlewares"
)

type RouterDeps struct {
	Config  *config.Config
	Log     *logger.Logger
	Metrics *metrics.Metrics
	Auth    *middlewares.AuthMiddleware
	Chat    *controllers.ChatController
}

func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(otelgin.Middleware(deps.Config.Telemetry.ServiceName))
	r.Use(gin.Recovery())
	r.Use(middlewares.CORS(deps.Config.App.CorsAllowedOrigins))
	r.Use(middlewares.Logger(deps.Log))
	r.Use(middlewares.Metrics(deps.Metrics))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := r.Group("/api")
	api.GET("/examples", controllers.GetExamples)

	authed := api.Group("")
	authed.Use(deps.Auth.RequireAuth())
	{
		// Send a message; the reply is streamed back.
		authed.POST("/chat", deps.Chat.HandleChat)

		// Past chats
		authed.GET("/chats", deps.Chat.GetChats)
		authed.GET("/chats/:id", deps.Chat.GetChat)
		authed.DELETE("/chats/:id", deps.Chat.DeleteChat)
	}

	return r
}
