package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andrei-assa/fda-gpt/apierr"
	"github.com/andrei-assa/fda-gpt/logger"
	"github.com/andrei-assa/fda-gpt/middlewares"
	"github.com/andrei-assa/fda-gpt/models"
	"github.com/andrei-assa/fda-gpt/services"
	"github.com/andrei-assa/fda-gpt/stores"
)

type ChatController struct {
	chats *services.ChatService
	log   *logger.Logger
}

func NewChatController(chats *services.ChatService, log *logger.Logger) *ChatController {
	return &ChatController{chats: chats, log: log.With("controller", "ChatController")}
}

type chatRequest struct {
	Messages     []models.Message `json:"messages" binding:"dive"`
	PreviewToken string           `json:"previewToken"`
	ID           string           `json:"id"`
}

// HandleChat answers the last message of the conversation, streaming the
// reply as plain text, then saves the chat.
func (cc *ChatController) HandleChat(c *gin.Context) {
	userID := middlewares.UserID(c)
	if userID == "" {
		unauthorized(c)
		return
	}

	var request chatRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondError(c, apierr.BadRequest(err))
		return
	}
	// An empty conversation is refused like a missing user.
	if len(request.Messages) == 0 {
		unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	prepared, err := cc.chats.Prepare(ctx, services.ChatRequest{
		UserID:       userID,
		Messages:     request.Messages,
		PreviewToken: request.PreviewToken,
		ID:           request.ID,
	})
	if errors.Is(err, services.ErrEmptyConversation) {
		unauthorized(c)
		return
	}
	if err != nil {
		cc.log.Error("Error preparing chat", "user_id", userID, "error", err)
		respondError(c, toAPIError(err))
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()

	completion, err := cc.chats.Relay(prepared, func(delta string) error {
		if _, err := c.Writer.WriteString(delta); err != nil {
			return err
		}
		c.Writer.Flush()
		return ctx.Err()
	})
	if err != nil {
		return
	}

	if _, err := cc.chats.Persist(ctx, prepared, completion); err != nil {
		cc.log.Error("Error saving chat", "user_id", userID, "error", err)
	}
}

func (cc *ChatController) GetChats(c *gin.Context) {
	chats, err := cc.chats.ListChats(c.Request.Context(), middlewares.UserID(c))
	if err != nil {
		cc.log.Error("Error listing chats", "error", err)
		respondError(c, apierr.Upstream(apierr.CodeInternal, errors.New("failed to fetch chats")))
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

func (cc *ChatController) GetChat(c *gin.Context) {
	chat, err := cc.chats.GetChat(c.Request.Context(), middlewares.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, toAPIError(err))
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (cc *ChatController) DeleteChat(c *gin.Context) {
	if err := cc.chats.DeleteChat(c.Request.Context(), middlewares.UserID(c), c.Param("id")); err != nil {
		respondError(c, toAPIError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chat deleted successfully"})
}

func GetExamples(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"examples": services.ExampleQuestions})
}

// toAPIError maps a service error to its response. Server-side failures
// carry only the sentinel message; the detail goes to the log.
func toAPIError(err error) *apierr.Error {
	var apiErr *apierr.Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, services.ErrChatForbidden):
		return apierr.Forbidden(services.ErrChatForbidden)
	case errors.Is(err, stores.ErrChatNotFound):
		return apierr.NotFound(stores.ErrChatNotFound)
	case errors.Is(err, models.ErrInvalidSearch):
		return apierr.Upstream(apierr.CodeInvalidSearch, models.ErrInvalidSearch)
	case errors.Is(err, services.ErrTranslation):
		return apierr.Upstream(apierr.CodeTranslationFailed, services.ErrTranslation)
	case errors.Is(err, services.ErrFDARequest):
		return apierr.Upstream(apierr.CodeFDARequestFailed, services.ErrFDARequest)
	case errors.Is(err, services.ErrCompletion):
		return apierr.Upstream(apierr.CodeCompletionFailed, services.ErrCompletion)
	default:
		return apierr.Upstream(apierr.CodeInternal, errors.New("internal server error"))
	}
}

func unauthorized(c *gin.Context) {
	c.String(http.StatusUnauthorized, "Unauthorized")
	c.Abort()
}

func respondError(c *gin.Context, err *apierr.Error) {
	c.AbortWithStatusJSON(err.Status, gin.H{
		"error": gin.H{"message": err.Error(), "code": err.Code},
	})
}
