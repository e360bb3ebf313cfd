package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hatch/messaging/internal/models"
	"github.com/hatch/messaging/services/messaging-service/internal/message"
	svcmodels "github.com/hatch/messaging/services/messaging-service/internal/models"
)

// Store is the persistence surface the handlers need.
type Store interface {
	InsertMessage(ctx context.Context, m *svcmodels.Message) error
	ListConversationMessages(ctx context.Context, conversationID int64) ([]svcmodels.Message, error)
}

// Publisher enqueues dispatch jobs for outbound messages.
type Publisher interface {
	Publish(ctx context.Context, job models.DispatchJob) error
}

// Handler carries the collaborators behind the HTTP surface.
type Handler struct {
	builder   *message.Builder
	store     Store
	publisher Publisher
}

func NewHandler(builder *message.Builder, store Store, publisher Publisher) *Handler {
	return &Handler{builder: builder, store: store, publisher: publisher}
}

// Router builds the gin engine with all routes registered.
func Router(h *Handler) *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/messages/inbound", h.InboundMessage)
		api.POST("/messages/outbound", h.OutboundMessage)
		api.GET("/conversations/:id/messages", h.ConversationMessages)
	}

	return r
}
