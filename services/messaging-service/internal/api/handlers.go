package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hatch/messaging/internal/models"
	"github.com/hatch/messaging/services/messaging-service/internal/dispatch"
	"github.com/hatch/messaging/services/messaging-service/internal/message"
	svcmodels "github.com/hatch/messaging/services/messaging-service/internal/models"
	"github.com/hatch/messaging/services/messaging-service/internal/store"
)

// InboundMessage ingests a provider delivery. The message type may be
// omitted and inferred from the correlation id; a redelivery with a known
// provider id is acknowledged as already existing.
func (h *Handler) InboundMessage(c *gin.Context) {
	var req models.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid JSON body"})
		return
	}

	rec, err := h.builder.Build(c.Request.Context(), req, message.ModeInferred)
	if err != nil {
		respondBuildError(c, err)
		return
	}

	if err := h.store.InsertMessage(c.Request.Context(), rec); err != nil {
		if errors.Is(err, store.ErrDuplicateMessage) {
			c.JSON(http.StatusOK, gin.H{"detail": "Message already exists."})
			return
		}
		log.Printf("failed to store inbound message: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to store message"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "received"})
}

// OutboundMessage accepts a send request, persists the canonical record, and
// enqueues exactly one dispatch job for the routed provider. Delivery runs
// asynchronously; provider failures never surface here.
func (h *Handler) OutboundMessage(c *gin.Context) {
	var req models.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid JSON body"})
		return
	}

	rec, err := h.builder.Build(c.Request.Context(), req, message.ModeExplicit)
	if err != nil {
		respondBuildError(c, err)
		return
	}

	if err := h.store.InsertMessage(c.Request.Context(), rec); err != nil {
		if errors.Is(err, store.ErrDuplicateMessage) {
			c.JSON(http.StatusOK, gin.H{"detail": "Message already exists."})
			return
		}
		log.Printf("failed to store outbound message: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to store message"})
		return
	}

	job := models.DispatchJob{
		Payload:     deliveryPayload(req, rec),
		ProviderURL: dispatch.Route(rec.Type),
	}
	if err := h.publisher.Publish(c.Request.Context(), job); err != nil {
		log.Printf("failed to enqueue dispatch job for message %s: %v", rec.ProviderMessageID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to queue message for delivery"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// ConversationMessages lists a conversation's messages ordered by timestamp.
func (h *Handler) ConversationMessages(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid conversation id"})
		return
	}

	messages, err := h.store.ListConversationMessages(c.Request.Context(), id)
	if err != nil {
		log.Printf("failed to list messages for conversation %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to list messages"})
		return
	}
	if messages == nil {
		messages = []svcmodels.Message{}
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// deliveryPayload serializes a canonical record back into wire form for the
// provider POST; the parsed timestamp goes out as RFC 3339.
func deliveryPayload(req models.MessageRequest, rec *svcmodels.Message) models.DeliveryPayload {
	return models.DeliveryPayload{
		Type:              rec.Type,
		From:              req.From,
		To:                req.To,
		Body:              rec.Body,
		Attachments:       rec.Attachments,
		Timestamp:         rec.Timestamp.Format(time.RFC3339),
		Provider:          rec.Provider,
		ProviderMessageID: rec.ProviderMessageID,
		Sender:            rec.SenderID,
		Receiver:          rec.ReceiverID,
		Conversation:      rec.ConversationID,
	}
}

func respondBuildError(c *gin.Context, err error) {
	var verr *message.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": verr.Detail})
		return
	}
	log.Printf("failed to build message record: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
}
