package message

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hatch/messaging/internal/models"
	svcmodels "github.com/hatch/messaging/services/messaging-service/internal/models"
)

// Resolver is the identity surface the builder needs.
type Resolver interface {
	Participant(ctx context.Context, address string) (int64, error)
	Conversation(ctx context.Context, p1, p2 int64) (int64, error)
}

// Builder enriches validated payloads into canonical records.
type Builder struct {
	resolver Resolver
}

func NewBuilder(resolver Resolver) *Builder {
	return &Builder{resolver: resolver}
}

// Build validates a payload and assembles the canonical record, unpersisted.
// Resolution may create participant and conversation rows even if the record
// is never stored; get-or-create is idempotent, so the side effect is
// harmless on replay.
func (b *Builder) Build(ctx context.Context, req models.MessageRequest, mode Mode) (*svcmodels.Message, error) {
	msgType, err := Validate(req, mode)
	if err != nil {
		return nil, err
	}

	sender, err := b.resolver.Participant(ctx, req.From)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sender: %w", err)
	}
	receiver, err := b.resolver.Participant(ctx, req.To)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve receiver: %w", err)
	}
	conversation, err := b.resolver.Conversation(ctx, sender, receiver)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conversation: %w", err)
	}

	timestamp, err := ParseTimestamp(req.Timestamp)
	if err != nil {
		return nil, err
	}

	return &svcmodels.Message{
		ConversationID:    conversation,
		SenderID:          sender,
		ReceiverID:        receiver,
		Type:              msgType,
		Body:              req.Body,
		Attachments:       req.Attachments,
		Timestamp:         timestamp,
		Provider:          ProviderFor(msgType),
		ProviderMessageID: providerMessageID(req),
	}, nil
}

// providerMessageID prefers the correlation id the provider delivered the
// message with; without one, the record gets a fresh 128-bit random id.
func providerMessageID(req models.MessageRequest) string {
	if req.MessagingProviderID != "" {
		return req.MessagingProviderID
	}
	if req.XillioID != "" {
		return req.XillioID
	}
	return uuid.NewString()
}

// timestampLayouts covers RFC 3339 plus the zone-less and space-separated
// ISO-8601 variants providers put on inbound webhooks.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a wire timestamp into a point in time.
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, newValidationError(BadTimestamp, "missing timestamp")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, newValidationError(BadTimestamp, "unparseable timestamp %q", value)
}
