package identity

import (
	"context"
	"fmt"
	"strings"
)

// AddressKind selects which participant identity column an address keys on.
type AddressKind int

const (
	KindEmail AddressKind = iota
	KindPhone
)

// ClassifyAddress decides how an address identifies a participant: anything
// containing "@" is an email, everything else is treated as a phone number.
func ClassifyAddress(address string) AddressKind {
	if strings.Contains(address, "@") {
		return KindEmail
	}
	return KindPhone
}

// OrderPair returns the participant pair sorted ascending by id, so that
// resolving (A,B) and (B,A) always addresses the same conversation.
func OrderPair(p1, p2 int64) (int64, int64) {
	if p2 < p1 {
		return p2, p1
	}
	return p1, p2
}

// ParticipantStore is the storage surface the resolver needs. Both
// operations are atomic get-or-create at the database layer.
type ParticipantStore interface {
	GetOrCreateParticipantByEmail(ctx context.Context, email string) (int64, error)
	GetOrCreateParticipantByPhone(ctx context.Context, phone string) (int64, error)
	GetOrCreateConversation(ctx context.Context, first, second int64) (int64, error)
}

// Resolver maps raw addresses to participant identities and participant
// pairs to conversation identities.
type Resolver struct {
	store ParticipantStore
}

func NewResolver(store ParticipantStore) *Resolver {
	return &Resolver{store: store}
}

// Participant resolves an address to a stable participant id, creating the
// participant on first reference. The same address always yields the same id.
func (r *Resolver) Participant(ctx context.Context, address string) (int64, error) {
	switch ClassifyAddress(address) {
	case KindEmail:
		id, err := r.store.GetOrCreateParticipantByEmail(ctx, address)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve email participant: %w", err)
		}
		return id, nil
	default:
		id, err := r.store.GetOrCreateParticipantByPhone(ctx, address)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve phone participant: %w", err)
		}
		return id, nil
	}
}

// Conversation resolves the conversation between two participants, creating
// it on their first message. Pair order at the call site never affects the
// result.
func (r *Resolver) Conversation(ctx context.Context, p1, p2 int64) (int64, error) {
	first, second := OrderPair(p1, p2)
	id, err := r.store.GetOrCreateConversation(ctx, first, second)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve conversation: %w", err)
	}
	return id, nil
}
