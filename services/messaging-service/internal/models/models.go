package models

import "time"

// Participant is anchored by exactly one of Email or Phone. The unset side
// stays NULL so the unique constraints only bite on real addresses.
type Participant struct {
	ID        int64     `db:"id" json:"id"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Conversation holds an unordered participant pair in a fixed order:
// ParticipantOne is always the lower participant id, so resolving (A,B) and
// (B,A) lands on the same row.
type Conversation struct {
	ID             int64     `db:"id" json:"id"`
	ParticipantOne int64     `db:"participant_one" json:"participant_one"`
	ParticipantTwo int64     `db:"participant_two" json:"participant_two"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Message is the canonical record. Immutable once inserted; ordered within a
// conversation by Timestamp.
type Message struct {
	ID                int64     `db:"id" json:"id"`
	ConversationID    int64     `db:"conversation_id" json:"conversation"`
	SenderID          int64     `db:"sender_id" json:"sender"`
	ReceiverID        int64     `db:"receiver_id" json:"receiver"`
	Type              string    `db:"type" json:"type"`
	Body              string    `db:"body" json:"body"`
	Attachments       []string  `db:"attachments" json:"attachments,omitempty"`
	Timestamp         time.Time `db:"timestamp" json:"timestamp"`
	Provider          string    `db:"provider" json:"provider"`
	ProviderMessageID string    `db:"provider_message_id" json:"provider_message_id"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
