package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hatch/messaging/services/messaging-service/internal/models"
)

// ErrDuplicateMessage reports an insert that collided with an existing
// provider_message_id. Callers treat it as "already exists", not a failure.
var ErrDuplicateMessage = errors.New("message already exists")

const uniqueViolationCode = "23505"

// Store is the Postgres persistence layer. Get-or-create operations rely on
// unique constraints plus ON CONFLICT, so concurrent creators converge on a
// single row without any locking in this layer.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetOrCreateParticipantByEmail resolves an email address to a participant
// id, creating the participant on first reference.
func (s *Store) GetOrCreateParticipantByEmail(ctx context.Context, email string) (int64, error) {
	return s.getOrCreateParticipant(ctx, "email", email)
}

// GetOrCreateParticipantByPhone resolves a phone number to a participant id,
// creating the participant on first reference.
func (s *Store) GetOrCreateParticipantByPhone(ctx context.Context, phone string) (int64, error) {
	return s.getOrCreateParticipant(ctx, "phone", phone)
}

func (s *Store) getOrCreateParticipant(ctx context.Context, column, address string) (int64, error) {
	// ON CONFLICT DO NOTHING returns no row when the participant already
	// exists; the follow-up select covers that path and the race where a
	// concurrent request inserted the row first.
	insert := fmt.Sprintf(
		`INSERT INTO participants (%s) VALUES ($1) ON CONFLICT (%s) DO NOTHING RETURNING id`,
		column, column,
	)

	var id int64
	err := s.pool.QueryRow(ctx, insert, address).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to insert participant: %w", err)
	}

	query := fmt.Sprintf(`SELECT id FROM participants WHERE %s = $1`, column)
	if err := s.pool.QueryRow(ctx, query, address).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to look up participant by %s: %w", column, err)
	}
	return id, nil
}

// GetOrCreateConversation resolves the conversation for an ordered
// participant pair, creating it on first message. Callers must pass the pair
// already ordered (lower id first).
func (s *Store) GetOrCreateConversation(ctx context.Context, first, second int64) (int64, error) {
	insert := `
		INSERT INTO conversations (participant_one, participant_two)
		VALUES ($1, $2)
		ON CONFLICT (participant_one, participant_two) DO NOTHING
		RETURNING id
	`

	var id int64
	err := s.pool.QueryRow(ctx, insert, first, second).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to insert conversation: %w", err)
	}

	query := `SELECT id FROM conversations WHERE participant_one = $1 AND participant_two = $2`
	if err := s.pool.QueryRow(ctx, query, first, second).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to look up conversation: %w", err)
	}
	return id, nil
}

// InsertMessage persists a canonical record and fills in its assigned id.
// A provider_message_id collision returns ErrDuplicateMessage.
func (s *Store) InsertMessage(ctx context.Context, m *models.Message) error {
	var attachments any
	if m.Attachments != nil {
		encoded, err := json.Marshal(m.Attachments)
		if err != nil {
			return fmt.Errorf("failed to encode attachments: %w", err)
		}
		attachments = encoded
	}

	query := `
		INSERT INTO messages (
			conversation_id, sender_id, receiver_id,
			type, body, attachments, timestamp,
			provider, provider_message_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		m.ConversationID,
		m.SenderID,
		m.ReceiverID,
		m.Type,
		m.Body,
		attachments,
		m.Timestamp,
		m.Provider,
		m.ProviderMessageID,
	).Scan(&m.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrDuplicateMessage
		}
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

// ListConversationMessages returns a conversation's messages ordered by
// timestamp.
func (s *Store) ListConversationMessages(ctx context.Context, conversationID int64) ([]models.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, receiver_id,
			type, body, attachments, timestamp,
			provider, provider_message_id, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY timestamp
	`

	rows, err := s.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var attachments []byte
		if err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&m.SenderID,
			&m.ReceiverID,
			&m.Type,
			&m.Body,
			&attachments,
			&m.Timestamp,
			&m.Provider,
			&m.ProviderMessageID,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if attachments != nil {
			if err := json.Unmarshal(attachments, &m.Attachments); err != nil {
				return nil, fmt.Errorf("failed to decode attachments: %w", err)
			}
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}
