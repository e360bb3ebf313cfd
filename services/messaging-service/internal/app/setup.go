package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hatch/messaging/services/messaging-service/internal/db"
	"github.com/hatch/messaging/services/messaging-service/internal/queue"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Setup database tables and broker topology",
	Long:  "Creates the messaging tables and declares the dispatch queues for development/testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		pool, err := db.Connect(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer pool.Close()

		// Run migrations
		fmt.Println("Running migrations...")
		migrationSQL := `
			-- Participants are keyed by exactly one address; the unique
			-- constraints make get-or-create race-safe under concurrent
			-- writers.
			CREATE TABLE IF NOT EXISTS participants (
			    id BIGSERIAL PRIMARY KEY,
			    email TEXT UNIQUE,
			    phone TEXT UNIQUE,
			    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
			    CHECK (num_nonnulls(email, phone) = 1)
			);

			-- One conversation per unordered pair; the pair is stored with
			-- the lower participant id first.
			CREATE TABLE IF NOT EXISTS conversations (
			    id BIGSERIAL PRIMARY KEY,
			    participant_one BIGINT NOT NULL REFERENCES participants(id) ON DELETE CASCADE,
			    participant_two BIGINT NOT NULL REFERENCES participants(id) ON DELETE CASCADE,
			    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
			    UNIQUE (participant_one, participant_two)
			);

			CREATE TABLE IF NOT EXISTS messages (
			    id BIGSERIAL PRIMARY KEY,
			    conversation_id BIGINT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			    sender_id BIGINT NOT NULL REFERENCES participants(id) ON DELETE CASCADE,
			    receiver_id BIGINT NOT NULL REFERENCES participants(id) ON DELETE CASCADE,
			    type VARCHAR(10) NOT NULL,
			    body TEXT NOT NULL DEFAULT '',
			    attachments JSONB,
			    timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
			    provider VARCHAR(50) NOT NULL,
			    provider_message_id VARCHAR(255) NOT NULL UNIQUE,
			    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
			);

			CREATE INDEX IF NOT EXISTS idx_messages_conversation_timestamp ON messages(conversation_id, timestamp);
		`

		if _, err := pool.Exec(ctx, migrationSQL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		// Declare broker topology
		fmt.Println("Declaring dispatch queues...")
		conn, err := queue.Connect()
		if err != nil {
			return fmt.Errorf("failed to initialize broker: %w", err)
		}
		defer conn.Close()

		ch, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("failed to open channel: %w", err)
		}
		defer ch.Close()

		if err := queue.DeclareTopology(ch); err != nil {
			return err
		}

		fmt.Println("✓ Setup complete: messaging tables and dispatch queues ready")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
