package mock

import (
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ReceivedMessage is one delivery the mock provider accepted.
type ReceivedMessage struct {
	ID         string         `json:"id"`
	Channel    string         `json:"channel"`
	Payload    map[string]any `json:"payload"`
	ReceivedAt time.Time      `json:"received_at"`
}

// Store keeps everything the mock provider has received plus the failure
// simulation knobs used to exercise the dispatch worker's retry path.
type Store struct {
	mu       sync.Mutex
	messages []ReceivedMessage
	requests int

	rateLimitPercent int
	failurePercent   int
}

// NewStore creates a store that rejects roughly rateLimitPercent of requests
// with a 429 and failurePercent with a 502. Zero disables a knob.
func NewStore(rateLimitPercent, failurePercent int) *Store {
	return &Store{
		rateLimitPercent: rateLimitPercent,
		failurePercent:   failurePercent,
	}
}

// RateLimit reports whether this request should be rejected with a 429 and
// which Retry-After header to attach ("" means none). The header shape
// rotates between numeric seconds, an HTTP-date, and absent so every client
// fallback path gets exercised.
func (s *Store) RateLimit() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests++
	if s.rateLimitPercent <= 0 || rand.Intn(100) >= s.rateLimitPercent {
		return "", false
	}

	switch s.requests % 3 {
	case 0:
		return "5", true
	case 1:
		return time.Now().Add(time.Minute).UTC().Format(http.TimeFormat), true
	default:
		return "", true
	}
}

// Fail reports whether this request should be rejected with a hard failure.
func (s *Store) Fail() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.failurePercent > 0 && rand.Intn(100) < s.failurePercent
}

// Record stores an accepted delivery and returns its provider-assigned id.
func (s *Store) Record(channel string, payload map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := ReceivedMessage{
		ID:         uuid.NewString(),
		Channel:    channel,
		Payload:    payload,
		ReceivedAt: time.Now(),
	}
	s.messages = append(s.messages, msg)
	return msg.ID
}

// Messages returns a copy of everything received so far.
func (s *Store) Messages() []ReceivedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := make([]ReceivedMessage, len(s.messages))
	copy(messages, s.messages)
	return messages
}

// Reset drops all received messages.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
}
