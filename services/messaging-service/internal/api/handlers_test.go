package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/hatch/messaging/internal/models"
	"github.com/hatch/messaging/services/messaging-service/internal/message"
	svcmodels "github.com/hatch/messaging/services/messaging-service/internal/models"
	"github.com/hatch/messaging/services/messaging-service/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeResolver struct {
	participants map[string]int64
	nextID       int64
}

func (f *fakeResolver) Participant(_ context.Context, address string) (int64, error) {
	if f.participants == nil {
		f.participants = make(map[string]int64)
	}
	if id, ok := f.participants[address]; ok {
		return id, nil
	}
	f.nextID++
	f.participants[address] = f.nextID
	return f.nextID, nil
}

func (f *fakeResolver) Conversation(_ context.Context, _, _ int64) (int64, error) {
	return 42, nil
}

type fakeStore struct {
	messages  []svcmodels.Message
	listed    []svcmodels.Message
	listErr   error
	nextID    int64
	providers map[string]bool
}

func (f *fakeStore) InsertMessage(_ context.Context, m *svcmodels.Message) error {
	if f.providers == nil {
		f.providers = make(map[string]bool)
	}
	if f.providers[m.ProviderMessageID] {
		return store.ErrDuplicateMessage
	}
	f.providers[m.ProviderMessageID] = true
	f.nextID++
	m.ID = f.nextID
	f.messages = append(f.messages, *m)
	return nil
}

func (f *fakeStore) ListConversationMessages(_ context.Context, _ int64) ([]svcmodels.Message, error) {
	return f.listed, f.listErr
}

type fakePublisher struct {
	jobs []models.DispatchJob
}

func (f *fakePublisher) Publish(_ context.Context, job models.DispatchJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func newTestRouter() (*gin.Engine, *fakeStore, *fakePublisher) {
	st := &fakeStore{}
	pub := &fakePublisher{}
	h := NewHandler(message.NewBuilder(&fakeResolver{}), st, pub)
	return Router(h), st, pub
}

func post(t *testing.T, r *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInboundSMSCreated(t *testing.T) {
	r, st, pub := newTestRouter()

	w := post(t, r, "/api/messages/inbound", models.MessageRequest{
		From:                "+18045551234",
		To:                  "+12016661234",
		Type:                "sms",
		MessagingProviderID: "message-1",
		Body:                "Hello inbound SMS",
		Timestamp:           "2024-11-01T14:00:00Z",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	require.JSONEq(t, `{"status":"received"}`, w.Body.String())
	require.Len(t, st.messages, 1)
	require.Equal(t, "message-1", st.messages[0].ProviderMessageID)
	// Inbound never enqueues dispatch jobs.
	require.Empty(t, pub.jobs)
}

func TestInboundInfersEmailFromXillioID(t *testing.T) {
	r, st, _ := newTestRouter()

	w := post(t, r, "/api/messages/inbound", models.MessageRequest{
		From:      "contact@gmail.com",
		To:        "user@usehatchapp.com",
		XillioID:  "message-3",
		Body:      "<html><body>Email content</body></html>",
		Timestamp: "2024-11-01T14:00:00Z",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, st.messages, 1)
	require.Equal(t, message.TypeEmail, st.messages[0].Type)
	require.Equal(t, message.ProviderEmail, st.messages[0].Provider)
	require.Equal(t, "message-3", st.messages[0].ProviderMessageID)
}

func TestInboundDuplicateProviderID(t *testing.T) {
	r, st, _ := newTestRouter()

	payload := models.MessageRequest{
		From:                "+18045551234",
		To:                  "+12016661234",
		Type:                "sms",
		MessagingProviderID: "message-1",
		Body:                "Hello inbound SMS",
		Timestamp:           "2024-11-01T14:00:00Z",
	}

	first := post(t, r, "/api/messages/inbound", payload)
	require.Equal(t, http.StatusCreated, first.Code)

	second := post(t, r, "/api/messages/inbound", payload)
	require.Equal(t, http.StatusOK, second.Code)
	require.JSONEq(t, `{"detail":"Message already exists."}`, second.Body.String())

	// Exactly one stored record.
	require.Len(t, st.messages, 1)
}

func TestInboundCannotInferType(t *testing.T) {
	r, st, _ := newTestRouter()

	w := post(t, r, "/api/messages/inbound", models.MessageRequest{
		From:      "+18045551234",
		To:        "+12016661234",
		Body:      "who am I",
		Timestamp: "2024-11-01T14:00:00Z",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "detail")
	require.Empty(t, st.messages)
}

func TestOutboundSMSQueuesOneDispatchJob(t *testing.T) {
	r, st, pub := newTestRouter()

	w := post(t, r, "/api/messages/outbound", models.MessageRequest{
		From:      "+12016661234",
		To:        "+18045551234",
		Type:      "sms",
		Body:      "Hello via SMS",
		Timestamp: "2024-11-01T14:00:00Z",
	})

	require.Equal(t, http.StatusAccepted, w.Code)
	require.JSONEq(t, `{"status":"queued"}`, w.Body.String())
	require.Len(t, st.messages, 1)
	require.Len(t, pub.jobs, 1)

	job := pub.jobs[0]
	require.Equal(t, "http://localhost:8090/sms/send", job.ProviderURL)
	require.Equal(t, 0, job.Attempt)
	require.Equal(t, "sms", job.Payload.Type)
	require.Equal(t, "sms_provider", job.Payload.Provider)
	require.Equal(t, "+12016661234", job.Payload.From)
	require.Equal(t, "2024-11-01T14:00:00Z", job.Payload.Timestamp)
	require.NotEmpty(t, job.Payload.ProviderMessageID)
}

func TestOutboundEmailRoutesToEmailProvider(t *testing.T) {
	r, _, pub := newTestRouter()

	w := post(t, r, "/api/messages/outbound", models.MessageRequest{
		From:        "user@usehatchapp.com",
		To:          "contact@gmail.com",
		Type:        "email",
		Body:        "HTML email <b>here</b>",
		Attachments: []string{"attachment-url"},
		Timestamp:   "2024-11-01T14:00:00Z",
	})

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, pub.jobs, 1)
	require.Equal(t, "http://localhost:8090/email/send", pub.jobs[0].ProviderURL)
	require.Equal(t, []string{"attachment-url"}, pub.jobs[0].Payload.Attachments)
}

func TestOutboundRequiresExplicitType(t *testing.T) {
	r, st, pub := newTestRouter()

	w := post(t, r, "/api/messages/outbound", models.MessageRequest{
		From:      "+12016661234",
		To:        "+18045551234",
		Body:      "no type here",
		Timestamp: "2024-11-01T14:00:00Z",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, st.messages)
	require.Empty(t, pub.jobs)
}

func TestOutboundRejectsUnknownType(t *testing.T) {
	r, _, pub := newTestRouter()

	w := post(t, r, "/api/messages/outbound", models.MessageRequest{
		From:      "+12016661234",
		To:        "+18045551234",
		Type:      "fax",
		Body:      "beep",
		Timestamp: "2024-11-01T14:00:00Z",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "fax")
	require.Empty(t, pub.jobs)
}

func TestConversationMessagesOrdered(t *testing.T) {
	r, st, _ := newTestRouter()
	st.listed = []svcmodels.Message{
		{ID: 1, ConversationID: 42, Body: "first", Timestamp: time.Date(2024, 11, 1, 14, 0, 0, 0, time.UTC)},
		{ID: 2, ConversationID: 42, Body: "second", Timestamp: time.Date(2024, 11, 1, 14, 5, 0, 0, time.UTC)},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/42/messages", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []svcmodels.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	require.Equal(t, "first", resp.Messages[0].Body)
	require.Equal(t, "second", resp.Messages[1].Body)
}

func TestConversationMessagesBadID(t *testing.T) {
	r, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/nope/messages", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}
