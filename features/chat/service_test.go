package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursepilot/backend/features/chat"
	"coursepilot/backend/internal/middleware"
)

type mockRepo struct {
	saveErr   error
	saved     *chat.Chat
	getChat   *chat.Chat
	getErr    error
	listChats []chat.Chat
	listErr   error
}

func (m *mockRepo) Save(ctx context.Context, c *chat.Chat) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	c.ID = "chat-1"
	m.saved = c
	return nil
}

func (m *mockRepo) Complete(ctx context.Context, id, answer, outcome, reason string, courses json.RawMessage) error {
	return nil
}

func (m *mockRepo) Fail(ctx context.Context, id, reason string) error {
	return nil
}

func (m *mockRepo) Get(ctx context.Context, id string) (*chat.Chat, error) {
	return m.getChat, m.getErr
}

func (m *mockRepo) List(ctx context.Context) ([]chat.Chat, error) {
	return m.listChats, m.listErr
}

func (m *mockRepo) CountByOutcome(ctx context.Context) (map[string]int, error) {
	return nil, nil
}

type mockPublisher struct {
	topic string
	body  []byte
	err   error
}

func (m *mockPublisher) Publish(topic string, body []byte) error {
	m.topic = topic
	m.body = body
	return m.err
}

func TestService_Enqueue(t *testing.T) {
	repo := &mockRepo{}
	pub := &mockPublisher{}
	svc := chat.NewService(repo, pub, "chat.request")

	ctx := middleware.WithCorrelationID(context.Background(), "corr-42")
	c, err := svc.Enqueue(ctx, "What courses cover databases?", "bob@example.com")
	require.NoError(t, err)

	assert.Equal(t, "chat-1", c.ID)
	assert.Equal(t, chat.StatusQueued, c.Status)
	assert.Equal(t, "corr-42", c.CorrelationID)

	assert.Equal(t, "chat.request", pub.topic)

	var payload chat.RequestPayload
	require.NoError(t, json.Unmarshal(pub.body, &payload))
	assert.Equal(t, "chat-1", payload.ChatID)
	assert.Equal(t, "What courses cover databases?", payload.Question)
	assert.Equal(t, "bob@example.com", payload.Requester)
	assert.Equal(t, "corr-42", payload.CorrelationID)
}

func TestService_Enqueue_SaveError(t *testing.T) {
	repo := &mockRepo{saveErr: errors.New("db down")}
	pub := &mockPublisher{}
	svc := chat.NewService(repo, pub, "chat.request")

	_, err := svc.Enqueue(context.Background(), "q", "")
	assert.Error(t, err)
	assert.Empty(t, pub.topic, "publish should not happen when the save fails")
}

func TestService_Enqueue_PublishError(t *testing.T) {
	repo := &mockRepo{}
	pub := &mockPublisher{err: errors.New("nsqd unreachable")}
	svc := chat.NewService(repo, pub, "chat.request")

	_, err := svc.Enqueue(context.Background(), "q", "")
	assert.ErrorContains(t, err, "nsqd unreachable")
}
