package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursepilot/backend/features/chat"
	"coursepilot/backend/internal/agent"
	"coursepilot/backend/internal/llm"
	"coursepilot/backend/internal/retrieval"
	"coursepilot/backend/internal/worker"
)

type mockAgent struct {
	state    agent.State
	err      error
	lastRaw  string
	deadline bool
}

func (m *mockAgent) Invoke(ctx context.Context, state agent.State) (agent.State, error) {
	m.lastRaw = state.RawUserChat
	_, m.deadline = ctx.Deadline()
	if m.err != nil {
		return state, m.err
	}
	return m.state, nil
}

type mockChatRepo struct {
	failedID     string
	failedReason string
	failErr      error

	completedID      string
	completedAnswer  string
	completedOutcome string
	completedCourses json.RawMessage
	completeErr      error
}

func (m *mockChatRepo) Save(ctx context.Context, c *chat.Chat) error { return nil }

func (m *mockChatRepo) Complete(ctx context.Context, id, answer, outcome, reason string, courses json.RawMessage) error {
	m.completedID = id
	m.completedAnswer = answer
	m.completedOutcome = outcome
	m.completedCourses = courses
	return m.completeErr
}

func (m *mockChatRepo) Fail(ctx context.Context, id, reason string) error {
	m.failedID = id
	m.failedReason = reason
	return m.failErr
}

func (m *mockChatRepo) Get(ctx context.Context, id string) (*chat.Chat, error) { return nil, nil }
func (m *mockChatRepo) List(ctx context.Context) ([]chat.Chat, error)          { return nil, nil }
func (m *mockChatRepo) CountByOutcome(ctx context.Context) (map[string]int, error) {
	return nil, nil
}

type mockResultPublisher struct {
	topic string
	body  []byte
	err   error
}

func (m *mockResultPublisher) Publish(topic string, body []byte) error {
	m.topic = topic
	m.body = body
	return m.err
}

func requestBody(t *testing.T, chatID, question string) []byte {
	t.Helper()
	body, err := json.Marshal(chat.RequestPayload{
		ChatID:        chatID,
		Question:      question,
		CorrelationID: "corr-1",
	})
	require.NoError(t, err)
	return body
}

func TestChatConsumer_Success(t *testing.T) {
	ag := &mockAgent{state: agent.State{
		RawUserChat: "What courses cover operating systems?",
		Answer:      "CS350 covers operating systems.",
		Outcome:     agent.OutcomeAnswered,
		RetrievedCourses: []retrieval.Course{
			{Code: "CS350", Name: "Operating Systems", Score: 0.93},
		},
	}}
	repo := &mockChatRepo{}
	pub := &mockResultPublisher{}
	consumer := worker.NewChatConsumer(ag, repo, pub, "chat.request.result", 30*time.Second)

	msg := &nsq.Message{Body: requestBody(t, "chat-1", "What courses cover operating systems?")}
	err := consumer.HandleMessage(msg)
	require.NoError(t, err)

	assert.Equal(t, "What courses cover operating systems?", ag.lastRaw)
	assert.True(t, ag.deadline, "invocation should carry a deadline")

	assert.Equal(t, "chat-1", repo.completedID)
	assert.Equal(t, "CS350 covers operating systems.", repo.completedAnswer)
	assert.Equal(t, "answered", repo.completedOutcome)
	assert.Contains(t, string(repo.completedCourses), "CS350")

	assert.Equal(t, "chat.request.result", pub.topic)
	var result chat.ResultPayload
	require.NoError(t, json.Unmarshal(pub.body, &result))
	assert.Equal(t, "chat-1", result.ChatID)
	assert.Equal(t, "answered", result.Outcome)
	assert.Equal(t, "corr-1", result.CorrelationID)
}

func TestChatConsumer_EmptyBody(t *testing.T) {
	ag := &mockAgent{}
	consumer := worker.NewChatConsumer(ag, &mockChatRepo{}, &mockResultPublisher{}, "chat.request.result", time.Second)

	err := consumer.HandleMessage(&nsq.Message{Body: nil})
	assert.NoError(t, err)
	assert.Empty(t, ag.lastRaw)
}

func TestChatConsumer_InvalidJSON(t *testing.T) {
	ag := &mockAgent{}
	repo := &mockChatRepo{}
	consumer := worker.NewChatConsumer(ag, repo, &mockResultPublisher{}, "chat.request.result", time.Second)

	err := consumer.HandleMessage(&nsq.Message{Body: []byte(`{not json`)})
	assert.NoError(t, err, "malformed messages are dropped, not requeued")
	assert.Empty(t, ag.lastRaw)
	assert.Empty(t, repo.failedID)
}

func TestChatConsumer_MissingFields(t *testing.T) {
	ag := &mockAgent{}
	consumer := worker.NewChatConsumer(ag, &mockChatRepo{}, &mockResultPublisher{}, "chat.request.result", time.Second)

	err := consumer.HandleMessage(&nsq.Message{Body: []byte(`{"chat_id":"chat-1"}`)})
	assert.NoError(t, err)
	assert.Empty(t, ag.lastRaw)
}

func TestChatConsumer_SchemaError(t *testing.T) {
	schemaErr := &llm.SchemaValidationError{Raw: "not json", Reason: "invalid JSON"}
	ag := &mockAgent{err: schemaErr}
	repo := &mockChatRepo{}
	pub := &mockResultPublisher{}
	consumer := worker.NewChatConsumer(ag, repo, pub, "chat.request.result", time.Second)

	err := consumer.HandleMessage(&nsq.Message{Body: requestBody(t, "chat-1", "q")})
	assert.NoError(t, err, "schema errors are terminal, the message must not requeue")
	assert.Equal(t, "chat-1", repo.failedID)
	assert.Equal(t, "invalid JSON", repo.failedReason)
	assert.Empty(t, pub.topic, "no result is published for a failed chat")
}

func TestChatConsumer_WrappedSchemaError(t *testing.T) {
	wrapped := &retrieval.RetrievalError{Err: &llm.SchemaValidationError{Reason: "bad shape"}}
	ag := &mockAgent{err: wrapped}
	repo := &mockChatRepo{}
	consumer := worker.NewChatConsumer(ag, repo, &mockResultPublisher{}, "chat.request.result", time.Second)

	err := consumer.HandleMessage(&nsq.Message{Body: requestBody(t, "chat-1", "q")})
	assert.NoError(t, err)
	assert.Equal(t, "chat-1", repo.failedID)
}

func TestChatConsumer_TransientError(t *testing.T) {
	transient := errors.New("weaviate unreachable")
	ag := &mockAgent{err: transient}
	repo := &mockChatRepo{}
	consumer := worker.NewChatConsumer(ag, repo, &mockResultPublisher{}, "chat.request.result", time.Second)

	err := consumer.HandleMessage(&nsq.Message{Body: requestBody(t, "chat-1", "q")})
	assert.ErrorIs(t, err, transient, "transient errors hand the message back for redelivery")
	assert.Empty(t, repo.failedID)
	assert.Empty(t, repo.completedID)
}

func TestChatConsumer_CompleteError(t *testing.T) {
	ag := &mockAgent{state: agent.State{Outcome: agent.OutcomeAnswered, Answer: "a"}}
	repo := &mockChatRepo{completeErr: errors.New("db down")}
	consumer := worker.NewChatConsumer(ag, repo, &mockResultPublisher{}, "chat.request.result", time.Second)

	err := consumer.HandleMessage(&nsq.Message{Body: requestBody(t, "chat-1", "q")})
	assert.Error(t, err, "a persistence failure must requeue the job")
}

func TestChatConsumer_PublishError(t *testing.T) {
	ag := &mockAgent{state: agent.State{Outcome: agent.OutcomeAnswered, Answer: "a"}}
	pub := &mockResultPublisher{err: errors.New("nsqd down")}
	consumer := worker.NewChatConsumer(ag, &mockChatRepo{}, pub, "chat.request.result", time.Second)

	err := consumer.HandleMessage(&nsq.Message{Body: requestBody(t, "chat-1", "q")})
	assert.Error(t, err)
}

func TestChatConsumer_RejectedChat(t *testing.T) {
	ag := &mockAgent{state: agent.State{
		Outcome: agent.OutcomeRejected,
		Reason:  "not about courses",
	}}
	repo := &mockChatRepo{}
	pub := &mockResultPublisher{}
	consumer := worker.NewChatConsumer(ag, repo, pub, "chat.request.result", time.Second)

	err := consumer.HandleMessage(&nsq.Message{Body: requestBody(t, "chat-1", "what is the weather?")})
	require.NoError(t, err)

	assert.Equal(t, "rejected", repo.completedOutcome)
	assert.Equal(t, json.RawMessage(`[]`), repo.completedCourses)

	var result chat.ResultPayload
	require.NoError(t, json.Unmarshal(pub.body, &result))
	assert.Equal(t, "rejected", result.Outcome)
	assert.Equal(t, "not about courses", result.Reason)
}
