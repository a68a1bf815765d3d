// Package worker bridges the NSQ chat queue to the agent graph. Each job
// gets a fresh state record; concurrency is bounded by the consumer's
// handler count, and jobs share no mutable state.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"

	"coursepilot/backend/features/chat"
	"coursepilot/backend/internal/agent"
	"coursepilot/backend/internal/llm"
	"coursepilot/backend/internal/middleware"
)

// Agent runs one pipeline invocation.
type Agent interface {
	Invoke(ctx context.Context, state agent.State) (agent.State, error)
}

type ResultPublisher interface {
	Publish(topic string, body []byte) error
}

type ChatConsumer struct {
	agent       Agent
	repo        chat.Repository
	publisher   ResultPublisher
	resultTopic string
	callTimeout time.Duration
}

func NewChatConsumer(a Agent, repo chat.Repository, pub ResultPublisher, resultTopic string, callTimeout time.Duration) *ChatConsumer {
	return &ChatConsumer{
		agent:       a,
		repo:        repo,
		publisher:   pub,
		resultTopic: resultTopic,
		callTimeout: callTimeout,
	}
}

func (c *ChatConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload chat.RequestPayload
	err := json.Unmarshal(m.Body, &payload)

	correlationID := payload.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	ctx := middleware.WithCorrelationID(context.Background(), correlationID)

	if err != nil {
		slog.ErrorContext(ctx, "invalid message format", "error", err)
		return nil // Don't retry invalid messages
	}

	if payload.ChatID == "" || payload.Question == "" {
		slog.ErrorContext(ctx, "missing required fields, dropping", "chat_id", payload.ChatID)
		return nil
	}

	slog.InfoContext(ctx, "processing chat job", "chat_id", payload.ChatID, "attempt", m.Attempts)

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	state, err := c.agent.Invoke(ctx, agent.NewState(payload.Question))
	if err != nil {
		var schemaErr *llm.SchemaValidationError
		if errors.As(err, &schemaErr) {
			// The model produced a malformed response; retrying the same
			// prompt at temperature 0 will not change it. Fail the chat
			// and drop the message.
			slog.ErrorContext(ctx, "schema validation failed", "chat_id", payload.ChatID, "reason", schemaErr.Reason, "raw", schemaErr.Raw)
			if dbErr := c.repo.Fail(ctx, payload.ChatID, schemaErr.Reason); dbErr != nil {
				slog.ErrorContext(ctx, "failed to mark chat failed", "chat_id", payload.ChatID, "error", dbErr)
			}
			return nil
		}

		// Transient (network, rate limit, store down): hand the message
		// back to NSQ; its redelivery policy owns retries.
		slog.ErrorContext(ctx, "chat pipeline failed", "chat_id", payload.ChatID, "error", err)
		return err
	}

	courses := []byte(`[]`)
	if len(state.RetrievedCourses) > 0 {
		if courses, err = json.Marshal(state.RetrievedCourses); err != nil {
			slog.ErrorContext(ctx, "failed to marshal courses", "chat_id", payload.ChatID, "error", err)
			courses = []byte(`[]`)
		}
	}

	if err := c.repo.Complete(ctx, payload.ChatID, state.Answer, string(state.Outcome), state.Reason, courses); err != nil {
		slog.ErrorContext(ctx, "failed to persist chat result", "chat_id", payload.ChatID, "error", err)
		return err
	}

	result, err := json.Marshal(chat.ResultPayload{
		ChatID:        payload.ChatID,
		Answer:        state.Answer,
		Outcome:       string(state.Outcome),
		Reason:        state.Reason,
		Courses:       courses,
		CorrelationID: correlationID,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal result payload", "error", err)
		return nil
	}

	if err := c.publisher.Publish(c.resultTopic, result); err != nil {
		slog.ErrorContext(ctx, "failed to publish chat result", "chat_id", payload.ChatID, "error", err)
		return err
	}

	slog.InfoContext(ctx, "chat job completed", "chat_id", payload.ChatID, "outcome", state.Outcome, "courses", len(state.RetrievedCourses))
	return nil
}
