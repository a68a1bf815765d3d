package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"coursepilot/backend/internal/middleware"
)

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo  Repository
	pub   EventPublisher
	topic string
}

func NewService(repo Repository, pub EventPublisher, topic string) *Service {
	return &Service{repo: repo, pub: pub, topic: topic}
}

// Enqueue persists a queued chat row and publishes the job. The publish
// runs under a timeout so a wedged nsqd cannot hang the request handler.
func (s *Service) Enqueue(ctx context.Context, question, requester string) (*Chat, error) {
	c := &Chat{
		Question:      question,
		Requester:     requester,
		Status:        StatusQueued,
		CorrelationID: middleware.GetCorrelationID(ctx),
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(RequestPayload{
		ChatID:        c.ID,
		Question:      question,
		Requester:     requester,
		CorrelationID: c.CorrelationID,
	})
	if err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.pub.Publish(s.topic, payload)
	}()

	select {
	case err := <-done:
		if err != nil {
			slog.ErrorContext(ctx, "failed to publish chat job", "chat_id", c.ID, "error", err)
			return nil, err
		}
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("timeout waiting for NSQ publish")
	}

	slog.InfoContext(ctx, "chat job enqueued", "chat_id", c.ID, "topic", s.topic)
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Chat, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Chat, error) {
	return s.repo.List(ctx)
}
