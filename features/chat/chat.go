package chat

import (
	"encoding/json"
	"time"
)

// Status tracks the queue lifecycle of a chat row, separate from the
// pipeline outcome stored alongside it.
const (
	StatusQueued    = "queued"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Chat struct {
	ID            string          `json:"id"`
	Question      string          `json:"question"`
	Requester     string          `json:"requester,omitempty"`
	Answer        string          `json:"answer"`
	Outcome       string          `json:"outcome"`
	Reason        string          `json:"reason,omitempty"`
	Courses       json.RawMessage `json:"courses"`
	Status        string          `json:"status"`
	CorrelationID string          `json:"correlationId"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// RequestPayload is the queued job the worker consumes.
type RequestPayload struct {
	ChatID        string `json:"chat_id"`
	Question      string `json:"question"`
	Requester     string `json:"requester,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

// ResultPayload is published once the pipeline finishes a job.
type ResultPayload struct {
	ChatID        string          `json:"chat_id"`
	Answer        string          `json:"answer"`
	Outcome       string          `json:"outcome"`
	Reason        string          `json:"reason,omitempty"`
	Courses       json.RawMessage `json:"courses"`
	CorrelationID string          `json:"correlation_id"`
}
