// Package agent drives the chat pipeline: a directed graph of nodes
// operating over a per-invocation state record. Nodes are pure functions
// from state to a partial patch; the engine merges patches between steps.
package agent

import (
	"coursepilot/backend/internal/retrieval"
)

// Outcome tags how an invocation terminated. It disambiguates a rejected
// message from a genuine failure, both of which leave the answer empty.
type Outcome string

const (
	OutcomePending  Outcome = "pending"
	OutcomeAnswered Outcome = "answered"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// Message is a single conversational turn. Reserved for multi-turn
// support; current nodes do not consume it.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// State is the record threaded through one graph invocation. It is created
// fresh per request and never shared across requests.
type State struct {
	// RawUserChat is the original user input, set once at entry.
	RawUserChat string

	// SemanticSearchQuery is the cleaned query derived from RawUserChat,
	// written once by the extraction node. Empty means not yet extracted.
	SemanticSearchQuery string

	// RetrievedCourses is populated by the retrieval node, highest
	// relevance first. May be empty without being an error.
	RetrievedCourses []retrieval.Course

	// Answer is empty until the synthesis node completes successfully.
	Answer string

	// Reason carries the acceptability filter's explanation.
	Reason string

	Messages []Message

	Outcome Outcome
}

// NewState builds the initial state for one invocation.
func NewState(rawUserChat string) State {
	return State{
		RawUserChat: rawUserChat,
		Outcome:     OutcomePending,
	}
}

// Patch is a partial state update returned by a node. Nil fields leave the
// corresponding state field untouched; Messages are appended.
type Patch struct {
	SemanticSearchQuery *string
	RetrievedCourses    *[]retrieval.Course
	Answer              *string
	Reason              *string
	Outcome             *Outcome
	Messages            []Message
}

// apply merges a patch into a copy of the state. The engine owns merging;
// nodes never mutate a shared reference.
func (s State) apply(p Patch) State {
	if p.SemanticSearchQuery != nil {
		s.SemanticSearchQuery = *p.SemanticSearchQuery
	}
	if p.RetrievedCourses != nil {
		s.RetrievedCourses = *p.RetrievedCourses
	}
	if p.Answer != nil {
		s.Answer = *p.Answer
	}
	if p.Reason != nil {
		s.Reason = *p.Reason
	}
	if p.Outcome != nil {
		s.Outcome = *p.Outcome
	}
	if len(p.Messages) > 0 {
		s.Messages = append(s.Messages, p.Messages...)
	}
	return s
}

func ptr[T any](v T) *T { return &v }
