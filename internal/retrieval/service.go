package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Course is a retrieved catalog document with its relevance to the query.
// Score is normalized to [0,1], higher is more relevant.
type Course struct {
	Code        string  `json:"courseCode"`
	Name        string  `json:"courseName"`
	Description string  `json:"courseDescription"`
	Score       float64 `json:"relevanceScore"`
}

// RetrievalError wraps a vector store failure. No partial results are
// synthesized when the store errors.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("vector retrieval failed: %v", e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	Search(ctx context.Context, query string, vector []float32, limit int) ([]Course, error)
}

// Service turns query text into a bounded, score-ordered course list.
// It over-fetches candidates from the store, re-sorts locally and truncates,
// which tolerates stores that do not guarantee score-sorted output and keeps
// the "how many to consider" knob separate from "how many to show".
type Service struct {
	embedder   Embedder
	store      VectorStore
	candidates int
	limit      int
	logger     *QueryLogger
}

func NewService(e Embedder, s VectorStore, candidates, limit int, l *QueryLogger) *Service {
	return &Service{embedder: e, store: s, candidates: candidates, limit: limit, logger: l}
}

func (s *Service) Retrieve(ctx context.Context, query string) ([]Course, error) {
	start := time.Now()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &RetrievalError{Err: err}
	}

	courses, err := s.store.Search(ctx, query, vec, s.candidates)
	if err != nil {
		return nil, &RetrievalError{Err: err}
	}

	sort.SliceStable(courses, func(i, j int) bool {
		return courses[i].Score > courses[j].Score
	})
	if len(courses) > s.limit {
		courses = courses[:s.limit]
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:      query,
			NumResults: len(courses),
			Duration:   time.Since(start),
		})
	}

	// Empty is a valid outcome, not an error.
	return courses, nil
}
