package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"coursepilot/backend/internal/retrieval"
)

var ErrInvalidCourse = errors.New("invalid course")

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type CourseStore interface {
	StoreCourse(ctx context.Context, course retrieval.Course, vector []float32) error
	DeleteByCode(ctx context.Context, code string) error
}

// Service maintains the course catalog in the vector store. Upserts embed
// the course text and replace any previous object with the same code.
type Service struct {
	embedder Embedder
	store    CourseStore
}

func NewService(e Embedder, s CourseStore) *Service {
	return &Service{embedder: e, store: s}
}

func (s *Service) Upsert(ctx context.Context, course retrieval.Course) error {
	if strings.TrimSpace(course.Code) == "" {
		return fmt.Errorf("%w: courseCode is required", ErrInvalidCourse)
	}
	if strings.TrimSpace(course.Description) == "" {
		return fmt.Errorf("%w: courseDescription is required", ErrInvalidCourse)
	}

	text := fmt.Sprintf("%s %s: %s", course.Code, course.Name, course.Description)
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed course %s: %w", course.Code, err)
	}

	if err := s.store.DeleteByCode(ctx, course.Code); err != nil {
		return fmt.Errorf("delete previous course %s: %w", course.Code, err)
	}
	if err := s.store.StoreCourse(ctx, course, vec); err != nil {
		return fmt.Errorf("store course %s: %w", course.Code, err)
	}

	slog.InfoContext(ctx, "course upserted", "code", course.Code)
	return nil
}

func (s *Service) Delete(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("%w: courseCode is required", ErrInvalidCourse)
	}
	return s.store.DeleteByCode(ctx, code)
}
