package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursepilot/backend/features/catalog"
	"coursepilot/backend/internal/retrieval"
)

type mockEmbedder struct {
	text string
	vec  []float32
	err  error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.text = text
	return m.vec, m.err
}

type mockCourseStore struct {
	stored      *retrieval.Course
	storedVec   []float32
	storeErr    error
	deletedCode string
	deleteErr   error
}

func (m *mockCourseStore) StoreCourse(ctx context.Context, course retrieval.Course, vector []float32) error {
	m.stored = &course
	m.storedVec = vector
	return m.storeErr
}

func (m *mockCourseStore) DeleteByCode(ctx context.Context, code string) error {
	m.deletedCode = code
	return m.deleteErr
}

func TestService_Upsert(t *testing.T) {
	embedder := &mockEmbedder{vec: []float32{0.1, 0.2}}
	store := &mockCourseStore{}
	svc := catalog.NewService(embedder, store)

	course := retrieval.Course{
		Code:        "CS341",
		Name:        "Algorithms",
		Description: "Design and analysis of efficient algorithms.",
	}
	err := svc.Upsert(context.Background(), course)
	require.NoError(t, err)

	assert.Equal(t, "CS341 Algorithms: Design and analysis of efficient algorithms.", embedder.text)
	assert.Equal(t, "CS341", store.deletedCode, "the previous object must be removed before the insert")
	require.NotNil(t, store.stored)
	assert.Equal(t, "CS341", store.stored.Code)
	assert.Equal(t, []float32{0.1, 0.2}, store.storedVec)
}

func TestService_Upsert_Validation(t *testing.T) {
	svc := catalog.NewService(&mockEmbedder{}, &mockCourseStore{})

	err := svc.Upsert(context.Background(), retrieval.Course{Description: "d"})
	assert.ErrorIs(t, err, catalog.ErrInvalidCourse)
	assert.ErrorContains(t, err, "courseCode")

	err = svc.Upsert(context.Background(), retrieval.Course{Code: "CS341"})
	assert.ErrorIs(t, err, catalog.ErrInvalidCourse)
	assert.ErrorContains(t, err, "courseDescription")
}

func TestService_Upsert_EmbedError(t *testing.T) {
	embedErr := errors.New("quota exceeded")
	store := &mockCourseStore{}
	svc := catalog.NewService(&mockEmbedder{err: embedErr}, store)

	err := svc.Upsert(context.Background(), retrieval.Course{Code: "CS341", Description: "d"})
	assert.ErrorIs(t, err, embedErr)
	assert.Empty(t, store.deletedCode, "a failed embed must not touch the store")
}

func TestService_Upsert_StoreError(t *testing.T) {
	storeErr := errors.New("weaviate down")
	store := &mockCourseStore{storeErr: storeErr}
	svc := catalog.NewService(&mockEmbedder{vec: []float32{0.1}}, store)

	err := svc.Upsert(context.Background(), retrieval.Course{Code: "CS341", Description: "d"})
	assert.ErrorIs(t, err, storeErr)
}

func TestService_Delete(t *testing.T) {
	store := &mockCourseStore{}
	svc := catalog.NewService(&mockEmbedder{}, store)

	require.NoError(t, svc.Delete(context.Background(), "CS341"))
	assert.Equal(t, "CS341", store.deletedCode)

	assert.Error(t, svc.Delete(context.Background(), "  "))
}
