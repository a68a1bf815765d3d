package chat_test

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursepilot/backend/features/chat"
)

func TestPostgresRepo_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := chat.NewPostgresRepo(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO chats (question, requester, status, correlation_id) VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at")).
		WithArgs("What courses cover compilers?", "alice@example.com", chat.StatusQueued, "corr-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("chat-1", now, now))

	c := &chat.Chat{
		Question:      "What courses cover compilers?",
		Requester:     "alice@example.com",
		CorrelationID: "corr-1",
	}
	err = repo.Save(context.Background(), c)
	assert.NoError(t, err)
	assert.Equal(t, "chat-1", c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Complete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := chat.NewPostgresRepo(db)

	t.Run("WithCourses", func(t *testing.T) {
		courses := json.RawMessage(`[{"courseCode":"CS444","relevanceScore":0.9}]`)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE chats SET answer = $2, outcome = $3, reason = $4, courses = $5, status = $6, updated_at = NOW() WHERE id = $1")).
			WithArgs("chat-1", "CS444 covers compilers.", "answered", "course-related", []byte(courses), chat.StatusCompleted).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Complete(context.Background(), "chat-1", "CS444 covers compilers.", "answered", "course-related", courses)
		assert.NoError(t, err)
	})

	t.Run("NilCoursesBecomesEmptyArray", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE chats SET answer = $2, outcome = $3, reason = $4, courses = $5, status = $6, updated_at = NOW() WHERE id = $1")).
			WithArgs("chat-2", "", "rejected", "off topic", []byte(`[]`), chat.StatusCompleted).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Complete(context.Background(), "chat-2", "", "rejected", "off topic", nil)
		assert.NoError(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Fail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := chat.NewPostgresRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE chats SET outcome = $2, reason = $3, status = $4, updated_at = NOW() WHERE id = $1")).
		WithArgs("chat-1", "failed", "schema validation failed", chat.StatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Fail(context.Background(), "chat-1", "schema validation failed")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := chat.NewPostgresRepo(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "question", "requester", "answer", "outcome", "reason", "courses", "status", "correlation_id", "created_at", "updated_at"}).
		AddRow("chat-1", "q", "", "a", "answered", "", []byte(`[]`), chat.StatusCompleted, "corr-1", now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, question, requester, answer, outcome, reason, courses, status, correlation_id, created_at, updated_at FROM chats WHERE id = $1")).
		WithArgs("chat-1").
		WillReturnRows(rows)

	c, err := repo.Get(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "chat-1", c.ID)
	assert.Equal(t, "answered", c.Outcome)
	assert.Equal(t, json.RawMessage(`[]`), c.Courses)
}

func TestPostgresRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := chat.NewPostgresRepo(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "question", "requester", "answer", "outcome", "reason", "courses", "status", "correlation_id", "created_at", "updated_at"}).
		AddRow("chat-2", "q2", "", "", "pending", "", []byte(`[]`), chat.StatusQueued, "", now, now).
		AddRow("chat-1", "q1", "", "a1", "answered", "", []byte(`[]`), chat.StatusCompleted, "", now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, question, requester, answer, outcome, reason, courses, status, correlation_id, created_at, updated_at FROM chats ORDER BY created_at DESC")).
		WillReturnRows(rows)

	chats, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "chat-2", chats[0].ID)
}

func TestPostgresRepo_CountByOutcome(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := chat.NewPostgresRepo(db)

	rows := sqlmock.NewRows([]string{"outcome", "count"}).
		AddRow("answered", 7).
		AddRow("rejected", 2)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT outcome, COUNT(*) FROM chats GROUP BY outcome")).
		WillReturnRows(rows)

	counts, err := repo.CountByOutcome(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, counts["answered"])
	assert.Equal(t, 2, counts["rejected"])
}
