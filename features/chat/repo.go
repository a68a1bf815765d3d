package chat

import (
	"context"
	"database/sql"
	"encoding/json"
)

type Repository interface {
	Save(ctx context.Context, chat *Chat) error
	Complete(ctx context.Context, id, answer, outcome, reason string, courses json.RawMessage) error
	Fail(ctx context.Context, id, reason string) error
	Get(ctx context.Context, id string) (*Chat, error)
	List(ctx context.Context) ([]Chat, error)
	CountByOutcome(ctx context.Context) (map[string]int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, chat *Chat) error {
	query := `INSERT INTO chats (question, requester, status, correlation_id) VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, query, chat.Question, chat.Requester, StatusQueued, chat.CorrelationID).
		Scan(&chat.ID, &chat.CreatedAt, &chat.UpdatedAt)
}

func (r *PostgresRepo) Complete(ctx context.Context, id, answer, outcome, reason string, courses json.RawMessage) error {
	if courses == nil {
		courses = json.RawMessage(`[]`)
	}
	query := `UPDATE chats SET answer = $2, outcome = $3, reason = $4, courses = $5, status = $6, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, answer, outcome, reason, []byte(courses), StatusCompleted)
	return err
}

func (r *PostgresRepo) Fail(ctx context.Context, id, reason string) error {
	query := `UPDATE chats SET outcome = $2, reason = $3, status = $4, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, "failed", reason, StatusFailed)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Chat, error) {
	c := &Chat{}
	var courses []byte
	query := `SELECT id, question, requester, answer, outcome, reason, courses, status, correlation_id, created_at, updated_at FROM chats WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&c.ID, &c.Question, &c.Requester, &c.Answer, &c.Outcome, &c.Reason, &courses, &c.Status, &c.CorrelationID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Courses = json.RawMessage(courses)
	return c, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Chat, error) {
	query := `SELECT id, question, requester, answer, outcome, reason, courses, status, correlation_id, created_at, updated_at FROM chats ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var c Chat
		var courses []byte
		if err := rows.Scan(&c.ID, &c.Question, &c.Requester, &c.Answer, &c.Outcome, &c.Reason, &courses, &c.Status, &c.CorrelationID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Courses = json.RawMessage(courses)
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func (r *PostgresRepo) CountByOutcome(ctx context.Context) (map[string]int, error) {
	query := `SELECT outcome, COUNT(*) FROM chats GROUP BY outcome`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		counts[outcome] = count
	}
	return counts, rows.Err()
}
