package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mailpilot/internal/model"
)

type EmailRepository struct {
	db *pgxpool.Pool
}

func NewEmailRepository(db *pgxpool.Pool) *EmailRepository {
	return &EmailRepository{db: db}
}

// Save stores a received email. Saving the same id twice is a no-op.
func (r *EmailRepository) Save(ctx context.Context, e model.Email) error {
	defer observe("insert", "emails", time.Now())

	_, err := r.db.Exec(ctx, `
		INSERT INTO emails (id, user_id, thread_id, from_address, to_address, subject, body, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.UserID, e.ThreadID, e.From, e.To, e.Subject, e.Body, e.Date)
	return wrap("save email", err)
}

// ListThread returns the thread's messages from oldest to newest.
func (r *EmailRepository) ListThread(ctx context.Context, userID int, threadID string) ([]model.ThreadMessage, error) {
	defer observe("select", "emails", time.Now())

	rows, err := r.db.Query(ctx, `
		SELECT from_address, to_address, subject, body, sent_at
		FROM emails
		WHERE user_id = $1 AND thread_id = $2
		ORDER BY COALESCE(sent_at, created_at), id
	`, userID, threadID)
	if err != nil {
		return nil, wrap("list thread", err)
	}
	defer rows.Close()

	messages := []model.ThreadMessage{}
	for rows.Next() {
		var m model.ThreadMessage
		if err := rows.Scan(&m.From, &m.To, &m.Subject, &m.Body, &m.Date); err != nil {
			return nil, wrap("scan thread message", err)
		}
		messages = append(messages, m)
	}
	return messages, wrap("list thread", rows.Err())
}

// SenderHistoryQuery selects earlier emails from one sender. The email being
// answered and its thread are excluded since the draft prompt already holds them.
type SenderHistoryQuery struct {
	UserID          int
	Sender          string
	ExcludeEmailID  int
	ExcludeThreadID string
	Limit           int
}

// ListFromSender returns the most recent matching emails, oldest first.
func (r *EmailRepository) ListFromSender(ctx context.Context, q SenderHistoryQuery) ([]model.ThreadMessage, error) {
	defer observe("select", "emails", time.Now())

	rows, err := r.db.Query(ctx, `
		SELECT from_address, to_address, subject, body, sent_at
		FROM (
			SELECT from_address, to_address, subject, body, sent_at, created_at, id
			FROM emails
			WHERE user_id = $1
			  AND lower(from_address) = lower($2)
			  AND id <> $3
			  AND ($4 = '' OR thread_id <> $4)
			ORDER BY COALESCE(sent_at, created_at) DESC, id DESC
			LIMIT $5
		) recent
		ORDER BY COALESCE(sent_at, created_at), id
	`, q.UserID, q.Sender, q.ExcludeEmailID, q.ExcludeThreadID, q.Limit)
	if err != nil {
		return nil, wrap("list sender history", err)
	}
	defer rows.Close()

	messages := []model.ThreadMessage{}
	for rows.Next() {
		var m model.ThreadMessage
		if err := rows.Scan(&m.From, &m.To, &m.Subject, &m.Body, &m.Date); err != nil {
			return nil, wrap("scan sender history", err)
		}
		messages = append(messages, m)
	}
	return messages, wrap("list sender history", rows.Err())
}
