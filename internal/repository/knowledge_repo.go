package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mailpilot/internal/model"
)

type KnowledgeRepository struct {
	db *pgxpool.Pool
}

func NewKnowledgeRepository(db *pgxpool.Pool) *KnowledgeRepository {
	return &KnowledgeRepository{db: db}
}

// ListByUser returns the user's knowledge entries, most recently updated first.
func (r *KnowledgeRepository) ListByUser(ctx context.Context, userID int) ([]model.KnowledgeEntry, error) {
	defer observe("select", "knowledge", time.Now())

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, title, content, updated_at
		FROM knowledge
		WHERE user_id = $1
		ORDER BY updated_at DESC, id
	`, userID)
	if err != nil {
		return nil, wrap("list knowledge", err)
	}
	defer rows.Close()

	entries := []model.KnowledgeEntry{}
	for rows.Next() {
		var e model.KnowledgeEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &e.Content, &e.UpdatedAt); err != nil {
			return nil, wrap("scan knowledge", err)
		}
		entries = append(entries, e)
	}
	return entries, wrap("list knowledge", rows.Err())
}

// JoinKnowledge renders entries as one knowledge base text block.
// Entries without content are skipped.
func JoinKnowledge(entries []model.KnowledgeEntry) string {
	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		content := strings.TrimSpace(e.Content)
		if content == "" {
			continue
		}
		if title := strings.TrimSpace(e.Title); title != "" {
			content = title + ":\n" + content
		}
		blocks = append(blocks, content)
	}
	return strings.Join(blocks, "\n\n")
}
