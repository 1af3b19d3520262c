package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mailpilot/internal/model"
)

type GroupRepository struct {
	db *pgxpool.Pool
}

func NewGroupRepository(db *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{db: db}
}

// ResolveGroup returns the group with its items, or (nil, nil) when it does
// not exist.
func (r *GroupRepository) ResolveGroup(ctx context.Context, groupID string) (*model.Group, error) {
	defer observe("select", "groups", time.Now())

	var g model.Group
	err := r.db.QueryRow(ctx, `SELECT id, user_id, name FROM groups WHERE id = $1`, groupID).
		Scan(&g.ID, &g.UserID, &g.Name)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, wrap("get group", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, type, value
		FROM group_items
		WHERE group_id = $1
		ORDER BY id
	`, groupID)
	if err != nil {
		return nil, wrap("list group items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.GroupItem
		var itemType string
		if err := rows.Scan(&item.ID, &itemType, &item.Value); err != nil {
			return nil, wrap("scan group item", err)
		}
		item.Type = model.GroupItemType(itemType)
		g.Items = append(g.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list group items", err)
	}
	return &g, nil
}
