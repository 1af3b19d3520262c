package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mailpilot/internal/apperr"
	"mailpilot/internal/model"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// GetProfile returns the user's address and "about" text.
func (r *UserRepository) GetProfile(ctx context.Context, userID int) (model.UserProfile, error) {
	defer observe("select", "users", time.Now())

	var p model.UserProfile
	err := r.db.QueryRow(ctx, `
		SELECT id, email, COALESCE(about, '')
		FROM users
		WHERE id = $1
	`, userID).Scan(&p.ID, &p.Email, &p.About)
	if err != nil {
		if isNoRows(err) {
			return model.UserProfile{}, apperr.NewNotFound("user", strconv.Itoa(userID))
		}
		return model.UserProfile{}, wrap("get user profile", err)
	}
	return p, nil
}
