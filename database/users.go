package database

import (
	"context"
	"database/sql"
	"fmt"

	"bookarr/models"
	"bookarr/services"
)

type UserStore struct {
	DB *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{DB: db}
}

func (s *UserStore) Create(ctx context.Context, u models.User) (models.User, error) {
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash, is_admin)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, username, email, password_hash, is_admin, created_at, updated_at`,
		u.Username, u.Email, u.PasswordHash, u.IsAdmin,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (models.User, error) {
	return s.getBy(ctx, "id = $1", id)
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (models.User, error) {
	return s.getBy(ctx, "username = $1", username)
}

func (s *UserStore) getBy(ctx context.Context, where string, arg any) (models.User, error) {
	var u models.User
	err := s.DB.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, is_admin, created_at, updated_at FROM users WHERE "+where,
		arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, fmt.Errorf("%w: user", services.ErrNotFound)
		}
		return models.User{}, fmt.Errorf("database error: %w", err)
	}
	return u, nil
}
