package store

import (
	"context"
	"database/sql"
	"errors"

	"campuscoin/internal/models"
)

// AdminStore answers role questions against users.role.
type AdminStore struct {
	db DB
}

func NewAdminStore(db DB) *AdminStore {
	return &AdminStore{db: db}
}

func (s *AdminStore) IsAdmin(ctx context.Context, userID string) (bool, error) {
	role, err := s.Role(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return role == models.RoleAdmin, nil
}

func (s *AdminStore) Role(ctx context.Context, userID string) (string, error) {
	var role string
	err := s.db.GetContext(ctx, &role, `
		SELECT role
		FROM users
		WHERE id = $1
	`, userID)
	return role, err
}

func (s *AdminStore) SetRole(ctx context.Context, tx Execer, username, role string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET role = $1
		WHERE username = $2
	`, role, username)
	if err != nil {
		return err
	}
	return requireRows(res)
}

func (s *AdminStore) HasAnyAdmin(ctx context.Context, tx Getter) (bool, error) {
	var count int
	err := tx.GetContext(ctx, &count, `SELECT COUNT(1) FROM users WHERE role = 'admin'`)
	return count > 0, err
}
