package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"saccobot/internal/entities"
)

type DashboardUserRepository struct {
	db *pgxpool.Pool
}

func NewDashboardUserRepository(db *pgxpool.Pool) *DashboardUserRepository {
	return &DashboardUserRepository{db: db}
}

func (r *DashboardUserRepository) Create(user *entities.DashboardUser) error {
	_, err := r.db.Exec(context.Background(),
		"INSERT INTO dashboard_users (username, password_hash, role) VALUES ($1, $2, $3)",
		user.Username, user.PasswordHash, user.Role)
	return err
}

func (r *DashboardUserRepository) GetByUsername(username string) (*entities.DashboardUser, error) {
	var user entities.DashboardUser
	err := r.db.QueryRow(context.Background(),
		"SELECT id, username, password_hash, role FROM dashboard_users WHERE username = $1",
		username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
