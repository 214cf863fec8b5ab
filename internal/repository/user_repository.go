package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"saccobot/internal/entities"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts the user if the chat id is new, ensures an account row
// exists, and returns the user id either way.
func (r *UserRepository) Create(chatID, phone, pinSalt, pinHash string) (int, error) {
	ctx := context.Background()

	var phoneVal any
	if phone != "" {
		phoneVal = phone
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO users (chat_id, phone, pin_salt, pin_hash)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (chat_id) DO NOTHING`,
		chatID, phoneVal, pinSalt, pinHash)
	if err != nil {
		return 0, err
	}

	var userID int
	if err := r.db.QueryRow(ctx, "SELECT id FROM users WHERE chat_id = $1", chatID).Scan(&userID); err != nil {
		return 0, err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO accounts (user_id, balance) VALUES ($1, 0.0)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID)
	if err != nil {
		return 0, err
	}

	return userID, nil
}

func (r *UserRepository) GetByChatID(chatID string) (*entities.User, error) {
	var user entities.User
	var phone *string
	err := r.db.QueryRow(context.Background(),
		"SELECT id, chat_id, phone, pin_salt, pin_hash, created_at FROM users WHERE chat_id = $1",
		chatID).Scan(&user.ID, &user.ChatID, &phone, &user.PinSalt, &user.PinHash, &user.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	if phone != nil {
		user.Phone = *phone
	}
	return &user, nil
}

func (r *UserRepository) UpdatePhone(userID int, phone string) error {
	_, err := r.db.Exec(context.Background(),
		"UPDATE users SET phone = $1 WHERE id = $2", phone, userID)
	return err
}

func (r *UserRepository) GetBalance(chatID string) (float64, bool, error) {
	var balance float64
	err := r.db.QueryRow(context.Background(),
		`SELECT a.balance FROM accounts a
		 JOIN users u ON u.id = a.user_id
		 WHERE u.chat_id = $1`,
		chatID).Scan(&balance)

	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return balance, true, nil
}
