package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OtpRepository struct {
	db *pgxpool.Pool
}

func NewOtpRepository(db *pgxpool.Pool) *OtpRepository {
	return &OtpRepository{db: db}
}

func (r *OtpRepository) Create(chatID, codeHash string, expiresAt time.Time) (int, error) {
	ctx := context.Background()

	var userID int
	err := r.db.QueryRow(ctx, "SELECT id FROM users WHERE chat_id = $1", chatID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var recordID int
	err = r.db.QueryRow(ctx,
		`INSERT INTO otps (user_id, code_hash, expires_at, consumed)
		 VALUES ($1, $2, $3, FALSE) RETURNING id`,
		userID, codeHash, expiresAt).Scan(&recordID)
	if err != nil {
		return 0, err
	}
	return recordID, nil
}

// Consume performs the check-and-mark in a single statement so the
// single-use invariant holds under concurrent verification attempts.
// Only the most recent record matching the digest counts; if that one is
// already consumed or expired, the verify fails even when an older
// matching record would still be valid.
func (r *OtpRepository) Consume(chatID, codeHash string, now time.Time) (bool, error) {
	tag, err := r.db.Exec(context.Background(),
		`UPDATE otps SET consumed = TRUE
		 WHERE id = (
			SELECT o.id FROM otps o
			JOIN users u ON u.id = o.user_id
			WHERE u.chat_id = $1 AND o.code_hash = $2
			ORDER BY o.id DESC LIMIT 1
		 )
		 AND consumed = FALSE
		 AND expires_at > $3`,
		chatID, codeHash, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
