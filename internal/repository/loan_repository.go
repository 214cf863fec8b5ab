package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"saccobot/internal/entities"
)

type LoanRepository struct {
	db *pgxpool.Pool
}

func NewLoanRepository(db *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{db: db}
}

// Create records a pending loan request. Unknown identities get (0, nil):
// no record is written and no error raised, the caller replies with a
// registration hint instead.
func (r *LoanRepository) Create(chatID string, amount float64, reason string) (int, error) {
	ctx := context.Background()

	var userID int
	err := r.db.QueryRow(ctx, "SELECT id FROM users WHERE chat_id = $1", chatID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var loanID int
	err = r.db.QueryRow(ctx,
		`INSERT INTO loans (user_id, amount, reason, status)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		userID, amount, reason, entities.LoanPending).Scan(&loanID)
	if err != nil {
		return 0, err
	}
	return loanID, nil
}

func (r *LoanRepository) ListByChatID(chatID string) ([]entities.Loan, error) {
	rows, err := r.db.Query(context.Background(),
		`SELECT l.id, l.user_id, l.amount, l.reason, l.status, l.created_at
		 FROM loans l
		 JOIN users u ON u.id = l.user_id
		 WHERE u.chat_id = $1
		 ORDER BY l.id DESC`,
		chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := []entities.Loan{}
	for rows.Next() {
		var l entities.Loan
		if err := rows.Scan(&l.ID, &l.UserID, &l.Amount, &l.Reason, &l.Status, &l.CreatedAt); err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}
