package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"saccobot/internal/entities"
)

type ProfileRepository struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Upsert fully replaces the profile for a user. A consent=false profile
// is persisted too; loan application stays gated on consent.
func (r *ProfileRepository) Upsert(p *entities.Profile) error {
	_, err := r.db.Exec(context.Background(),
		`INSERT INTO profiles (user_id, full_name, national_id, employer, monthly_income, consent, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			national_id = EXCLUDED.national_id,
			employer = EXCLUDED.employer,
			monthly_income = EXCLUDED.monthly_income,
			consent = EXCLUDED.consent,
			updated_at = NOW()`,
		p.UserID, p.FullName, p.NationalID, p.Employer, p.MonthlyIncome, p.Consent)
	return err
}

func (r *ProfileRepository) GetByUserID(userID int) (*entities.Profile, error) {
	var p entities.Profile
	err := r.db.QueryRow(context.Background(),
		`SELECT user_id, full_name, national_id, employer, monthly_income, consent, created_at, updated_at
		 FROM profiles WHERE user_id = $1`,
		userID).Scan(&p.UserID, &p.FullName, &p.NationalID, &p.Employer,
		&p.MonthlyIncome, &p.Consent, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
