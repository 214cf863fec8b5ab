package entities

import "time"

// User is a registered conversation participant. ChatID is the
// channel-qualified identity used as the correlation key everywhere.
type User struct {
	ID        int       `json:"id"`
	ChatID    string    `json:"chat_id"`
	Phone     string    `json:"phone,omitempty"`
	PinSalt   string    `json:"-"`
	PinHash   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Account struct {
	ID      int     `json:"id"`
	UserID  int     `json:"user_id"`
	Balance float64 `json:"balance"`
}

// Loan statuses. Creation is append-only; approval transitions happen
// in back-office tooling, not here.
const (
	LoanPending  = "pending"
	LoanApproved = "approved"
	LoanRejected = "rejected"
)

type Loan struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Amount    float64   `json:"amount"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile holds onboarding-collected member data. One per user, fully
// replaced on each onboarding completion.
type Profile struct {
	UserID        int       `json:"user_id"`
	FullName      string    `json:"full_name"`
	NationalID    string    `json:"national_id"`
	Employer      string    `json:"employer"`
	MonthlyIncome float64   `json:"monthly_income"`
	Consent       bool      `json:"consent"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OtpRecord stores only the keyed digest of a code, never the code itself.
type OtpRecord struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	CodeHash  string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Consumed  bool      `json:"consumed"`
	CreatedAt time.Time `json:"created_at"`
}

// DashboardUser is an operator account for the admin API.
type DashboardUser struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
}
