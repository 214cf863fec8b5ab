package interfaces

import (
	"time"

	"saccobot/internal/entities"
)

type AIClient interface {
	GenerateResponse(prompt string) (string, error)
}

// SessionStore keys in-flight flow state by conversation identity.
// Absence means "no active flow". Injected so a deployment can swap in
// a distributed store without touching the FSM.
type SessionStore interface {
	Get(identity string) (*entities.Session, bool)
	Put(identity string, s *entities.Session)
	Delete(identity string)
}

type UserStore interface {
	// Create inserts a user (idempotent on chat id) plus an empty
	// account, and returns the user id.
	Create(chatID, phone, pinSalt, pinHash string) (int, error)
	GetByChatID(chatID string) (*entities.User, error)
	UpdatePhone(userID int, phone string) error
	// GetBalance reports (balance, registered). Unregistered identities
	// return ok=false rather than an error.
	GetBalance(chatID string) (float64, bool, error)
}

type LoanStore interface {
	// Create returns (0, nil) when the identity has no user: no record,
	// no error, per the loan-creation precondition.
	Create(chatID string, amount float64, reason string) (int, error)
	ListByChatID(chatID string) ([]entities.Loan, error)
}

type ProfileStore interface {
	Upsert(p *entities.Profile) error
	GetByUserID(userID int) (*entities.Profile, error)
}

type OtpStore interface {
	Create(chatID, codeHash string, expiresAt time.Time) (int, error)
	// Consume atomically marks the most recent matching, unconsumed,
	// unexpired record as used. Every other case returns false without
	// mutating anything.
	Consume(chatID, codeHash string, now time.Time) (bool, error)
}

type MemoryStore interface {
	Push(channel, chatID, role, text string)
	Recent(channel, chatID string) []entities.MemoryTurn
}

type Enqueuer interface {
	Enqueue(job entities.DispatchJob) entities.EnqueueReceipt
}

// RetryPolicy is the extension point for delivery retries. The shipped
// default never retries: delivery is at-most-once and a failed send is
// logged and dropped.
type RetryPolicy interface {
	ShouldRetry(job entities.DispatchJob, err error) bool
}

// NoRetry drops every failed delivery.
type NoRetry struct{}

func (NoRetry) ShouldRetry(entities.DispatchJob, error) bool { return false }
