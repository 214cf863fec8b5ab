package usecases

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"saccobot/internal/interfaces"
)

// DefaultOtpLifetime bounds how long a code stays verifiable.
const DefaultOtpLifetime = 5 * time.Minute

// OtpService issues and verifies one-time passcodes. Codes are stored
// only as keyed HMAC-SHA256 digests; verification is single-use and
// idempotent-false after the first success.
type OtpService struct {
	store    interfaces.OtpStore
	secret   []byte
	lifetime time.Duration
}

func NewOtpService(store interfaces.OtpStore, secret string, lifetime time.Duration) *OtpService {
	return &OtpService{store: store, secret: []byte(secret), lifetime: lifetime}
}

func (s *OtpService) hashCode(code string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateCode draws a 6-digit code uniformly from 000000-999999.
func (s *OtpService) GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// CreateAndStore issues a fresh code for the identity and persists its
// digest with an expiry. Returns (0 recordID) when the identity has no
// registered user.
func (s *OtpService) CreateAndStore(chatID string) (string, int, error) {
	code, err := s.GenerateCode()
	if err != nil {
		return "", 0, err
	}
	recordID, err := s.store.Create(chatID, s.hashCode(code), time.Now().Add(s.lifetime))
	if err != nil {
		return "", 0, err
	}
	return code, recordID, nil
}

// Verify consumes the most recent matching unexpired record. Store
// failures count as not verified.
func (s *OtpService) Verify(chatID, code string) bool {
	ok, err := s.store.Consume(chatID, s.hashCode(code), time.Now())
	if err != nil {
		return false
	}
	return ok
}
