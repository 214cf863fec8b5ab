package usecases

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters for PIN digests.
const (
	pinIterations = 100_000
	pinSaltBytes  = 16
	pinKeyBytes   = 32
)

// MakePinHash derives a salted PBKDF2-SHA256 digest for a PIN and
// returns (salt, digest) as hex strings.
func MakePinHash(pin string) (string, string, error) {
	salt := make([]byte, pinSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", "", err
	}
	dk := pbkdf2.Key([]byte(pin), salt, pinIterations, pinKeyBytes, sha256.New)
	return hex.EncodeToString(salt), hex.EncodeToString(dk), nil
}

// VerifyPin checks a PIN against a stored salt and digest in constant time.
func VerifyPin(pin, saltHex, hashHex string) bool {
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}
	dk := pbkdf2.Key([]byte(pin), salt, pinIterations, pinKeyBytes, sha256.New)
	return hmac.Equal(dk, expected)
}
