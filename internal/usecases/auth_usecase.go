package usecases

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"saccobot/internal/entities"
	"saccobot/internal/repository"
)

// AuthUsecase authenticates dashboard operators for the admin API.
type AuthUsecase struct {
	users     *repository.DashboardUserRepository
	jwtSecret []byte
}

func NewAuthUsecase(users *repository.DashboardUserRepository, secret string) *AuthUsecase {
	return &AuthUsecase{
		users:     users,
		jwtSecret: []byte(secret),
	}
}

func (uc *AuthUsecase) Login(username, password string) (string, error) {
	user, err := uc.users.GetByUsername(username)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", errors.New("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     time.Now().Add(time.Hour * 24).Unix(),
	})

	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}

	return tokenString, nil
}

// EnsureAdmin creates the initial operator account if none exists
// (called on startup).
func (uc *AuthUsecase) EnsureAdmin(username, password string) error {
	user, err := uc.users.GetByUsername(username)
	if err != nil {
		return err
	}
	if user == nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		return uc.users.Create(&entities.DashboardUser{
			Username:     username,
			PasswordHash: string(hashed),
			Role:         "admin",
		})
	}
	return nil
}
