package usecases

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLoginDisabled      = errors.New("operator login is not configured")
)

// AuthUsecase authenticates the dashboard operator configured through
// ADMIN_USERNAME and ADMIN_PASSWORD_HASH.
type AuthUsecase struct {
	username     string
	passwordHash []byte
	jwtSecret    []byte
	ttl          time.Duration
	now          func() time.Time
}

func NewAuthUsecase(username, passwordHash, secret string) *AuthUsecase {
	return &AuthUsecase{
		username:     username,
		passwordHash: []byte(passwordHash),
		jwtSecret:    []byte(secret),
		ttl:          24 * time.Hour,
		now:          time.Now,
	}
}

func (uc *AuthUsecase) Login(username, password string) (string, error) {
	if len(uc.passwordHash) == 0 || len(uc.jwtSecret) == 0 {
		return "", ErrLoginDisabled
	}
	if username != uc.username {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(uc.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  username,
		"role": "admin",
		"exp":  uc.now().Add(uc.ttl).Unix(),
	})

	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// HashPassword produces a value suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
