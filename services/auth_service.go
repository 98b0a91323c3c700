package services

import (
	"context"

	"golang.org/x/crypto/bcrypt"
)

type LoginInput struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// AuthService проверяет учётные данные оператора консоли. Оператор один,
// задаётся конфигурацией (имя + bcrypt-хеш пароля); таблицы пользователей
// у трекера нет.
type AuthService interface {
	Login(ctx context.Context, input LoginInput) error
}

type authService struct {
	operatorName string
	passwordHash []byte
}

func NewAuthService(operatorName, passwordHash string) AuthService {
	return &authService{
		operatorName: operatorName,
		passwordHash: []byte(passwordHash),
	}
}

func (s *authService) Login(_ context.Context, input LoginInput) error {
	if input.Name != s.operatorName {
		return ErrAuthInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(input.Password)); err != nil {
		return ErrAuthInvalidCredentials
	}
	return nil
}
