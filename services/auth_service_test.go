package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/futsal-hq/match-tracker/services"
)

func TestAuthServiceLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := services.NewAuthService("operator", string(hash))
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		err := svc.Login(ctx, services.LoginInput{Name: "operator", Password: "correct horse"})
		assert.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		err := svc.Login(ctx, services.LoginInput{Name: "operator", Password: "battery staple"})
		assert.ErrorIs(t, err, services.ErrAuthInvalidCredentials)
	})

	t.Run("wrong name", func(t *testing.T) {
		err := svc.Login(ctx, services.LoginInput{Name: "admin", Password: "correct horse"})
		assert.ErrorIs(t, err, services.ErrAuthInvalidCredentials)
	})
}
