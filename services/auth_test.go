package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookarr/database"
	"bookarr/services"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	auth := services.NewAuthService(database.NewMemoryUserStore())
	ctx := context.Background()

	user, err := auth.Register(ctx, "alice", "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	got, err := auth.Authenticate(ctx, "alice", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = auth.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = auth.Authenticate(ctx, "nobody", "hunter22")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	auth := services.NewAuthService(database.NewMemoryUserStore())
	ctx := context.Background()

	_, err := auth.Register(ctx, "", "a@example.com", "pw")
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = auth.Register(ctx, "alice", "a@example.com", " ")
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = auth.Register(ctx, "alice", "a@example.com", "pw")
	require.NoError(t, err)
	_, err = auth.Register(ctx, "alice", "other@example.com", "pw")
	assert.ErrorIs(t, err, services.ErrConflict)
}
