package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"earntracker/internal/core"
)

func newUserService() *UserService {
	return NewUserService(newFakeStore(), "test-secret", time.Hour).WithHashCost(bcrypt.MinCost)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newUserService()
	ctx := context.Background()

	u, err := svc.Register(ctx, "  Olena ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "olena", u.Username)
	assert.NotEqual(t, "correct horse", u.PasswordHash)

	token, got, err := svc.Authenticate(ctx, "olena", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
	assert.Equal(t, "olena", claims.Username)
}

func TestRegisterValidation(t *testing.T) {
	svc := newUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "a", "longenough")
	assert.ErrorIs(t, err, core.ErrInvalidUsername)

	_, err = svc.Register(ctx, "olena", "short")
	assert.ErrorIs(t, err, core.ErrWeakPassword)

	_, err = svc.Register(ctx, "olena", "longenough")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "OLENA", "longenough")
	assert.ErrorIs(t, err, core.ErrUserExists)
}

func TestAuthenticateRejects(t *testing.T) {
	svc := newUserService()
	ctx := context.Background()
	_, err := svc.Register(ctx, "olena", "longenough")
	require.NoError(t, err)

	_, _, err = svc.Authenticate(ctx, "olena", "wrong-password")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)

	_, _, err = svc.Authenticate(ctx, "nobody", "longenough")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestParseTokenRejects(t *testing.T) {
	svc := newUserService()
	ctx := context.Background()
	_, err := svc.Register(ctx, "olena", "longenough")
	require.NoError(t, err)
	token, _, err := svc.Authenticate(ctx, "olena", "longenough")
	require.NoError(t, err)

	_, err = svc.ParseToken(token + "x")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	other := NewUserService(newFakeStore(), "other-secret", time.Hour)
	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	later := time.Now().Add(2 * time.Hour)
	svc.WithClock(func() time.Time { return later })
	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, core.ErrUnauthorized, "expired")
}

func TestListAndDeleteUsers(t *testing.T) {
	svc := newUserService()
	ctx := context.Background()
	a, err := svc.Register(ctx, "alpha", "longenough")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "beta", "longenough")
	require.NoError(t, err)

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), core.ErrNotFound)
	_, err = svc.Get(ctx, a.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
