package services

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/spendwise/internal/models"
	pkgauth "github.com/BradenHooton/spendwise/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// End-to-end flows across the services, backed by the in-memory tables.

func TestScenario_RegisterThenLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reg, err := env.auth.Register(ctx, RegisterInput{
		FirstName:       "Alice",
		LastName:        "Liddell",
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "StrongP@ss1",
		ConfirmPassword: "StrongP@ss1",
	})
	require.NoError(t, err)

	result, err := env.login("alice@example.com", "StrongP@ss1")

	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, result.User.ID)
	assert.Equal(t, models.RoleUser, result.User.Role)
	assert.Equal(t, []string{models.ActionRegistration, models.ActionLogin}, env.db.actions(reg.User.ID))
}

func TestScenario_LockoutAndRecovery(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedUser(t, "alice", "alice@example.com", alicePassword, models.RoleUser)

	for i := 1; i <= 5; i++ {
		_, err := env.login("alice@example.com", "Wrong#Pass1")
		if i < 5 {
			require.ErrorIs(t, err, models.ErrInvalidCredentials, "attempt %d", i)
		} else {
			require.ErrorIs(t, err, models.ErrAccountLocked, "attempt %d", i)
		}
	}
	lockedUntil := *env.db.user(id).LockedUntil
	assert.Equal(t, env.clock.Now().Add(30*time.Minute), lockedUntil)

	compares := env.hasher.Compares()
	_, err := env.login("alice@example.com", alicePassword)
	var lockErr *models.LockoutError
	require.ErrorAs(t, err, &lockErr, "6th attempt is refused even with the right password")
	assert.Equal(t, compares, env.hasher.Compares())

	env.clock.Advance(30 * time.Minute)
	result, err := env.login("alice@example.com", alicePassword)

	require.NoError(t, err)
	assert.Equal(t, id, result.User.ID)
	assert.Equal(t, 0, env.db.user(id).LoginAttempts)
}

func TestScenario_ForgotPassword(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", "alice@example.com", alicePassword, models.RoleUser)
	ctx := context.Background()

	require.NoError(t, env.resets.RequestPasswordReset(ctx, "alice@example.com", ""))
	code := env.sender.LastCode(t)

	in := ResetPasswordInput{
		Email:           "alice@example.com",
		Code:            code,
		NewPassword:     newPassword,
		ConfirmPassword: newPassword,
	}
	require.NoError(t, env.resets.ResetPassword(ctx, in))

	_, err := env.login("alice@example.com", newPassword)
	assert.NoError(t, err)
	_, err = env.login("alice@example.com", alicePassword)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	in.NewPassword, in.ConfirmPassword = "Another#Pass9", "Another#Pass9"
	assert.ErrorIs(t, env.resets.ResetPassword(ctx, in), models.ErrInvalidResetCode)
}

func TestScenario_ForgotPasswordClearsLockout(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedUser(t, "alice", "alice@example.com", alicePassword, models.RoleUser)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, _ = env.login("alice@example.com", "Wrong#Pass1")
	}
	require.NotNil(t, env.db.user(id).LockedUntil)

	require.NoError(t, env.resets.RequestPasswordReset(ctx, "alice@example.com", ""))
	require.NoError(t, env.resets.ResetPassword(ctx, ResetPasswordInput{
		Email:           "alice@example.com",
		Code:            env.sender.LastCode(t),
		NewPassword:     newPassword,
		ConfirmPassword: newPassword,
	}))

	_, err := env.login("alice@example.com", newPassword)
	assert.NoError(t, err)
}

func TestScenario_AuthenticatedPasswordChange(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedUser(t, "alice", "alice@example.com", alicePassword, models.RoleUser)
	ctx := context.Background()

	require.NoError(t, env.resets.RequestPasswordChange(ctx, id, alicePassword, ""))
	code := env.sender.LastCode(t)

	wrong := "000000"
	if code == wrong {
		wrong = "999999"
	}
	err := env.resets.ChangePassword(ctx, ChangePasswordInput{
		UserID:          id,
		Code:            wrong,
		NewPassword:     newPassword,
		ConfirmPassword: newPassword,
	})
	require.ErrorIs(t, err, models.ErrInvalidResetCode)
	assert.NotContains(t, err.Error(), code, "the stored code is never echoed")
	assert.NoError(t, pkgauth.ComparePassword(env.db.user(id).PasswordHash, alicePassword))

	err = env.resets.ChangePassword(ctx, ChangePasswordInput{
		UserID:          id,
		Code:            code,
		NewPassword:     newPassword,
		ConfirmPassword: newPassword,
	})
	require.NoError(t, err)

	stored := env.db.user(id)
	assert.NoError(t, pkgauth.ComparePassword(stored.PasswordHash, newPassword))
	assert.Equal(t, "alice", stored.Username)
	assert.Contains(t, env.db.actions(id), models.ActionPasswordChange)
}
