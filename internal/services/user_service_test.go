package services

import (
	"context"
	"errors"
	"testing"

	"github.com/BradenHooton/spendwise/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_GetUserByID(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedUser(t, "alice", "alice@example.com", alicePassword, models.RoleUser)

	user, err := env.users.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = env.users.GetUserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserService_GetUserByID_RepositoryError(t *testing.T) {
	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := NewUserService(repo, nil, discardLogger())

	_, err := svc.GetUserByID(context.Background(), "user-1")
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestUserService_UpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedUser(t, "alice", "alice@example.com", alicePassword, models.RoleUser)

	user, err := env.users.UpdateProfile(context.Background(), UpdateProfileInput{
		UserID:    id,
		FirstName: "  Alicia ",
		LastName:  "Liddell",
		Phone:     "0400 123 456",
	})

	require.NoError(t, err)
	assert.Equal(t, "Alicia", user.FirstName)
	assert.Equal(t, "Alicia Liddell", user.DisplayName())
	require.NotNil(t, user.Phone)
	assert.Equal(t, "0400 123 456", *user.Phone)
	assert.Equal(t, "alice@example.com", env.db.user(id).Email, "email is not editable")
	assert.Contains(t, env.db.actions(id), models.ActionProfileUpdate)
}

func TestUserService_UpdateProfile_ClearsPhone(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedUser(t, "alice", "alice@example.com", alicePassword, models.RoleUser)
	ctx := context.Background()

	_, err := env.users.UpdateProfile(ctx, UpdateProfileInput{UserID: id, FirstName: "Alice", LastName: "Liddell", Phone: "0400 123 456"})
	require.NoError(t, err)

	user, err := env.users.UpdateProfile(ctx, UpdateProfileInput{UserID: id, FirstName: "Alice", LastName: "Liddell", Phone: "  "})
	require.NoError(t, err)
	assert.Nil(t, user.Phone)
}

func TestUserService_UpdateProfile_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.users.UpdateProfile(context.Background(), UpdateProfileInput{UserID: "missing", FirstName: "Al", LastName: "Li"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}
