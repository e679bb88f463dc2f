package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SaveLoadDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess := &Session{ID: "abc", UserID: "user-1", Role: "member"}
	sess.Set(KeyResetEmail, "alice@example.com")
	require.NoError(t, store.Save(ctx, sess, time.Minute))

	loaded, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", loaded.ID)
	assert.Equal(t, "user-1", loaded.UserID)
	assert.Equal(t, "alice@example.com", loaded.Get(KeyResetEmail))

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_ExpiresEntries(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.SetClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "abc"}, time.Minute))

	now = now.Add(59 * time.Second)
	_, err := store.Load(ctx, "abc")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestSession_FlashesArePoppedOnce(t *testing.T) {
	sess := &Session{}
	sess.AddFlash(FlashSuccess, "Saved.")
	sess.AddFlash(FlashError, "Oops.")

	flashes := sess.PopFlashes()
	require.Len(t, flashes, 2)
	assert.Equal(t, "Saved.", flashes[0].Message)
	assert.Nil(t, sess.PopFlashes())
}
