package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/vaccine-scheduler/internal/scheduling"
	"github.com/clinicdesk/vaccine-scheduler/internal/session"
)

func TestMemoryStore_CreateGetDelete(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	ctx := context.Background()

	created, err := store.Create(ctx, "alice", scheduling.RoleCaregiver)
	require.NoError(t, err)
	assert.NotEmpty(t, created.Token)

	got, err := store.Get(ctx, created.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Identity)
	assert.Equal(t, scheduling.RoleCaregiver, got.Role)

	require.NoError(t, store.Delete(ctx, created.Token))

	_, err = store.Get(ctx, created.Token)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := session.NewMemoryStore(-time.Second)
	ctx := context.Background()

	created, err := store.Create(ctx, "bob", scheduling.RolePatient)
	require.NoError(t, err)

	_, err = store.Get(ctx, created.Token)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestMemoryStore_UnknownToken(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)

	_, err := store.Get(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}
