package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopeworks/discovery/errors"
	dtest "github.com/scopeworks/discovery/internal/testing"
)

func TestCreateAndValidate(t *testing.T) {
	db := dtest.CreateTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	key, secret, err := store.Create(ctx, "agent-1", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, key.ID)
	assert.Len(t, secret, 64) // 32 random bytes, hex encoded
	assert.True(t, key.IsActive)
	assert.Nil(t, key.ExpiresAt)

	validated, err := store.Validate(ctx, secret)
	require.NoError(t, err)
	assert.Equal(t, key.ID, validated.ID)
	assert.Equal(t, "agent-1", validated.Name)
}

func TestValidate_UnknownKey(t *testing.T) {
	db := dtest.CreateTestDB(t)
	store := NewStore(db)

	_, err := store.Validate(context.Background(), "not-a-real-secret")
	assert.True(t, errors.IsNotFound(err))
}

func TestValidate_RevokedKey(t *testing.T) {
	db := dtest.CreateTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	key, secret, err := store.Create(ctx, "to-revoke", nil)
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, key.ID))

	// Revoked keys fail validation the same way unknown keys do.
	_, err = store.Validate(ctx, secret)
	assert.True(t, errors.IsNotFound(err))

	// Revoking again is a no-op.
	require.NoError(t, store.Revoke(ctx, key.ID))

	err = store.Revoke(ctx, "no-such-key")
	assert.True(t, errors.IsNotFound(err))
}

func TestValidate_ExpiredKey(t *testing.T) {
	db := dtest.CreateTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	expired := time.Now().Add(-time.Hour)
	_, secret, err := store.Create(ctx, "expired", &expired)
	require.NoError(t, err)

	_, err = store.Validate(ctx, secret)
	assert.True(t, errors.IsNotFound(err))

	future := time.Now().Add(time.Hour)
	_, liveSecret, err := store.Create(ctx, "live", &future)
	require.NoError(t, err)

	key, err := store.Validate(ctx, liveSecret)
	require.NoError(t, err)
	assert.Equal(t, "live", key.Name)
}

func TestCreate_RequiresName(t *testing.T) {
	db := dtest.CreateTestDB(t)
	store := NewStore(db)

	_, _, err := store.Create(context.Background(), "", nil)
	assert.True(t, errors.IsInvalidRequest(err))
}

func TestList(t *testing.T) {
	db := dtest.CreateTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	_, _, err := store.Create(ctx, "first", nil)
	require.NoError(t, err)
	_, _, err = store.Create(ctx, "second", nil)
	require.NoError(t, err)

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}
