package inmemcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResumeStore(t *testing.T) {
	ctx := context.Background()
	store := NewResumeStore(6)

	require.NoError(t, store.Put(ctx, "a", 4))
	require.NoError(t, store.Put(ctx, "b", 1))

	id, ok, err := store.Take(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, id)

	_, ok, _ = store.Take(ctx, "a")
	assert.False(t, ok)

	id, ok, _ = store.Take(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, 1, id)

	// the latest signal wins
	require.NoError(t, store.Put(ctx, "a", 2))
	require.NoError(t, store.Put(ctx, "a", 3))
	id, _, _ = store.Take(ctx, "a")
	assert.Equal(t, 3, id)
}
