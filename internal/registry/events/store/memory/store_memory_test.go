package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namereg/internal/registry/models"
	id "namereg/pkg/domain"
)

func refreshes(s *InMemoryStore) []id.DomainID {
	var ids []id.DomainID
	for _, event := range s.List() {
		ids = append(ids, event.DomainID)
	}
	return ids
}

func TestAppendKeepsEmissionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Append(ctx, models.RefreshEvent(id.DomainID(i), nil)))
	}

	assert.Equal(t, []id.DomainID{1, 2, 3}, refreshes(store))
	last, ok := store.Last()
	require.True(t, ok)
	assert.Equal(t, id.DomainID(3), last.DomainID)
}

func TestCapacityDropsOldestEvents(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(WithCapacity(2))
	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Append(ctx, models.RefreshEvent(id.DomainID(i), nil)))
	}

	assert.Equal(t, []id.DomainID{4, 5}, refreshes(store))
	last, ok := store.Last()
	require.True(t, ok)
	assert.Equal(t, id.DomainID(5), last.DomainID)
}

func TestFailWithRejectsAppends(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(WithCapacity(1))
	boom := errors.New("disk full")
	store.FailWith(boom)

	assert.ErrorIs(t, store.Append(ctx, models.RefreshEvent(1, nil)), boom)
	_, ok := store.Last()
	assert.False(t, ok)

	store.FailWith(nil)
	require.NoError(t, store.Append(ctx, models.RefreshEvent(1, nil)))
	assert.Len(t, store.List(), 1)
}
