package store_test

import (
	"context"
	"testing"

	"wisefleet-dashboard/internal/domain"
	"wisefleet-dashboard/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDraft(model string) domain.VehicleDraft {
	return domain.VehicleDraft{
		Make:               "Ford",
		Model:              model,
		VIN:                "1FTBW2CM0HKA00001",
		Mileage:            0,
		NextServiceMileage: 5000,
		FuelType:           domain.FuelTypeDiesel,
		Status:             domain.StatusActive,
	}
}

func TestMemoryStore_SubscribeDeliversInitialSnapshot(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	_, err := s.Insert(ctx, "owner-1", testDraft("Transit"))
	require.NoError(t, err)
	_, err = s.Insert(ctx, "owner-1", testDraft("Ranger"))
	require.NoError(t, err)

	sub, err := s.Subscribe(ctx, "owner-1")
	require.NoError(t, err)
	defer sub.Close()

	snapshot := <-sub.Snapshots()
	assert.Len(t, snapshot, 2)
}

func TestMemoryStore_InsertNotifiesSubscriber(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, "owner-1")
	require.NoError(t, err)
	defer sub.Close()

	initial := <-sub.Snapshots()
	assert.Empty(t, initial)

	id, err := s.Insert(ctx, "owner-1", testDraft("Transit"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snapshot := <-sub.Snapshots()
	require.Len(t, snapshot, 1)
	assert.Equal(t, id, snapshot[0].ID)
	assert.Equal(t, "owner-1", snapshot[0].OwnerID)
	assert.False(t, snapshot[0].CreatedAt.IsZero(), "store must assign created_at")
}

func TestMemoryStore_OwnerIsolation(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, "owner-b")
	require.NoError(t, err)
	defer sub.Close()

	initial := <-sub.Snapshots()
	assert.Empty(t, initial)

	// insert for another owner: push happens inside Insert, so after it
	// returns the channel state is settled
	_, err = s.Insert(ctx, "owner-a", testDraft("Transit"))
	require.NoError(t, err)

	select {
	case snap := <-sub.Snapshots():
		t.Fatalf("unexpected delivery for foreign owner: %v", snap)
	default:
	}
}

func TestMemoryStore_DropsStaleSnapshotWhenNotDrained(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, "owner-1")
	require.NoError(t, err)
	defer sub.Close()

	// never drain the initial snapshot; two inserts supersede it
	_, err = s.Insert(ctx, "owner-1", testDraft("Transit"))
	require.NoError(t, err)
	_, err = s.Insert(ctx, "owner-1", testDraft("Ranger"))
	require.NoError(t, err)

	snapshot := <-sub.Snapshots()
	assert.Len(t, snapshot, 2, "subscriber must see the latest snapshot, not a stale one")
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, "owner-1")
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, ok := <-sub.Snapshots()
	assert.False(t, ok, "snapshot channel must be closed")

	// a later insert must not panic on the closed subscription
	_, err = s.Insert(ctx, "owner-1", testDraft("Transit"))
	require.NoError(t, err)
}
