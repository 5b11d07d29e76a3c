package service_test

import (
	"context"
	"testing"

	"wisefleet-dashboard/internal/domain"
	"wisefleet-dashboard/internal/service"
	"wisefleet-dashboard/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedDraft(model string) domain.VehicleDraft {
	return domain.VehicleDraft{
		Make:               "Ford",
		Model:              model,
		VIN:                "VIN-" + model,
		Mileage:            domain.DefaultMileage,
		NextServiceMileage: domain.DefaultNextServiceMileage,
		FuelType:           domain.DefaultFuelType,
		Status:             domain.DefaultStatus,
	}
}

func TestSeed_InsertsAllDraftsInOrder(t *testing.T) {
	recordStore := newFakeStore()
	engine := service.NewFleetViewEngine(recordStore, newFakeIdentity("owner-1"), nil, zap.NewNop())

	inserted, err := engine.Seed(context.Background(), []domain.VehicleDraft{
		seedDraft("A"), seedDraft("B"), seedDraft("C"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	calls := recordStore.insertedCalls()
	require.Len(t, calls, 3)
	assert.Equal(t, "A", calls[0].draft.Model)
	assert.Equal(t, "B", calls[1].draft.Model)
	assert.Equal(t, "C", calls[2].draft.Model)
}

func TestSeed_AbortsOnFirstFailure(t *testing.T) {
	recordStore := newFakeStore()
	recordStore.failOnInsert = 3
	engine := service.NewFleetViewEngine(recordStore, newFakeIdentity("owner-1"), nil, zap.NewNop())

	inserted, err := engine.Seed(context.Background(), []domain.VehicleDraft{
		seedDraft("A"), seedDraft("B"), seedDraft("C"), seedDraft("D"),
	})

	assert.Equal(t, 2, inserted, "only the drafts before the failure are persisted")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to seed vehicle 3 of 4")
	assert.Contains(t, err.Error(), "connection reset")

	calls := recordStore.insertedCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "A", calls[0].draft.Model)
	assert.Equal(t, "B", calls[1].draft.Model)

	// the failed insert was attempted, the draft after it was not
	assert.Equal(t, 3, recordStore.attempts())
}

func TestSeed_EmptyBatch(t *testing.T) {
	recordStore := newFakeStore()
	engine := service.NewFleetViewEngine(recordStore, newFakeIdentity("owner-1"), nil, zap.NewNop())

	inserted, err := engine.Seed(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestSeed_WithoutOwnerRejected(t *testing.T) {
	recordStore := newFakeStore()
	engine := service.NewFleetViewEngine(recordStore, newFakeIdentity(""), nil, zap.NewNop())

	_, err := engine.Seed(context.Background(), []domain.VehicleDraft{seedDraft("A")})
	require.ErrorIs(t, err, store.ErrNoOwner)
	assert.Zero(t, recordStore.attempts())
}
