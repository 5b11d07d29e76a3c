package store_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"wisefleet-dashboard/internal/repository"
	"wisefleet-dashboard/internal/store"

	redispkg "wisefleet-dashboard/internal/redis"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testStream = "fleet:events:stream"

func TestParseChangeEvent_DataField(t *testing.T) {
	payload, err := json.Marshal(store.ChangeEvent{
		Type:      store.EventVehicleCreated,
		OwnerID:   "owner-1",
		VehicleID: "veh-1",
		Source:    "api",
	})
	require.NoError(t, err)

	msg := redispkg.StreamMessage{
		Stream: testStream,
		ID:     "1-1",
		Values: map[string]interface{}{
			"data":      string(payload),
			"timestamp": "1700000000",
		},
	}

	event, err := store.ParseChangeEvent(msg)
	require.NoError(t, err)
	assert.Equal(t, store.EventVehicleCreated, event.Type)
	assert.Equal(t, "owner-1", event.OwnerID)
	assert.Equal(t, "veh-1", event.VehicleID)
	assert.Equal(t, "api", event.Source)
}

func TestParseChangeEvent_FlatValues(t *testing.T) {
	msg := redispkg.StreamMessage{
		Stream: testStream,
		ID:     "1-2",
		Values: map[string]interface{}{
			"type":       store.EventMileageUpdated,
			"owner_id":   "owner-2",
			"vehicle_id": "veh-7",
		},
	}

	event, err := store.ParseChangeEvent(msg)
	require.NoError(t, err)
	assert.Equal(t, store.EventMileageUpdated, event.Type)
	assert.Equal(t, "owner-2", event.OwnerID)
	assert.Equal(t, "veh-7", event.VehicleID)
}

func TestParseChangeEvent_MissingType(t *testing.T) {
	msg := redispkg.StreamMessage{
		Stream: testStream,
		ID:     "1-3",
		Values: map[string]interface{}{"data": "not json at all"},
	}

	_, err := store.ParseChangeEvent(msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing type")
}

func setupPostgresStore(t *testing.T) (*store.PostgresStore, sqlmock.Sqlmock, *goredis.Client) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := repository.NewPostgresVehiclesRepository(db)
	s := store.NewPostgresStore(repo, client, zap.NewNop(), testStream, "fleet-view-group")
	return s, mock, client
}

func storedVehicleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"vehicle_id", "owner_id", "make", "model", "year", "vin",
		"mileage", "next_service_mileage", "fuel_type", "status", "created_at",
	})
}

func TestPostgresStore_InsertPublishesChangeEvent(t *testing.T) {
	s, mock, client := setupPostgresStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`INSERT INTO vehicles`).
		WillReturnRows(sqlmock.NewRows([]string{"vehicle_id"}).AddRow("veh-9"))

	id, err := s.Insert(ctx, "owner-1", testDraft("Transit"))
	require.NoError(t, err)
	assert.Equal(t, "veh-9", id)

	entries, err := client.XRange(ctx, testStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	dataStr, ok := entries[0].Values["data"].(string)
	require.True(t, ok, "stream entry must carry a data field")

	var event store.ChangeEvent
	require.NoError(t, json.Unmarshal([]byte(dataStr), &event))
	assert.Equal(t, store.EventVehicleCreated, event.Type)
	assert.Equal(t, "owner-1", event.OwnerID)
	assert.Equal(t, "veh-9", event.VehicleID)
	assert.Equal(t, "api", event.Source)

	require.NoError(t, mock.ExpectationsWereMet())
}

func waitForSnapshot(t *testing.T, sub store.Subscription) []int {
	t.Helper()
	select {
	case snapshot, ok := <-sub.Snapshots():
		require.True(t, ok, "snapshot channel closed unexpectedly")
		mileages := make([]int, 0, len(snapshot))
		for _, v := range snapshot {
			mileages = append(mileages, v.Mileage)
		}
		return mileages
	case err := <-sub.Errs():
		t.Fatalf("unexpected subscription error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return nil
}

func TestPostgresStore_SubscribeDeliversOnChangeEvent(t *testing.T) {
	s, mock, client := setupPostgresStore(t)
	ctx := context.Background()
	now := time.Now()

	// initial snapshot at subscribe time, second one after the change event
	mock.ExpectQuery(`SELECT\s+vehicle_id::text`).
		WillReturnRows(storedVehicleRows().
			AddRow("veh-1", "owner-1", "Ford", "Transit", 2021, "VIN00000000000001", 40000, 45000, "Diesel", "Active", now))
	mock.ExpectQuery(`SELECT\s+vehicle_id::text`).
		WillReturnRows(storedVehicleRows().
			AddRow("veh-1", "owner-1", "Ford", "Transit", 2021, "VIN00000000000001", 46000, 45000, "Diesel", "Active", now))

	sub, err := s.Subscribe(ctx, "owner-1")
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, []int{40000}, waitForSnapshot(t, sub))

	_, err = redispkg.PublishJSONToStream(ctx, client, testStream, store.ChangeEvent{
		Type:      store.EventMileageUpdated,
		OwnerID:   "owner-1",
		VehicleID: "veh-1",
		Source:    "telemetry",
	})
	require.NoError(t, err)

	assert.Equal(t, []int{46000}, waitForSnapshot(t, sub))

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IgnoresForeignOwnerEvents(t *testing.T) {
	s, mock, client := setupPostgresStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT\s+vehicle_id::text`).
		WillReturnRows(storedVehicleRows())

	sub, err := s.Subscribe(ctx, "owner-1")
	require.NoError(t, err)
	defer sub.Close()

	assert.Empty(t, waitForSnapshot(t, sub))

	// an event for another owner must not trigger a requery
	_, err = redispkg.PublishJSONToStream(ctx, client, testStream, store.ChangeEvent{
		Type:    store.EventVehicleCreated,
		OwnerID: "owner-other",
	})
	require.NoError(t, err)

	select {
	case snapshot := <-sub.Snapshots():
		t.Fatalf("unexpected snapshot for foreign owner event: %v", snapshot)
	case <-time.After(300 * time.Millisecond):
	}

	require.NoError(t, mock.ExpectationsWereMet())
}
