package fleet_test

import (
	"testing"

	"wisefleet-dashboard/internal/domain"
	"wisefleet-dashboard/internal/fleet"

	"github.com/stretchr/testify/assert"
)

func TestComputeStats_EmptyFleet(t *testing.T) {
	s := fleet.ComputeStats(nil)

	assert.Equal(t, 0, s.TotalVehicles)
	assert.Equal(t, 0, s.ActiveVehicles)
	assert.Equal(t, 0, s.ServiceDue)
	assert.Equal(t, 0, s.AvgMileage)
}

func TestComputeStats_MixedFleet(t *testing.T) {
	records := []domain.VehicleRecord{
		vehicle(domain.StatusActive, 10000, 20000),        // active, not due
		vehicle(domain.StatusActive, 85000, 80000),        // overdue: due, NOT active
		vehicle(domain.StatusInMaintenance, 100, 1000000), // maintenance: due, NOT active
	}

	s := fleet.ComputeStats(records)

	assert.Equal(t, 3, s.TotalVehicles)
	assert.Equal(t, 1, s.ActiveVehicles)
	assert.Equal(t, 2, s.ServiceDue)
	assert.Equal(t, 31700, s.AvgMileage) // (10000+85000+100)/3
}

func TestComputeStats_ActiveStricterThanDerivedBucket(t *testing.T) {
	// stored status Active but already past the service threshold:
	// counts toward service_due, never toward active_vehicles
	records := []domain.VehicleRecord{
		vehicle(domain.StatusActive, 80000, 80000),
	}

	s := fleet.ComputeStats(records)

	assert.Equal(t, 0, s.ActiveVehicles)
	assert.Equal(t, 1, s.ServiceDue)
}

func TestComputeStats_AvgMileageRounded(t *testing.T) {
	records := []domain.VehicleRecord{
		vehicle(domain.StatusActive, 100, 9000),
		vehicle(domain.StatusActive, 105, 9000),
	}

	s := fleet.ComputeStats(records)

	assert.Equal(t, 103, s.AvgMileage) // 102.5 rounds up
}
