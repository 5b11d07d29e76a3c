package fleet

import (
	"math"

	"wisefleet-dashboard/internal/domain"
)

// Stats 当前视图的聚合统计，每次视图变化整体重算
type Stats struct {
	TotalVehicles  int `json:"total_vehicles"`
	ActiveVehicles int `json:"active_vehicles"`
	ServiceDue     int `json:"service_due"`
	AvgMileage     int `json:"avg_mileage"`
}

// ComputeStats 对记录集做一次纯归约。
// active 的口径比派生状态 Active 更严：存储状态为 Active 且未到保养线才计入；
// 空车队时 avg_mileage 为 0，不做除法。
func ComputeStats(records []domain.VehicleRecord) Stats {
	s := Stats{TotalVehicles: len(records)}
	if len(records) == 0 {
		return s
	}
	totalMileage := 0
	for _, v := range records {
		totalMileage += v.Mileage
		if v.Status == domain.StatusActive && v.Mileage < v.NextServiceMileage {
			s.ActiveVehicles++
		}
		if v.Mileage >= v.NextServiceMileage || v.Status == domain.StatusInMaintenance {
			s.ServiceDue++
		}
	}
	s.AvgMileage = int(math.Round(float64(totalMileage) / float64(len(records))))
	return s
}
