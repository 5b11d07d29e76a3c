package fleet

import "wisefleet-dashboard/internal/domain"

// 派生状态（仅用于展示，永不落库，每次渲染实时重算）
const (
	DerivedActive        = "Active"
	DerivedServiceDue    = "Service Due"
	DerivedInMaintenance = "In Maintenance"
)

// 紧急程度档位（进度条展示用）
const (
	TierOverdue = "overdue"
	TierWarning = "warning"
	TierOK      = "ok"
)

// WarningThresholdMiles 剩余里程低于该值时进入 warning 档
const WarningThresholdMiles = 1000

// Derived 一台车的全部派生量，随视图刷新重算，不缓存在记录上
type Derived struct {
	Status                 string  `json:"derived_status"`
	MileageRemaining       int     `json:"mileage_remaining"`
	ServiceProgressPercent float64 `json:"service_progress_percent"`
	UrgencyTier            string  `json:"urgency_tier"`
}

// DeriveStatus 由存储字段计算派生状态（纯函数，不修改记录）。
// status 为 In Maintenance 时无条件优先，里程对比不参与；
// 其次里程达到保养线的为 Service Due；其余为 Active。
func DeriveStatus(v domain.VehicleRecord) string {
	if v.Status == domain.StatusInMaintenance {
		return DerivedInMaintenance
	}
	if v.Mileage >= v.NextServiceMileage {
		return DerivedServiceDue
	}
	return DerivedActive
}

// MileageRemaining 距下次保养的剩余里程，负数表示已超期
func MileageRemaining(v domain.VehicleRecord) int {
	return v.NextServiceMileage - v.Mileage
}

// ServiceProgressPercent 保养周期进度，0~100。
// next_service_mileage 为 0 时直接返回 0，避免除零。
func ServiceProgressPercent(v domain.VehicleRecord) float64 {
	if v.NextServiceMileage <= 0 {
		return 0
	}
	p := float64(v.Mileage) / float64(v.NextServiceMileage) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// UrgencyTier 进度条紧急档位
func UrgencyTier(v domain.VehicleRecord) string {
	r := MileageRemaining(v)
	switch {
	case r <= 0:
		return TierOverdue
	case r < WarningThresholdMiles:
		return TierWarning
	default:
		return TierOK
	}
}

// Derive 一次性计算全部派生量
func Derive(v domain.VehicleRecord) Derived {
	return Derived{
		Status:                 DeriveStatus(v),
		MileageRemaining:       MileageRemaining(v),
		ServiceProgressPercent: ServiceProgressPercent(v),
		UrgencyTier:            UrgencyTier(v),
	}
}
