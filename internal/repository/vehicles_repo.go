package repository

import (
	"context"
	"errors"

	"wisefleet-dashboard/internal/domain"
)

// ErrMalformedRow 行数据损坏（解码失败，区别于连接类错误）
var ErrMalformedRow = errors.New("malformed vehicle row")

// VehiclesRepository 车辆Repository接口
// 使用强类型领域模型，不使用map[string]any
type VehiclesRepository interface {
	// 查询
	ListVehicles(ctx context.Context, ownerID string) ([]domain.VehicleRecord, error)
	GetVehicle(ctx context.Context, ownerID, vehicleID string) (*domain.VehicleRecord, error)

	// 创建（id/created_at 由数据库分配）
	CreateVehicle(ctx context.Context, ownerID string, draft domain.VehicleDraft) (string, error)

	// 里程遥测更新：仅在新读数大于当前里程时生效（里程表不回退）。
	// 返回车辆所属 owner；车辆不存在或读数不增返回 sql.ErrNoRows
	UpdateVehicleMileage(ctx context.Context, vehicleID string, mileage int) (string, error)
}
