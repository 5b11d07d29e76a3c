package domain

import "time"

// 燃料类型（固定枚举）
const (
	FuelTypeDiesel   = "Diesel"
	FuelTypeGasoline = "Gasoline"
	FuelTypeElectric = "Electric"
	FuelTypeHybrid   = "Hybrid"
)

// 存储的车辆状态（区别于派生状态，派生状态见 internal/fleet）
const (
	StatusActive        = "Active"
	StatusInMaintenance = "In Maintenance"
)

// VIN 最大长度（北美标准 VIN 为 17 位；不保证唯一）
const VINMaxLength = 17

// 新建草稿的默认值（表单重置和种子数据共用）
const (
	DefaultMileage            = 0
	DefaultNextServiceMileage = 5000
	DefaultFuelType           = FuelTypeDiesel
	DefaultStatus             = StatusActive
)

// VehicleRecord 车队中的一台受管车辆（存储分配 id/created_at 后的完整记录）
type VehicleRecord struct {
	ID      string `json:"vehicle_id"`
	OwnerID string `json:"owner_id"`

	// 基础信息
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  *int   `json:"year,omitempty"` // 可选，缺省为 NULL
	VIN   string `json:"vin"`

	// 里程与保养计划（可变数值字段，派生状态由它们实时计算）
	Mileage            int `json:"mileage"`
	NextServiceMileage int `json:"next_service_mileage"`

	// 枚举字段
	FuelType string `json:"fuel_type"` // Diesel / Gasoline / Electric / Hybrid
	Status   string `json:"status"`    // Active / In Maintenance

	CreatedAt time.Time `json:"created_at"` // 服务端分配，创建后不可变
}

// VehicleDraft 创建车辆时提交的草稿（尚未分配 id/created_at）
// 数值字段通过 FlexInt 宽容解码：表单以文本提交的数字会被解析，
// 非数字文本按 0 处理
type VehicleDraft struct {
	Make               string  `json:"make"`
	Model              string  `json:"model"`
	Year               FlexInt `json:"year"`
	VIN                string  `json:"vin"`
	Mileage            FlexInt `json:"mileage"`
	NextServiceMileage FlexInt `json:"next_service_mileage"`
	FuelType           string  `json:"fuel_type"`
	Status             string  `json:"status"`
}

// YearPtr 年份为 0 视为未填写，返回 nil
func (d VehicleDraft) YearPtr() *int {
	if d.Year == 0 {
		return nil
	}
	y := int(d.Year)
	return &y
}

// ValidFuelType 是否为合法燃料类型
func ValidFuelType(s string) bool {
	switch s {
	case FuelTypeDiesel, FuelTypeGasoline, FuelTypeElectric, FuelTypeHybrid:
		return true
	}
	return false
}

// ValidStatus 是否为合法存储状态
func ValidStatus(s string) bool {
	return s == StatusActive || s == StatusInMaintenance
}
