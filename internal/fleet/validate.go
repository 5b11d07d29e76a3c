package fleet

import (
	"fmt"
	"strings"

	"wisefleet-dashboard/internal/domain"
)

// 校验规则名，按检查顺序排列，返回第一条被违反的规则
const (
	RuleMissingRequiredField = "MissingRequiredField"
	RuleMileageInversion     = "MileageInversion"
	RuleInvalidFieldValue    = "InvalidFieldValue"
)

// ValidationError 提交校验失败，指明规则和字段。
// 只影响本次提交，不影响已有视图。
type ValidationError struct {
	Rule  string
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: rule=%s field=%s", e.Rule, e.Field)
}

// ValidateDraft 校验并规范化一份提交草稿。
// 先做规范化：文本字段去首尾空白，空的 fuel_type/status 补默认值；
// 再按固定顺序检查：
//  1. make/model/vin 非空 -> MissingRequiredField
//  2. mileage <= next_service_mileage -> MileageInversion
//  3. vin 长度、枚举成员、里程非负 -> InvalidFieldValue
//
// 成功只返回规范化后的草稿，持久化由调用方交给存储完成。
func ValidateDraft(d domain.VehicleDraft) (domain.VehicleDraft, error) {
	d.Make = strings.TrimSpace(d.Make)
	d.Model = strings.TrimSpace(d.Model)
	d.VIN = strings.TrimSpace(d.VIN)
	d.FuelType = strings.TrimSpace(d.FuelType)
	d.Status = strings.TrimSpace(d.Status)
	if d.FuelType == "" {
		d.FuelType = domain.DefaultFuelType
	}
	if d.Status == "" {
		d.Status = domain.DefaultStatus
	}

	switch {
	case d.Make == "":
		return d, &ValidationError{Rule: RuleMissingRequiredField, Field: "make"}
	case d.Model == "":
		return d, &ValidationError{Rule: RuleMissingRequiredField, Field: "model"}
	case d.VIN == "":
		return d, &ValidationError{Rule: RuleMissingRequiredField, Field: "vin"}
	}

	if int(d.Mileage) > int(d.NextServiceMileage) {
		return d, &ValidationError{Rule: RuleMileageInversion, Field: "mileage"}
	}

	switch {
	case len(d.VIN) > domain.VINMaxLength:
		return d, &ValidationError{Rule: RuleInvalidFieldValue, Field: "vin"}
	case d.Mileage < 0:
		return d, &ValidationError{Rule: RuleInvalidFieldValue, Field: "mileage"}
	case !domain.ValidFuelType(d.FuelType):
		return d, &ValidationError{Rule: RuleInvalidFieldValue, Field: "fuel_type"}
	case !domain.ValidStatus(d.Status):
		return d, &ValidationError{Rule: RuleInvalidFieldValue, Field: "status"}
	}

	return d, nil
}
