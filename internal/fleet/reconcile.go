package fleet

import (
	"sort"

	"wisefleet-dashboard/internal/domain"
)

// urgencyBucket 排序主键：In Maintenance / Service Due 排前（0），其余排后（1）
func urgencyBucket(v domain.VehicleRecord) int {
	switch DeriveStatus(v) {
	case DerivedInMaintenance, DerivedServiceDue:
		return 0
	}
	return 1
}

// Reconcile 把无序快照整理成确定的展示顺序：
// 先按紧急分桶，桶内按 model 区分大小写的字典序（缺失 model 按空串参与排序）；
// 稳定排序，键相同时保持输入相对顺序。不修改输入切片，返回新切片。
func Reconcile(snapshot []domain.VehicleRecord) []domain.VehicleRecord {
	out := make([]domain.VehicleRecord, len(snapshot))
	copy(out, snapshot)
	sort.SliceStable(out, func(i, j int) bool {
		bi, bj := urgencyBucket(out[i]), urgencyBucket(out[j])
		if bi != bj {
			return bi < bj
		}
		return out[i].Model < out[j].Model
	})
	return out
}
