package service

import (
	"context"
	"fmt"

	"wisefleet-dashboard/internal/domain"
	"wisefleet-dashboard/internal/metrics"
	"wisefleet-dashboard/internal/store"

	"go.uber.org/zap"
)

// Seed 批量播种：按给定顺序逐条插入，每条等确认后再插下一条。
// 第一条失败即中止，剩余草稿不再尝试；已插入的不回滚。
// 返回实际插入的条数和首个插入错误。播种不走表单校验。
func (e *FleetViewEngine) Seed(ctx context.Context, drafts []domain.VehicleDraft) (int, error) {
	owner, err := e.identity.CurrentOwnerID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve owner: %w", err)
	}
	if owner == "" {
		return 0, store.ErrNoOwner
	}

	for i, draft := range drafts {
		if _, err := e.recordStore.Insert(ctx, owner, draft); err != nil {
			metrics.RecordInsert(false)
			e.logger.Error("seed aborted on insert failure",
				zap.String("owner_id", owner),
				zap.Int("inserted", i),
				zap.Int("total", len(drafts)),
				zap.String("model", draft.Model),
				zap.Error(err),
			)
			return i, fmt.Errorf("failed to seed vehicle %d of %d: %w", i+1, len(drafts), err)
		}
		metrics.RecordInsert(true)
	}

	e.logger.Info("fleet seeded",
		zap.String("owner_id", owner),
		zap.Int("vehicle_count", len(drafts)),
	)
	return len(drafts), nil
}
