package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ViewCache 完整车队视图的 Redis 缓存。
// 只作为热启动兜底和跨实例只读副本，权威数据始终在引擎内存里。
type ViewCache struct {
	kv     KV
	ttl    time.Duration
	logger *zap.Logger
}

// NewViewCache 创建视图缓存
func NewViewCache(kv KV, ttl time.Duration, logger *zap.Logger) *ViewCache {
	return &ViewCache{
		kv:     kv,
		ttl:    ttl,
		logger: logger,
	}
}

func viewKey(ownerID string) string {
	return fmt.Sprintf("wisefleet:view:%s:full", ownerID)
}

// SaveView 序列化并写入完整视图，带 TTL
func (c *ViewCache) SaveView(ctx context.Context, ownerID string, view interface{}) error {
	jsonData, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal fleet view: %w", err)
	}

	if err := c.kv.Set(ctx, viewKey(ownerID), string(jsonData), c.ttl); err != nil {
		return fmt.Errorf("failed to set view cache: %w", err)
	}

	c.logger.Debug("updated full view cache",
		zap.String("owner_id", ownerID),
	)
	return nil
}

// LoadView 读取缓存的视图 JSON，未命中返回 ErrCacheMiss
func (c *ViewCache) LoadView(ctx context.Context, ownerID string) ([]byte, error) {
	val, err := c.kv.Get(ctx, viewKey(ownerID))
	if err != nil {
		return nil, err
	}
	return []byte(val), nil
}

// DropView 删除缓存的视图
func (c *ViewCache) DropView(ctx context.Context, ownerID string) error {
	return c.kv.Del(ctx, viewKey(ownerID))
}
