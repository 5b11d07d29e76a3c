package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"wisefleet-dashboard/internal/domain"
	redispkg "wisefleet-dashboard/internal/redis"
)

// ErrNoOwner 尚未选定所有者，写入与播种都拒绝
var ErrNoOwner = errors.New("no owner selected")

// RecordStore 车辆集合的远端存储抽象。
// 订阅交付完整快照：先一份初始快照（可能为空），此后远端每次变更一份，
// 不做增量合并。插入由服务端分配 id 和 created_at。
type RecordStore interface {
	Subscribe(ctx context.Context, ownerID string) (Subscription, error)
	Insert(ctx context.Context, ownerID string, draft domain.VehicleDraft) (string, error)
	Close() error
}

// Subscription 一路可取消的快照流。
// Close 幂等：关闭后停止一切交付并释放资源，两个通道随后被关闭。
type Subscription interface {
	Snapshots() <-chan []domain.VehicleRecord
	Errs() <-chan error
	Close() error
}

// ConnectionError 订阅建立失败或读取通道异常（连接类，视图保持上一份）
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("store connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// DecodeError 快照内容损坏（解码类，视图保持上一份有效数据）
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("snapshot decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// 变更事件类型
const (
	EventVehicleCreated = "vehicle_created"
	EventMileageUpdated = "mileage_updated"
)

// ChangeEvent 车辆集合变更事件（经 Redis Streams 传递，触发订阅重查快照）
type ChangeEvent struct {
	Type      string `json:"type"`
	OwnerID   string `json:"owner_id"`
	VehicleID string `json:"vehicle_id,omitempty"`
	Source    string `json:"source,omitempty"` // "api" / "telemetry"
}

// ParseChangeEvent 解析流消息：优先 data 字段里的 JSON，退回逐字段解析
func ParseChangeEvent(msg redispkg.StreamMessage) (*ChangeEvent, error) {
	if dataStr, ok := msg.Values["data"].(string); ok {
		var event ChangeEvent
		if err := json.Unmarshal([]byte(dataStr), &event); err == nil && event.Type != "" {
			return &event, nil
		}
	}

	event := &ChangeEvent{}
	if t, ok := msg.Values["type"].(string); ok {
		event.Type = t
	}
	if owner, ok := msg.Values["owner_id"].(string); ok {
		event.OwnerID = owner
	}
	if vid, ok := msg.Values["vehicle_id"].(string); ok {
		event.VehicleID = vid
	}

	if event.Type == "" {
		return nil, fmt.Errorf("invalid change event: missing type")
	}
	return event, nil
}
