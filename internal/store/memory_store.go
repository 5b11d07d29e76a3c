package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"wisefleet-dashboard/internal/domain"

	"github.com/google/uuid"
)

// MemoryStore: 用于 DB 未就绪时的联测（本地 `go run` 也能看到数据）。
// - 按 owner_id 隔离
// - IDs 使用 uuid，created_at 取本机时钟
// - 订阅语义与 PostgresStore 一致：先初始快照，之后每次变更一份新快照
type MemoryStore struct {
	mu sync.RWMutex

	// vehicles keyed by owner
	vehicles map[string]map[string]domain.VehicleRecord // ownerID -> vehicleID -> record

	subs    map[int]*memorySubscription
	nextSub int
	closed  bool
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vehicles: map[string]map[string]domain.VehicleRecord{},
		subs:     map[int]*memorySubscription{},
	}
}

var _ RecordStore = (*MemoryStore)(nil)

// Subscribe 注册订阅并立即交付初始快照
func (s *MemoryStore) Subscribe(ctx context.Context, ownerID string) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++

	sub := &memorySubscription{
		store:     s,
		id:        id,
		ownerID:   ownerID,
		snapshots: make(chan []domain.VehicleRecord, 1),
		errs:      make(chan error, 1),
	}
	s.subs[id] = sub

	sub.push(s.snapshotLocked(ownerID))
	return sub, nil
}

// Insert 写入记录并向该 owner 的所有订阅广播新快照
func (s *MemoryStore) Insert(ctx context.Context, ownerID string, draft domain.VehicleDraft) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	record := domain.VehicleRecord{
		ID:                 id,
		OwnerID:            ownerID,
		Make:               draft.Make,
		Model:              draft.Model,
		Year:               draft.YearPtr(),
		VIN:                draft.VIN,
		Mileage:            int(draft.Mileage),
		NextServiceMileage: int(draft.NextServiceMileage),
		FuelType:           draft.FuelType,
		Status:             draft.Status,
		CreatedAt:          time.Now().UTC(),
	}

	if s.vehicles[ownerID] == nil {
		s.vehicles[ownerID] = map[string]domain.VehicleRecord{}
	}
	s.vehicles[ownerID][id] = record

	snapshot := s.snapshotLocked(ownerID)
	for _, sub := range s.subs {
		if sub.ownerID == ownerID {
			sub.push(snapshot)
		}
	}

	return id, nil
}

// Close 关闭全部订阅
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	subs := make([]*memorySubscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.closed = true
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	return nil
}

// snapshotLocked 复制出一份该 owner 的无序记录集（调用方需持锁）。
// 按 created_at 取稳定交付顺序，展示排序是视图引擎的事。
func (s *MemoryStore) snapshotLocked(ownerID string) []domain.VehicleRecord {
	records := make([]domain.VehicleRecord, 0, len(s.vehicles[ownerID]))
	for _, v := range s.vehicles[ownerID] {
		records = append(records, v)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records
}

func (s *MemoryStore) removeSub(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

type memorySubscription struct {
	store     *MemoryStore
	id        int
	ownerID   string
	snapshots chan []domain.VehicleRecord
	errs      chan error
	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

func (sub *memorySubscription) Snapshots() <-chan []domain.VehicleRecord {
	return sub.snapshots
}

func (sub *memorySubscription) Errs() <-chan error {
	return sub.errs
}

// Close 幂等：注销订阅并关闭通道
func (sub *memorySubscription) Close() error {
	sub.closeOnce.Do(func() {
		sub.store.removeSub(sub.id)

		sub.mu.Lock()
		sub.closed = true
		close(sub.snapshots)
		close(sub.errs)
		sub.mu.Unlock()
	})
	return nil
}

// push 非阻塞交付：通道满时丢旧换新（快照语义是后写覆盖）
func (sub *memorySubscription) push(snapshot []domain.VehicleRecord) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}

	select {
	case sub.snapshots <- snapshot:
	default:
		select {
		case <-sub.snapshots:
		default:
		}
		select {
		case sub.snapshots <- snapshot:
		default:
		}
	}
}
