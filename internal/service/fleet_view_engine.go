package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"wisefleet-dashboard/internal/cache"
	"wisefleet-dashboard/internal/domain"
	"wisefleet-dashboard/internal/fleet"
	"wisefleet-dashboard/internal/identity"
	"wisefleet-dashboard/internal/metrics"
	"wisefleet-dashboard/internal/store"

	"go.uber.org/zap"
)

// VehicleView 一条车辆记录加上派生字段，进入视图和 WebSocket 推送
type VehicleView struct {
	domain.VehicleRecord
	Derived fleet.Derived `json:"derived"`
}

// FleetView 某一代的完整车队视图。只替换不修改，读方拿到的是不可变快照。
type FleetView struct {
	OwnerID    string        `json:"owner_id"`
	Vehicles   []VehicleView `json:"vehicles"`
	Stats      fleet.Stats   `json:"stats"`
	Generation uint64        `json:"generation"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// EngineHealth 引擎健康快照，供 /healthz 使用
type EngineHealth struct {
	OwnerID    string `json:"owner_id"`
	Degraded   bool   `json:"degraded"`
	HasView    bool   `json:"has_view"`
	Generation uint64 `json:"generation"`
}

// FleetViewEngine 车队视图引擎。
// 单 goroutine 持有订阅生命周期：整表快照到达后重排、算统计、换视图指针、
// 通知观察者并回写视图缓存。所有者切换时先关旧订阅再开新订阅，
// 循环只 select 当前订阅的通道，被取代订阅遗留的快照不会再被应用。
type FleetViewEngine struct {
	recordStore store.RecordStore
	identity    identity.Provider
	viewCache   *cache.ViewCache // 可为 nil（无 Redis 时不回写）
	logger      *zap.Logger

	view       atomic.Pointer[FleetView]
	generation atomic.Uint64

	mu          sync.Mutex
	owner       string
	degraded    bool
	watchers    map[int]chan *FleetView
	nextWatcher int

	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewFleetViewEngine 创建车队视图引擎
func NewFleetViewEngine(recordStore store.RecordStore, provider identity.Provider, viewCache *cache.ViewCache, logger *zap.Logger) *FleetViewEngine {
	return &FleetViewEngine{
		recordStore: recordStore,
		identity:    provider,
		viewCache:   viewCache,
		logger:      logger,
		watchers:    make(map[int]chan *FleetView),
		done:        make(chan struct{}),
	}
}

// Start 启动引擎循环（非阻塞）
func (e *FleetViewEngine) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.started = true
	go e.run(runCtx)

	e.logger.Info("fleet view engine started")
}

// Stop 停止引擎并等待循环退出
func (e *FleetViewEngine) Stop() {
	if !e.started {
		return
	}
	e.cancel()
	<-e.done
	e.logger.Info("fleet view engine stopped")
}

// View 返回当前视图指针；首份快照应用前为 nil
func (e *FleetViewEngine) View() *FleetView {
	return e.view.Load()
}

// Health 返回引擎健康快照
func (e *FleetViewEngine) Health() EngineHealth {
	e.mu.Lock()
	owner := e.owner
	degraded := e.degraded
	e.mu.Unlock()

	view := e.view.Load()
	health := EngineHealth{
		OwnerID:  owner,
		Degraded: degraded,
		HasView:  view != nil,
	}
	if view != nil {
		health.Generation = view.Generation
	}
	return health
}

// Watch 注册一个观察者通道（容量 1，落后时丢旧保新），返回注销函数。
// 注册时如已有视图会立即收到一份。
func (e *FleetViewEngine) Watch() (<-chan *FleetView, func()) {
	ch := make(chan *FleetView, 1)

	e.mu.Lock()
	id := e.nextWatcher
	e.nextWatcher++
	e.watchers[id] = ch
	if view := e.view.Load(); view != nil {
		ch <- view
	}
	e.mu.Unlock()

	unregister := func() {
		e.mu.Lock()
		if _, ok := e.watchers[id]; ok {
			delete(e.watchers, id)
			close(ch)
		}
		e.mu.Unlock()
	}
	return ch, unregister
}

// Insert 校验之外的写入路径：向当前所有者的集合插入一条记录。
// 视图不在这里更新，由存储的变更事件驱动快照重放。
func (e *FleetViewEngine) Insert(ctx context.Context, draft domain.VehicleDraft) (string, error) {
	owner, err := e.identity.CurrentOwnerID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve owner: %w", err)
	}
	if owner == "" {
		return "", store.ErrNoOwner
	}

	id, err := e.recordStore.Insert(ctx, owner, draft)
	if err != nil {
		metrics.RecordInsert(false)
		return "", fmt.Errorf("failed to insert vehicle: %w", err)
	}
	metrics.RecordInsert(true)

	e.logger.Info("vehicle inserted",
		zap.String("owner_id", owner),
		zap.String("vehicle_id", id),
		zap.String("model", draft.Model),
	)
	return id, nil
}

func (e *FleetViewEngine) run(ctx context.Context) {
	defer close(e.done)

	changes := e.identity.Changes()

	owner, err := e.identity.CurrentOwnerID(ctx)
	if err != nil {
		e.logger.Error("failed to resolve initial owner", zap.Error(err))
		owner = ""
	}

	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		if owner == "" {
			// 没有所有者就空转，等身份到位
			select {
			case <-ctx.Done():
				return
			case next, ok := <-changes:
				if !ok {
					changes = nil
					continue
				}
				owner = next
			}
			continue
		}
		e.setOwner(owner)

		if e.viewCache != nil && e.view.Load() == nil {
			e.warmStart(ctx, owner)
		}

		sub, err := e.recordStore.Subscribe(ctx, owner)
		if err != nil {
			e.setDegraded(true)
			metrics.RecordReconnect()
			e.logger.Error("failed to subscribe to record store",
				zap.String("owner_id", owner),
				zap.Duration("retry_in", backoff),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return
			case next, ok := <-changes:
				if !ok {
					changes = nil
				} else if next != owner {
					owner = next
					backoff = time.Second
				}
			case <-time.After(backoff):
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
			continue
		}
		backoff = time.Second
		e.setDegraded(false)

		owner = e.consume(ctx, sub, owner, changes)
	}
}

// consume 驱动一路订阅直到 ctx 取消或所有者切换，返回下一个所有者。
// 返回前先 Close 旧订阅，之后循环不再碰它的通道。
func (e *FleetViewEngine) consume(ctx context.Context, sub store.Subscription, owner string, changes <-chan string) string {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return owner

		case next, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if next == owner {
				continue
			}
			e.logger.Info("owner changed, resubscribing",
				zap.String("previous_owner", owner),
				zap.String("owner_id", next),
			)
			return next

		case snapshot, ok := <-sub.Snapshots():
			if !ok {
				// 订阅被存储侧终止，按连接中断处理并重订
				e.setDegraded(true)
				metrics.RecordReconnect()
				e.logger.Warn("store subscription terminated, resubscribing",
					zap.String("owner_id", owner),
				)
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
				return owner
			}
			e.apply(ctx, owner, snapshot)
			e.setDegraded(false)

		case serr, ok := <-sub.Errs():
			if !ok {
				continue
			}
			var decodeErr *store.DecodeError
			if errors.As(serr, &decodeErr) {
				// 坏数据只计数，视图保持最后一份好的
				metrics.RecordDecodeFailure()
				e.logger.Warn("snapshot decode failed, keeping last view",
					zap.String("owner_id", owner),
					zap.Error(serr),
				)
				continue
			}
			e.setDegraded(true)
			e.logger.Error("store subscription error",
				zap.String("owner_id", owner),
				zap.Error(serr),
			)
		}
	}
}

// warmStart 首次订阅前用缓存副本垫底，避免冷启动空视图。
// 副本只是展示兜底，第一份真实快照到达即被替换。
func (e *FleetViewEngine) warmStart(ctx context.Context, owner string) {
	data, err := e.viewCache.LoadView(ctx, owner)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			e.logger.Warn("failed to load cached fleet view",
				zap.String("owner_id", owner),
				zap.Error(err),
			)
		}
		return
	}

	var view FleetView
	if err := json.Unmarshal(data, &view); err != nil {
		e.logger.Warn("cached fleet view is corrupt, ignoring",
			zap.String("owner_id", owner),
			zap.Error(err),
		)
		return
	}
	if view.OwnerID != owner {
		return
	}

	// 延续缓存的代数，观察者看到的代数不回退
	e.generation.Store(view.Generation)
	e.view.Store(&view)
	e.notifyWatchers(&view)

	e.logger.Info("fleet view warm-started from cache",
		zap.String("owner_id", owner),
		zap.Uint64("generation", view.Generation),
		zap.Int("vehicle_count", len(view.Vehicles)),
	)
}

// apply 用一份快照构建新一代视图并原子替换
func (e *FleetViewEngine) apply(ctx context.Context, owner string, records []domain.VehicleRecord) {
	ordered := fleet.Reconcile(records)
	stats := fleet.ComputeStats(ordered)

	vehicles := make([]VehicleView, len(ordered))
	for i, rec := range ordered {
		vehicles[i] = VehicleView{VehicleRecord: rec, Derived: fleet.Derive(rec)}
	}

	view := &FleetView{
		OwnerID:    owner,
		Vehicles:   vehicles,
		Stats:      stats,
		Generation: e.generation.Add(1),
		UpdatedAt:  time.Now().UTC(),
	}
	e.view.Store(view)
	metrics.RecordSnapshotApplied(stats.TotalVehicles, stats.ServiceDue)

	e.notifyWatchers(view)

	if e.viewCache != nil {
		if err := e.viewCache.SaveView(ctx, owner, view); err != nil {
			e.logger.Warn("failed to save fleet view to cache",
				zap.String("owner_id", owner),
				zap.Error(err),
			)
		}
	}

	e.logger.Debug("fleet view applied",
		zap.String("owner_id", owner),
		zap.Uint64("generation", view.Generation),
		zap.Int("vehicle_count", stats.TotalVehicles),
		zap.Int("service_due", stats.ServiceDue),
	)
}

func (e *FleetViewEngine) notifyWatchers(view *FleetView) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ch := range e.watchers {
		select {
		case ch <- view:
		default:
			// 观察者没跟上：丢掉积压的旧视图，只保最新
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- view:
			default:
			}
		}
	}
}

func (e *FleetViewEngine) setOwner(owner string) {
	e.mu.Lock()
	e.owner = owner
	e.mu.Unlock()
}

func (e *FleetViewEngine) setDegraded(degraded bool) {
	e.mu.Lock()
	e.degraded = degraded
	e.mu.Unlock()
}
