package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wisefleet-dashboard/internal/domain"
	redispkg "wisefleet-dashboard/internal/redis"
	"wisefleet-dashboard/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 一次最多读取的事件条数
const eventBatchSize = 16

// PostgresStore Postgres 行存 + Redis Streams 变更通知的存储实现。
// 每路订阅使用独立的消费者组（从 "$" 开始），互不分食事件；
// 收到本 owner 的事件后整表重查，交付新的完整快照。
type PostgresStore struct {
	repo        repository.VehiclesRepository
	redisClient *redis.Client
	logger      *zap.Logger
	stream      string
	groupPrefix string
}

// NewPostgresStore 创建存储
func NewPostgresStore(repo repository.VehiclesRepository, redisClient *redis.Client, logger *zap.Logger, stream, groupPrefix string) *PostgresStore {
	return &PostgresStore{
		repo:        repo,
		redisClient: redisClient,
		logger:      logger,
		stream:      stream,
		groupPrefix: groupPrefix,
	}
}

var _ RecordStore = (*PostgresStore)(nil)

// Subscribe 建立快照订阅。
// 先建消费者组再查初始快照，组建在查询之前，中间发生的变更只会
// 多触发一次重查，不会丢失。
func (s *PostgresStore) Subscribe(ctx context.Context, ownerID string) (Subscription, error) {
	group := fmt.Sprintf("%s:%s", s.groupPrefix, uuid.NewString()[:8])

	if err := redispkg.CreateConsumerGroup(ctx, s.redisClient, s.stream, group, "$"); err != nil {
		return nil, &ConnectionError{Err: err}
	}

	subCtx, cancel := context.WithCancel(context.Background())
	sub := &postgresSubscription{
		store:     s,
		ownerID:   ownerID,
		group:     group,
		snapshots: make(chan []domain.VehicleRecord, 1),
		errs:      make(chan error, 1),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	s.logger.Info("store subscription opened",
		zap.String("owner_id", ownerID),
		zap.String("consumer_group", group),
	)

	go sub.run(subCtx)
	return sub, nil
}

// Insert 写入一条草稿并广播变更事件。
// 事件发布失败只告警：记录已持久化，订阅会在下一个事件时追上。
func (s *PostgresStore) Insert(ctx context.Context, ownerID string, draft domain.VehicleDraft) (string, error) {
	id, err := s.repo.CreateVehicle(ctx, ownerID, draft)
	if err != nil {
		return "", err
	}

	event := ChangeEvent{
		Type:      EventVehicleCreated,
		OwnerID:   ownerID,
		VehicleID: id,
		Source:    "api",
	}
	if _, err := redispkg.PublishJSONToStream(ctx, s.redisClient, s.stream, event); err != nil {
		s.logger.Warn("failed to publish change event",
			zap.String("vehicle_id", id),
			zap.Error(err),
		)
	}

	return id, nil
}

// Close 释放存储级资源（各订阅自行 Close）
func (s *PostgresStore) Close() error {
	return nil
}

type postgresSubscription struct {
	store     *PostgresStore
	ownerID   string
	group     string
	snapshots chan []domain.VehicleRecord
	errs      chan error
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func (sub *postgresSubscription) Snapshots() <-chan []domain.VehicleRecord {
	return sub.snapshots
}

func (sub *postgresSubscription) Errs() <-chan error {
	return sub.errs
}

// Close 幂等。等消费循环退出后销毁消费者组并关闭通道。
func (sub *postgresSubscription) Close() error {
	sub.closeOnce.Do(func() {
		sub.cancel()
		<-sub.done

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := sub.store.redisClient.XGroupDestroy(ctx, sub.store.stream, sub.group).Err(); err != nil {
			sub.store.logger.Warn("failed to destroy consumer group",
				zap.String("consumer_group", sub.group),
				zap.Error(err),
			)
		}

		close(sub.snapshots)
		close(sub.errs)

		sub.store.logger.Info("store subscription closed",
			zap.String("owner_id", sub.ownerID),
			zap.String("consumer_group", sub.group),
		)
	})
	return nil
}

func (sub *postgresSubscription) run(ctx context.Context) {
	defer close(sub.done)

	sub.deliverSnapshot(ctx)

	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		messages, err := redispkg.ReadFromStream(ctx, sub.store.redisClient, sub.store.stream, sub.group, "consumer-1", eventBatchSize)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			sub.deliverError(ctx, &ConnectionError{Err: err})

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
			continue
		}
		backoff = time.Second

		relevant := false
		for _, msg := range messages {
			event, perr := ParseChangeEvent(msg)
			if perr != nil {
				sub.deliverError(ctx, &DecodeError{Err: perr})
			} else if event.OwnerID == "" || event.OwnerID == sub.ownerID {
				relevant = true
			}
			if err := sub.store.redisClient.XAck(ctx, sub.store.stream, sub.group, msg.ID).Err(); err != nil && ctx.Err() == nil {
				sub.store.logger.Warn("failed to ack message",
					zap.String("message_id", msg.ID),
					zap.Error(err),
				)
			}
		}

		if relevant {
			sub.deliverSnapshot(ctx)
		}
	}
}

// deliverSnapshot 整表重查并交付；行损坏按解码错误交付，其余按连接错误
func (sub *postgresSubscription) deliverSnapshot(ctx context.Context) {
	records, err := sub.store.repo.ListVehicles(ctx, sub.ownerID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, repository.ErrMalformedRow) {
			sub.deliverError(ctx, &DecodeError{Err: err})
		} else {
			sub.deliverError(ctx, &ConnectionError{Err: err})
		}
		return
	}

	select {
	case sub.snapshots <- records:
	case <-ctx.Done():
	default:
		// 引擎还没取走上一份快照：丢旧换新，快照语义就是后写覆盖
		select {
		case <-sub.snapshots:
		default:
		}
		select {
		case sub.snapshots <- records:
		case <-ctx.Done():
		}
	}
}

func (sub *postgresSubscription) deliverError(ctx context.Context, err error) {
	select {
	case sub.errs <- err:
	case <-ctx.Done():
	default:
		// 错误通道满了就丢弃，引擎只关心最近的错误
	}
}
