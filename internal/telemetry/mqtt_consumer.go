package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"wisefleet-dashboard/internal/domain"
	"wisefleet-dashboard/internal/metrics"
	mqttcommon "wisefleet-dashboard/internal/mqtt"
	rediscommon "wisefleet-dashboard/internal/redis"
	"wisefleet-dashboard/internal/repository"
	"wisefleet-dashboard/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// OdometerReading 车载终端上报的里程读数。
// mileage 宽容解码（字符串数字也接受）；recorded_at 可选，仅用于日志。
type OdometerReading struct {
	Mileage    domain.FlexInt `json:"mileage"`
	RecordedAt string         `json:"recorded_at,omitempty"`
}

// TelemetryConsumer 订阅车辆遥测主题，把里程读数写入存储并发布变更事件。
// 低于已存里程的读数直接忽略，里程表不会倒走。
type TelemetryConsumer struct {
	topic        string
	stream       string
	mqttClient   *mqttcommon.Client
	redisClient  *redis.Client
	vehiclesRepo repository.VehiclesRepository
	logger       *zap.Logger
	metrics      *Metrics
}

// NewTelemetryConsumer 创建遥测消费者
func NewTelemetryConsumer(
	topic string,
	stream string,
	mqttClient *mqttcommon.Client,
	redisClient *redis.Client,
	vehiclesRepo repository.VehiclesRepository,
	logger *zap.Logger,
) *TelemetryConsumer {
	return &TelemetryConsumer{
		topic:        topic,
		stream:       stream,
		mqttClient:   mqttClient,
		redisClient:  redisClient,
		vehiclesRepo: vehiclesRepo,
		logger:       logger,
		metrics:      NewMetrics(),
	}
}

// Start 启动消费者，阻塞到 ctx 取消
func (c *TelemetryConsumer) Start(ctx context.Context) error {
	if err := c.mqttClient.Subscribe(c.topic, 1, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to telemetry topic: %w", err)
	}

	c.logger.Info("telemetry consumer started",
		zap.String("topic", c.topic),
	)

	go c.reportMetrics(ctx)

	<-ctx.Done()
	return nil
}

// Stop 停止消费者
func (c *TelemetryConsumer) Stop(ctx context.Context) error {
	if err := c.mqttClient.Unsubscribe(c.topic); err != nil {
		c.logger.Error("failed to unsubscribe from telemetry topic", zap.Error(err))
	}

	c.logger.Info("telemetry consumer stopped")
	return nil
}

// handleMessage 处理一条遥测消息
// 主题格式: wisefleet/{vehicle_id}/telemetry
func (c *TelemetryConsumer) handleMessage(topic string, payload []byte) error {
	c.metrics.IncrementReceived()

	c.logger.Debug("received telemetry message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	vehicleID, err := VehicleIDFromTopic(topic)
	if err != nil {
		c.metrics.IncrementFailed("parse")
		metrics.RecordTelemetryReading("failed")
		return err
	}

	var reading OdometerReading
	if err := json.Unmarshal(payload, &reading); err != nil {
		c.metrics.IncrementFailed("parse")
		metrics.RecordTelemetryReading("failed")
		c.logger.Error("failed to unmarshal telemetry payload",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal telemetry payload: %w", err)
	}

	mileage := int(reading.Mileage)
	if mileage <= 0 {
		// 宽容解码把垃圾值变成 0，0 也不可能超过任何已存里程
		c.metrics.IncrementIgnored()
		metrics.RecordTelemetryReading("ignored")
		c.logger.Debug("ignoring non-positive odometer reading",
			zap.String("vehicle_id", vehicleID),
			zap.Int("mileage", mileage),
		)
		return nil
	}

	ownerID, err := c.vehiclesRepo.UpdateVehicleMileage(context.Background(), vehicleID, mileage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// 车辆不存在，或读数不高于已存里程
			c.metrics.IncrementIgnored()
			metrics.RecordTelemetryReading("ignored")
			c.logger.Debug("odometer reading ignored",
				zap.String("vehicle_id", vehicleID),
				zap.Int("mileage", mileage),
			)
			return nil
		}
		c.metrics.IncrementFailed("update")
		metrics.RecordTelemetryReading("failed")
		c.logger.Error("failed to update vehicle mileage",
			zap.String("vehicle_id", vehicleID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to update vehicle mileage: %w", err)
	}

	event := store.ChangeEvent{
		Type:      store.EventMileageUpdated,
		OwnerID:   ownerID,
		VehicleID: vehicleID,
		Source:    "telemetry",
	}
	streamID, err := rediscommon.PublishJSONToStream(context.Background(), c.redisClient, c.stream, event)
	if err != nil {
		c.metrics.IncrementFailed("publish")
		metrics.RecordTelemetryReading("failed")
		c.logger.Error("failed to publish mileage update event",
			zap.String("stream", c.stream),
			zap.String("vehicle_id", vehicleID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish to stream: %w", err)
	}

	c.metrics.IncrementAccepted()
	metrics.RecordTelemetryReading("accepted")
	c.logger.Info("odometer reading applied",
		zap.String("vehicle_id", vehicleID),
		zap.String("owner_id", ownerID),
		zap.Int("mileage", mileage),
		zap.String("recorded_at", reading.RecordedAt),
		zap.String("stream_id", streamID),
	)

	return nil
}

// reportMetrics 定期报告指标（每60秒）
func (c *TelemetryConsumer) reportMetrics(ctx context.Context) {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := c.metrics.GetSnapshot()
			uptime := time.Since(snapshot.StartTime)

			acceptRate := float64(0)
			if snapshot.ReadingsReceived > 0 {
				acceptRate = float64(snapshot.ReadingsAccepted) / float64(snapshot.ReadingsReceived) * 100
			}

			c.logger.Info("telemetry metrics report",
				zap.Int64("readings_received", snapshot.ReadingsReceived),
				zap.Int64("readings_accepted", snapshot.ReadingsAccepted),
				zap.Int64("readings_ignored", snapshot.ReadingsIgnored),
				zap.Int64("readings_failed", snapshot.ReadingsFailed),
				zap.Float64("accept_rate", acceptRate),
				zap.Int64("errors_parse", snapshot.ErrorsParse),
				zap.Int64("errors_update", snapshot.ErrorsUpdate),
				zap.Int64("errors_publish", snapshot.ErrorsPublish),
				zap.Duration("uptime", uptime),
			)
		}
	}
}

// VehicleIDFromTopic 从主题中提取车辆 id
// 主题格式: wisefleet/{vehicle_id}/telemetry
func VehicleIDFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "wisefleet" || parts[2] != "telemetry" || parts[1] == "" {
		return "", fmt.Errorf("invalid telemetry topic: %s", topic)
	}
	return parts[1], nil
}
