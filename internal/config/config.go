package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config wisefleet-dashboard 服务配置（全部来自环境变量）
type Config struct {
	HTTP struct {
		Addr string
	}

	// 车队所属 owner（引擎按单 owner 运行；owner 变更通过身份层通知）
	OwnerID string

	DBEnabled bool
	Database  DatabaseConfig
	Redis     RedisConfig

	// 车辆变更事件流（Postgres 存储的变更通知通道）
	Events struct {
		Stream        string // 事件流名称，如 "fleet:events:stream"
		ConsumerGroup string // 消费者组名称，如 "fleet-view-group"
	}

	// 视图缓存
	ViewCache struct {
		TTLSeconds int // 完整视图缓存 TTL（秒）
	}

	MQTT MQTTConfig
	VIN  VINConfig

	Log struct {
		Level  string
		Format string
	}
}

// DatabaseConfig PostgreSQL 连接配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis 连接配置（事件流和视图缓存共用一个实例）
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig 车载终端里程遥测接入配置
type MQTTConfig struct {
	Enabled  bool
	Broker   string // 如 "tcp://localhost:1883"
	ClientID string
	Username string
	Password string
	Topic    string // 订阅主题，如 "wisefleet/+/telemetry"
}

// VINConfig VIN 解码服务（vPIC 风格 API）配置
type VINConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// Load 从环境变量加载配置
func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	// 空 owner 会让引擎空转等身份，本地联测给一个默认车队
	cfg.OwnerID = getEnv("OWNER_ID", "demo-fleet")

	// Default to true for local dev: if DB is unavailable the service falls
	// back to the in-memory store, so plain `go run` still shows data.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "wisefleet")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Events.Stream = getEnv("FLEET_EVENT_STREAM", "fleet:events:stream")
	cfg.Events.ConsumerGroup = getEnv("FLEET_CONSUMER_GROUP", "fleet-view-group")

	cfg.ViewCache.TTLSeconds = parseInt(getEnv("VIEW_CACHE_TTL", "10"), 10)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wisefleet-dashboard")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "wisefleet/+/telemetry")

	cfg.VIN.BaseURL = getEnv("VIN_API_BASE_URL", "https://vpic.nhtsa.dot.gov/api")
	cfg.VIN.TimeoutSeconds = parseInt(getEnv("VIN_API_TIMEOUT", "10"), 10)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, defaultValue int) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return defaultValue
}
