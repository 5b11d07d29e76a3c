package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg := Load()
	assert.NotNil(t, cfg)

	// 验证默认值
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "demo-fleet", cfg.OwnerID)
	assert.True(t, cfg.DBEnabled)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "postgres", cfg.Database.Password)
	assert.Equal(t, "wisefleet", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "", cfg.Redis.Password)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "fleet:events:stream", cfg.Events.Stream)
	assert.Equal(t, "fleet-view-group", cfg.Events.ConsumerGroup)
	assert.Equal(t, 10, cfg.ViewCache.TTLSeconds)

	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, "wisefleet/+/telemetry", cfg.MQTT.Topic)

	assert.Equal(t, "https://vpic.nhtsa.dot.gov/api", cfg.VIN.BaseURL)
	assert.Equal(t, 10, cfg.VIN.TimeoutSeconds)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// 设置环境变量
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("OWNER_ID", "fleet-42")
	os.Setenv("DB_ENABLED", "false")
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_PORT", "15432")
	os.Setenv("REDIS_ADDR", "test-redis:6380")
	os.Setenv("FLEET_EVENT_STREAM", "fleet:test:stream")
	os.Setenv("MQTT_ENABLED", "true")
	os.Setenv("MQTT_TOPIC", "fleet/+/odometer")
	os.Setenv("VIEW_CACHE_TTL", "30")
	os.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	// 验证环境变量覆盖
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "fleet-42", cfg.OwnerID)
	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 15432, cfg.Database.Port)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, "fleet:test:stream", cfg.Events.Stream)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "fleet/+/odometer", cfg.MQTT.Topic)
	assert.Equal(t, 30, cfg.ViewCache.TTLSeconds)
	assert.Equal(t, "debug", cfg.Log.Level)

	// 清理环境变量
	os.Clearenv()
}

func TestGetDSN(t *testing.T) {
	c := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "fleet",
		Password: "secret",
		Database: "wisefleet",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=fleet password=secret dbname=wisefleet sslmode=require",
		c.GetDSN(),
	)
}

func TestGetEnv(t *testing.T) {
	// 测试默认值
	os.Clearenv()
	value := getEnv("TEST_KEY", "default-value")
	assert.Equal(t, "default-value", value)

	// 测试环境变量存在
	os.Setenv("TEST_KEY", "env-value")
	value = getEnv("TEST_KEY", "default-value")
	assert.Equal(t, "env-value", value)

	// 清理
	os.Unsetenv("TEST_KEY")
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 42, parseInt("42", 10))
	assert.Equal(t, 10, parseInt("not-a-number", 10))
	assert.Equal(t, 10, parseInt("", 10))
}
