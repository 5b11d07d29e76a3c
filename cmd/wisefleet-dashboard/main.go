package main

import (
	"context"
	"database/sql"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wisefleet-dashboard/internal/cache"
	"wisefleet-dashboard/internal/config"
	"wisefleet-dashboard/internal/database"
	httpapi "wisefleet-dashboard/internal/http"
	"wisefleet-dashboard/internal/identity"
	"wisefleet-dashboard/internal/logger"
	"wisefleet-dashboard/internal/mqtt"
	rediscommon "wisefleet-dashboard/internal/redis"
	"wisefleet-dashboard/internal/repository"
	"wisefleet-dashboard/internal/service"
	"wisefleet-dashboard/internal/store"
	"wisefleet-dashboard/internal/telemetry"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefleet-dashboard")
	if err != nil {
		stdlog.Fatalf("Failed to initialize logger: %v", err)
	}
	defer log.Sync()

	log.Info("Starting wisefleet-dashboard",
		zap.String("owner_id", cfg.OwnerID),
		zap.Bool("db_enabled", cfg.DBEnabled),
		zap.Bool("mqtt_enabled", cfg.MQTT.Enabled),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis：变更事件流和视图缓存共用一个客户端
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	redisUp := true
	if err := rediscommon.Ping(ctx, redisClient); err != nil {
		redisUp = false
		log.Warn("Redis unreachable, view cache and change events disabled", zap.Error(err))
	}

	var viewCache *cache.ViewCache
	if redisUp {
		viewCache = cache.NewViewCache(
			cache.NewRedisKV(redisClient),
			time.Duration(cfg.ViewCache.TTLSeconds)*time.Second,
			log,
		)
	}

	// 存储：Postgres + Redis 事件流；任一不可用时退回内存存储，
	// 保证本地 `go run` 也能看到数据
	var (
		db           *sql.DB
		vehiclesRepo repository.VehiclesRepository
		recordStore  store.RecordStore
	)
	if cfg.DBEnabled && redisUp {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			repo := repository.NewPostgresVehiclesRepository(db)
			vehiclesRepo = repo
			recordStore = store.NewPostgresStore(repo, redisClient, log, cfg.Events.Stream, cfg.Events.ConsumerGroup)
			log.Info("Postgres store enabled")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		}
	}
	if recordStore == nil {
		recordStore = store.NewMemoryStore()
		log.Info("using in-memory store")
	}

	engine := service.NewFleetViewEngine(
		recordStore,
		identity.NewStaticProvider(cfg.OwnerID),
		viewCache,
		log,
	)
	engine.Start(ctx)

	// 里程遥测接入（可选）：写路径走 Postgres，事件走 Redis 流
	var (
		mqttClient        *mqtt.Client
		telemetryConsumer *telemetry.TelemetryConsumer
	)
	if cfg.MQTT.Enabled {
		switch {
		case vehiclesRepo == nil || !redisUp:
			log.Warn("telemetry requires Postgres and Redis, consumer disabled")
		default:
			mc, err := mqtt.NewClient(&cfg.MQTT, log)
			if err != nil {
				log.Warn("MQTT connection failed, telemetry disabled", zap.Error(err))
				break
			}
			mqttClient = mc
			telemetryConsumer = telemetry.NewTelemetryConsumer(
				cfg.MQTT.Topic,
				cfg.Events.Stream,
				mc,
				redisClient,
				vehiclesRepo,
				log,
			)
			go func() {
				if err := telemetryConsumer.Start(ctx); err != nil {
					log.Error("telemetry consumer exited", zap.Error(err))
				}
			}()
		}
	}

	var vinClient *service.VINClient
	if cfg.VIN.BaseURL != "" {
		vinClient = service.NewVINClient(cfg.VIN.BaseURL, time.Duration(cfg.VIN.TimeoutSeconds)*time.Second, log)
	}

	router := httpapi.NewRouter(log)
	router.RegisterFleetRoutes(httpapi.NewFleetHandler(engine, vinClient, log))
	router.RegisterLiveRoutes(httpapi.NewLiveFeedHandler(engine, log))
	router.RegisterMetricsRoute()

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("HTTP server failed", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)

	if telemetryConsumer != nil {
		_ = telemetryConsumer.Stop(shutdownCtx)
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	engine.Stop()
	_ = recordStore.Close()
	_ = rediscommon.Close(redisClient)
	if db != nil {
		_ = db.Close()
	}

	log.Info("Service stopped")
}
