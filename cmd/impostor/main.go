package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"sudooom.impostor/internal/config"
	"sudooom.impostor/internal/connection"
	"sudooom.impostor/internal/handler"
	"sudooom.impostor/internal/health"
	natsclient "sudooom.impostor/internal/nats"
	"sudooom.impostor/internal/repository"
	"sudooom.impostor/internal/router"
	"sudooom.impostor/internal/session"
	"sudooom.impostor/internal/store"
	"sudooom.impostor/internal/translate"
	"sudooom.impostor/internal/words"
	"sudooom.impostor/internal/workerpool"
)

func main() {
	// 本地开发时从 .env 读取环境变量
	envErr := godotenv.Load()
	if errors.Is(envErr, fs.ErrNotExist) {
		envErr = nil
	}

	// 加载配置，配置文件缺失时使用默认值与环境变量
	configPath := config.GetEnv("IMPOSTOR_CONFIG", "configs/config.yaml")
	cfg, err := config.Load(configPath)
	if err != nil {
		cfg = config.Default()
	}

	// 初始化日志
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	if err != nil {
		logger.Warn("Config file not loaded, using defaults", "path", configPath, "error", err)
	}
	if envErr != nil {
		logger.Warn("Failed to read .env", "error", envErr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 共享存储
	var (
		connector   store.Connector
		redisClient *redis.Client
		nc          *nats.Conn
	)
	switch cfg.Store.Driver {
	case "redis":
		redisClient = connectRedis(cfg.Redis)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		logger.Info("Connected to Redis", "host", cfg.Redis.Host)

		var notifier store.Notifier = store.NewLocalNotifier()
		if cfg.NATS.URL != "" {
			nc, err = natsclient.Connect(cfg.NATS, logger)
			if err != nil {
				logger.Error("Failed to connect to NATS", "error", err)
				os.Exit(1)
			}
			defer natsclient.Close(nc, logger)
			notifier = store.NewNATSNotifier(nc)
			logger.Info("Connected to NATS", "url", cfg.NATS.URL)
		}

		redisStore := store.NewRedis(redisClient, notifier, store.RedisOptions{
			KeyPrefix:         cfg.Store.KeyPrefix,
			DocumentTTL:       cfg.Session.RoomTTL,
			PresenceTTL:       cfg.Presence.TTL,
			HeartbeatInterval: cfg.Presence.HeartbeatInterval,
		})
		go redisStore.RunReaper(ctx, cfg.Presence.ReapInterval)
		connector = redisStore
	case "memory":
		connector = store.NewMemory()
	default:
		logger.Error("Unknown store driver", "driver", cfg.Store.Driver)
		os.Exit(1)
	}
	logger.Info("Store ready", "driver", cfg.Store.Driver)

	// 对局记录（可选）
	var (
		db         *pgxpool.Pool
		recorder   session.ResultRecorder
		results    handler.ResultLister
		recordPool *workerpool.Pool
	)
	if cfg.Database.Enabled {
		db, err = connectDatabase(ctx, cfg.Database)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		resultRepo := repository.NewResultRepository(db)
		if err := resultRepo.EnsureSchema(ctx); err != nil {
			logger.Error("Failed to prepare schema", "error", err)
			os.Exit(1)
		}
		recordPool = workerpool.New(2, 64, logger)
		recorder = repository.NewAsyncRecorder(resultRepo, recordPool, 5*time.Second)
		results = resultRepo
		logger.Info("Connected to PostgreSQL", "host", cfg.Database.Host)
	}

	catalog, err := words.Default()
	if err != nil {
		logger.Error("Failed to load word catalog", "error", err)
		os.Exit(1)
	}

	deps := session.Dependencies{
		Words: catalog,
		Translator: translate.NewClient(translate.Options{
			GoogleURL:   cfg.Translate.GoogleURL,
			MyMemoryURL: cfg.Translate.MyMemoryURL,
			Timeout:     cfg.Translate.Timeout,
		}),
		Recorder: recorder,
	}
	sessionCfg := session.Config{
		MinPlayers:        cfg.Session.MinPlayers,
		CodeRetries:       cfg.Session.CodeRetries,
		ReconcileInterval: cfg.Session.ReconcileInterval,
		HostLossRecheck:   cfg.Session.HostLossRecheck,
	}

	// 客户端会话与心跳检测
	manager := connection.NewManager()
	sweeper := connection.NewIdleSweeper(manager, cfg.Presence.ClientTimeout, cfg.Presence.ClientCheckInterval, logger)
	go sweeper.Run(ctx)

	roomHandler := handler.NewRoomHandler(connector, deps, sessionCfg, manager, results)

	healthChecker := health.NewChecker(cfg.Store.Driver, nc, redisClient, db, manager)

	// 设置路由
	r := router.SetupRouter(cfg, manager, roomHandler, healthChecker)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: r,
	}
	go func() {
		logger.Info("Impostor server started", "addr", srv.Addr, "mode", cfg.App.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}

	// 关闭剩余会话，执行其断开动作
	for _, conn := range manager.GetAllConnections() {
		if err := conn.Close(shutdownCtx); err != nil {
			logger.Warn("Failed to close session", "sessionId", conn.ID(), "error", err)
		}
		manager.Remove(conn.ID())
	}

	if recordPool != nil {
		if err := recordPool.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Pending game results dropped", "error", err)
		}
	}

	cancel()
	logger.Info("Server stopped")
}

// connectDatabase 连接 PostgreSQL
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = 10 * time.Minute

	return pgxpool.NewWithConfig(ctx, poolConfig)
}

// connectRedis 连接 Redis
func connectRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}
