package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"taskmanager/backend/internal/models"
	"taskmanager/backend/pkg/config"
	"taskmanager/backend/pkg/di"
	"taskmanager/backend/pkg/health"
	"taskmanager/backend/pkg/logger"
	"taskmanager/backend/pkg/router"
	"taskmanager/backend/pkg/secrets"
	"taskmanager/backend/shared/observability"
	sharedredis "taskmanager/backend/shared/redis"
)

func main() {
	if err := godotenv.Load(); err != nil {
		stdlog.Println("No .env file found")
	}

	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application", "version", os.Getenv("APP_VERSION"), "env", cfg.Server.Env)

	if err := secrets.Init(log); err != nil {
		log.LogError(err, "Failed to initialize secrets manager")
		os.Exit(1)
	}

	// Sensitive settings come from the secrets manager when Vault is on,
	// falling back to what the environment provided.
	secretsCtx, cancelSecrets := context.WithTimeout(context.Background(), 5*time.Second)
	cfg.JWT.Secret = secrets.GetSecretWithDefault(secretsCtx, "jwt_secret", cfg.JWT.Secret)
	cfg.Database.Password = secrets.GetSecretWithDefault(secretsCtx, "db_password", cfg.Database.Password)
	cfg.Redis.Password = secrets.GetSecretWithDefault(secretsCtx, "redis_password", cfg.Redis.Password)
	cancelSecrets()

	shutdownTracing := observability.SetupTracing("taskmanager-backend")
	defer shutdownTracing()
	meterProvider := observability.SetupPrometheusMetrics()
	defer meterProvider.Shutdown(context.Background())

	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.Participant{},
		&models.Message{},
		&models.Task{},
		&models.Category{},
	); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	// Redis backs the relay fan-out; in direct mode the process runs without it.
	var redis *sharedredis.Client
	if cfg.Chat.FanoutMode == config.FanoutRelay {
		redis = sharedredis.NewClient(sharedredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redis.Close()
	}

	container, err := di.New(db, cfg, log, redis)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterDatabaseCheck(func() error {
		return config.TestConnection(db)
	})
	if redis != nil {
		checker.RegisterRedisCheck(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redis.Ping(ctx)
		})
	}
	checker.Start()

	listenCtx, stopListener := context.WithCancel(context.Background())
	defer stopListener()
	if container.RelayListener != nil {
		go container.RelayListener.Run(listenCtx)
	}

	r := router.New(container, checker)
	r.SetupRoutes()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r.Engine,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port, "fanout_mode", cfg.Chat.FanoutMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down server...")

	stopListener()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	log.Info("Server exited gracefully")
}
