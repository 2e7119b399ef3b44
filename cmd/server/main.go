package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/campuswatch/checkin-fraud/internal/behavior"
	"github.com/campuswatch/checkin-fraud/internal/fraud"
	"github.com/campuswatch/checkin-fraud/pkg/common"
	"github.com/campuswatch/checkin-fraud/pkg/config"
	"github.com/campuswatch/checkin-fraud/pkg/database"
	"github.com/campuswatch/checkin-fraud/pkg/logger"
	"github.com/campuswatch/checkin-fraud/pkg/middleware"
	redisClient "github.com/campuswatch/checkin-fraud/pkg/redis"
)

const serviceName = "checkin-fraud"

// version is stamped at build time via -ldflags.
var version = "dev"

func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Second)
}

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Database.Migrations != "" {
		if err := runMigrations(cfg); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Migrations applied")
	}

	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(pool)
	logger.Info("Connected to PostgreSQL")

	retention := time.Duration(cfg.Fraud.RetentionDays) * 24 * time.Hour

	var store behavior.Store
	var redisCheck func() error
	if cfg.Redis.Enabled {
		rdb, err := redisClient.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		store = behavior.NewRedisStore(rdb, cfg.Fraud.MaxAttemptHistory, retention)
		redisCheck = func() error {
			ctx, cancel := contextWithTimeout()
			defer cancel()
			return rdb.Ping(ctx).Err()
		}
		logger.Info("Behavior store backed by Redis")
	} else {
		store = behavior.NewMemoryStore(cfg.Fraud.MaxAttemptHistory)
		logger.Info("Behavior store in memory")
	}

	detector := fraud.NewDetector(&cfg.Fraud)
	repo := fraud.NewRepository(pool)
	service := fraud.NewService(detector, store, repo)
	handler := fraud.NewHandler(service)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery())
	router.Use(middleware.Metrics())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.CORSOrigins, ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.CorrelationIDHeader}
	router.Use(cors.New(corsConfig))

	checks := map[string]func() error{
		"postgres": func() error {
			ctx, cancel := contextWithTimeout()
			defer cancel()
			return pool.Ping(ctx)
		},
	}
	if redisCheck != nil {
		checks["redis"] = redisCheck
	}
	router.GET("/healthz", common.HealthCheck(serviceName, version, checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/checkins/evaluate", handler.EvaluateCheckin)
		api.POST("/checkins/outcome", handler.RecordOutcome)
		api.GET("/students/:student_id/behavior", handler.GetBehaviorPattern)
		api.GET("/students/:student_id/alerts", handler.GetStudentAlerts)
		api.GET("/alerts/pending", handler.GetPendingAlerts)
		api.GET("/alerts/:alert_id", handler.GetAlert)
		api.PUT("/alerts/:alert_id/status", handler.UpdateAlertStatus)
	}

	addr := ":" + cfg.Server.Port
	logger.Info("Check-in fraud service starting", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

func runMigrations(cfg *config.Config) error {
	m, err := migrate.New("file://"+cfg.Database.Migrations, cfg.Database.MigrateURL())
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
