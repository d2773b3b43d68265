package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/schoolsnap-attendance-api/api/swagger"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/backend"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/handler"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/repository"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/service"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/cache"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/config"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/database"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/logger"
)

// @title SchoolSnap Attendance API
// @version 1.0.0
// @description Gateway in front of the SchoolSnap backend: attendance sessions, rosters and normalised reads.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	checks := map[string]handler.Pinger{}

	var redisClient *redis.Client
	if cfg.Roster.CacheEnabled || cfg.Sessions.Store == config.SessionStoreRedis {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close() //nolint:errcheck
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Roster.CacheTTL, logr, cfg.Roster.CacheEnabled && redisClient != nil)

	var store service.SessionStore
	if cfg.Sessions.Store == config.SessionStoreRedis {
		store = repository.NewRedisSessionStore(redisClient, cfg.Sessions.TTL)
	} else {
		memory := repository.NewMemorySessionStore(cfg.Sessions.TTL, logr)
		go memory.Run(ctx, time.Minute)
		store = memory
	}

	var db *sqlx.DB
	audit := service.NewAuditService(nil, service.AuditConfig{}, logr)
	if cfg.Submission.AuditEnabled {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer db.Close() //nolint:errcheck
		checks["postgres"] = handler.PingFunc(db.PingContext)

		submissions := repository.NewSubmissionRepository(db, repository.WithQueryObserver(metrics.ObserveDBQuery))
		if err := submissions.EnsureSchema(ctx); err != nil {
			logr.Fatal("failed to prepare submission audit schema", zap.Error(err))
		}
		audit = service.NewAuditService(submissions, service.AuditConfig{Workers: cfg.Submission.Workers, Retries: cfg.Submission.Retries}, logr)
	}
	audit.Start(context.Background())
	defer audit.Stop()

	client := backend.New(cfg.Backend, logr, backend.WithObserver(metrics, metrics.ObserveNormalized))

	app := &application{
		cfg:     cfg,
		logger:  logr,
		metrics: metrics,
		checks:  checks,
		auth:    service.NewAuthService(service.AuthConfig{Secret: cfg.JWT.Secret}, logr),
		sessions: service.NewSessionService(
			store,
			service.NewRosterService(client, cacheSvc, cfg.Roster, logr),
			client,
			cacheSvc,
			audit,
			metrics,
			service.SessionServiceConfig{WindowDays: cfg.Sessions.WindowDays, RosterPageSize: cfg.Roster.PageSize},
			logr,
		),
		grades:     service.NewGradeService(client, cacheSvc, cfg.Roster.CacheTTL, logr),
		attendance: service.NewAttendanceService(client, cacheSvc, cfg.Roster.CacheTTL, logr),
		feedback:   service.NewFeedbackService(client, nil, logr),
		likes:      service.NewLikesService(),
		audit:      audit,
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env,
			"session_store", cfg.Sessions.Store, "degraded_mode", cfg.Backend.DegradedMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
