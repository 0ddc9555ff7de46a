package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	_ "github.com/JoshuaMusyokar/real-estate-sub004/api/swagger"
	"github.com/JoshuaMusyokar/real-estate-sub004/internal/handler"
	"github.com/JoshuaMusyokar/real-estate-sub004/internal/middleware"
	"github.com/JoshuaMusyokar/real-estate-sub004/internal/repository"
	"github.com/JoshuaMusyokar/real-estate-sub004/internal/service"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/cache"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/config"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/contract"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/database"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/jobs"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/logger"
	corsmiddleware "github.com/JoshuaMusyokar/real-estate-sub004/pkg/middleware/cors"
	reqidmiddleware "github.com/JoshuaMusyokar/real-estate-sub004/pkg/middleware/requestid"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/storage"
)

// @title Real Estate Admin API
// @version 1.0.0
// @description Users, roles, permissions and property listings for the real-estate admin panel.
// @BasePath /api/v1
// @schemes http https
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	checks := map[string]handler.Pinger{"database": db}

	cacheEnabled := cfg.Cache.Enabled
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, response cache disabled", zap.Error(err))
		cacheEnabled = false
		redisClient = nil
	} else {
		defer redisClient.Close()
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	metrics := service.NewMetricsService()
	if err := metrics.RegisterCollector(collectors.NewDBStatsCollector(db.DB, cfg.Database.Name)); err != nil {
		logr.Warn("db stats collector not registered", zap.Error(err))
	}
	validate := contract.NewValidator()

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	propertyRepo := repository.NewPropertyRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cacheEnabled)

	permissionSvc := service.NewPermissionService(permissionRepo, auditRepo, cacheSvc, validate, logr)
	roleSvc := service.NewRoleService(roleRepo, permissionRepo, auditRepo, cacheSvc, validate, logr)
	userSvc := service.NewUserService(userRepo, roleRepo, locationRepo, auditRepo, cacheSvc, validate, logr)
	rbacSvc := service.NewRBACService(userRepo, roleRepo, cacheSvc, cfg.RBAC.SuperAdminRole, logr)
	authSvc := service.NewAuthService(userRepo, rbacSvc, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	propertySvc := service.NewPropertyService(propertyRepo, locationRepo, auditRepo, cacheSvc, validate, logr)
	locationSvc := service.NewLocationService(locationRepo, cacheSvc)

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(userRepo, roleRepo, exportStore, signer, metrics, auditRepo, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
		MaxRows:   cfg.Exports.MaxRows,
	}, logr)

	worker := service.NewExportWorker(exportJobRepo, exportSvc, cfg.Exports.WorkerRetries, logr)
	exportQueue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})
	exportQueue.Start(ctx)
	defer exportQueue.Stop()
	if err := metrics.RegisterCollector(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "export_queue_pending",
		Help: "Export jobs waiting for a worker",
	}, func() float64 {
		return float64(exportQueue.Stats().Pending)
	})); err != nil {
		logr.Warn("export queue gauge not registered", zap.Error(err))
	}

	exportJobSvc := service.NewExportJobService(exportJobRepo, exportQueue, exportSvc, auditRepo, logr, service.ExportJobServiceConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})
	exportJobSvc.RecoverPendingJobs(ctx)
	exportJobSvc.StartCleanup(ctx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	registerRoutes(r, cfg, routeDeps{
		tokens: authSvc,
		rbac:   middleware.NewRBAC(rbacSvc, metrics, auditRepo),

		auth:        handler.NewAuthHandler(authSvc),
		permissions: handler.NewPermissionHandler(permissionSvc, rbacSvc),
		roles:       handler.NewRoleHandler(roleSvc),
		users:       handler.NewUserHandler(userSvc, exportSvc, exportJobSvc),
		properties:  handler.NewPropertyHandler(propertySvc),
		locations:   handler.NewLocationHandler(locationSvc),
		metrics:     handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
