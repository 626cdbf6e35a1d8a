package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/nodues-go-api/api/swagger"
	"github.com/noah-isme/nodues-go-api/internal/handler"
	"github.com/noah-isme/nodues-go-api/internal/middleware"
	"github.com/noah-isme/nodues-go-api/internal/models"
	"github.com/noah-isme/nodues-go-api/internal/repository"
	"github.com/noah-isme/nodues-go-api/internal/service"
	"github.com/noah-isme/nodues-go-api/pkg/cache"
	"github.com/noah-isme/nodues-go-api/pkg/config"
	"github.com/noah-isme/nodues-go-api/pkg/database"
	"github.com/noah-isme/nodues-go-api/pkg/logger"
	"github.com/noah-isme/nodues-go-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/nodues-go-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/nodues-go-api/pkg/middleware/requestid"
	"github.com/noah-isme/nodues-go-api/pkg/storage"
)

// @title No Dues Portal API
// @version 1.0.0
// @description Department clearance and reapplication workflow for the student no-dues portal
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsService := service.NewMetricsService()

	var cacheService *service.CacheService
	if cfg.StatusCache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, continuing without status cache", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.StatusCache.TTL, logr, true)
			defer cacheRepo.Close()
		}
	}

	formRepo := repository.NewFormRepository(db)
	statusRepo := repository.NewDepartmentStatusRepository(db)
	historyRepo := repository.NewReapplicationHistoryRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)

	var notificationService *service.NotificationService
	if cfg.Notifications.Enabled {
		smtp, err := mailer.New(mailer.Config{
			Host:     cfg.Notifications.SMTPHost,
			Port:     cfg.Notifications.SMTPPort,
			Username: cfg.Notifications.SMTPUser,
			Password: cfg.Notifications.SMTPPassword,
			From:     cfg.Notifications.SMTPFrom,
		})
		if err != nil {
			logr.Sugar().Warnw("mailer unavailable, notifications disabled", "error", err)
		} else {
			notificationService = service.NewNotificationService(outboxRepo, staffRepo, smtp, metricsService, logr, cfg.Notifications)
			notificationService.Start(context.Background())
			defer notificationService.Stop()
		}
	}

	var certificateService *service.CertificateService
	if cfg.Certificates.Enabled {
		certStorage, err := storage.NewLocalStorage(cfg.Certificates.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init certificate storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Certificates.SignedURLSecret, cfg.Certificates.SignedURLTTL)
		certificateService = service.NewCertificateService(certificateRepo, certStorage, signer, metricsService, logr)
	}

	var notifier service.NotificationPublisher
	if notificationService != nil {
		notifier = notificationService
	}
	var issuer service.CertificateIssuer
	if certificateService != nil {
		issuer = certificateService
	}

	reapplicationService := service.NewReapplicationService(
		formRepo, statusRepo, historyRepo,
		notifier, cacheService, metricsService, logr, cfg.Clearance,
	)
	clearanceService := service.NewClearanceService(
		formRepo, statusRepo, departmentRepo, certificateRepo,
		issuer, notifier, cacheService, metricsService, logr,
	)

	reapplicationHandler := handler.NewReapplicationHandler(reapplicationService)
	clearanceHandler := handler.NewClearanceHandler(clearanceService)
	departmentHandler := handler.NewDepartmentHandler(clearanceService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	var certificateHandler *handler.CertificateHandler
	if certificateService != nil {
		certificateHandler = handler.NewCertificateHandler(certificateService)
	}

	validator := middleware.NewTokenValidator(cfg.JWT.Secret)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/reapplications", reapplicationHandler.Submit)
		api.GET("/reapplications/status/:registrationNo", reapplicationHandler.Status)

		api.GET("/departments", departmentHandler.List)

		staff := api.Group("", middleware.JWT(validator), middleware.RequireRoles(models.RoleStaff, models.RoleAdmin))
		{
			staff.GET("/forms", clearanceHandler.List)
			staff.GET("/forms/export", clearanceHandler.Export)
			staff.GET("/forms/:id", clearanceHandler.Get)
			staff.POST("/forms/:id/departments/:department/approve", clearanceHandler.Approve)
			staff.POST("/forms/:id/departments/:department/reject", clearanceHandler.Reject)
		}

		if certificateHandler != nil {
			api.GET("/forms/:id/certificate", middleware.JWT(validator), certificateHandler.Token)
			api.GET("/certificates/download", certificateHandler.Download)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
