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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/api/swagger"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/handler"
	internalmiddleware "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/middleware"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/repository"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/service"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/cache"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/config"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/database"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/export"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/jobs"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/logger"
	corsmiddleware "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/middleware/cors"
	reqidmiddleware "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/middleware/requestid"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/storage"
)

// @title DakPad API
// @version 1.0.0
// @description Citizen grievance intake, assignment and tracking for block offices.
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

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	applicationRepo := repository.NewApplicationRepository(db)
	officialRepo := repository.NewOfficialRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, "dakpad:")
	idempotencyRepo := repository.NewIdempotencyRepository(redisClient, "dakpad:idem:")

	metricsSvc := service.NewMetricsService()
	validate := service.NewValidator()

	auditSvc := service.NewAuditService(auditRepo, metricsSvc, logr)
	auditQueue := jobs.NewQueue("audit", auditSvc.Handle, jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		MaxRetries: cfg.Audit.MaxRetries,
		RetryDelay: cfg.Audit.RetryDelay,
		OnDrop:     auditSvc.Dropped,
		Logger:     logr,
	})
	auditQueue.Start(context.Background())
	defer auditQueue.Stop()
	auditSvc.UseQueue(auditQueue)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Tracking.CacheTTL, logr, cfg.Tracking.CacheEnabled)

	applicationSvc := service.NewApplicationService(service.ApplicationServiceParams{
		Repo:        applicationRepo,
		Officers:    officialRepo,
		Validator:   validate,
		Audit:       auditSvc,
		Cache:       cacheSvc,
		Metrics:     metricsSvc,
		Logger:      logr,
		Location:    cfg.Timeline.Location(),
		TrackingTTL: cfg.Tracking.CacheTTL,
	})
	authSvc := service.NewAuthService(officialRepo, auditSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	officialSvc := service.NewOfficialService(officialRepo, auditSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Repo:   applicationRepo,
		Cache:  cacheSvc,
		Logger: logr,
		Config: service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})
	exportSvc := service.NewExportService(applicationRepo, auditSvc, service.ExportConfig{}, logr,
		export.NewCSVExporter(), export.NewPDFExporter("DakPad grievance register"))

	attachmentStore, err := storage.NewLocalStorage(cfg.Attachments.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare attachment storage", zap.Error(err))
	}
	attachmentSvc := service.NewAttachmentService(
		attachmentStore,
		storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL),
		auditSvc,
		logr,
		service.AttachmentServiceConfig{
			APIPrefix:    cfg.APIPrefix,
			MaxFileSize:  cfg.Attachments.MaxFileSizeBytes,
			AllowedMIMEs: cfg.Attachments.AllowedMIMEs,
		},
	)

	healthHandler := handler.NewHealthHandler(metricsSvc, map[string]handler.Pinger{
		"postgres": db.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})
	applicationHandler := handler.NewApplicationHandler(applicationSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	officialHandler := handler.NewOfficialHandler(officialSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	attachmentHandler := handler.NewAttachmentHandler(attachmentSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", healthHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/track/:applicantId", applicationHandler.Track)
	api.GET("/attachments/download", attachmentHandler.Download)

	authGroup := api.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))

	securedAuth := secured.Group("/auth")
	securedAuth.POST("/logout", authHandler.Logout)
	securedAuth.POST("/change-password", authHandler.ChangePassword)
	securedAuth.GET("/me", authHandler.Me)

	admins := internalmiddleware.RequireRoles(models.RoleAdmin)
	supervisors := internalmiddleware.RequireRoles(models.RoleSupervisor)
	anyOfficial := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSupervisor)

	secured.GET("/officers", anyOfficial, officialHandler.Officers)
	secured.GET("/officials", supervisors, officialHandler.List)
	secured.POST("/officials", supervisors, officialHandler.Create)

	lifecycle := []gin.HandlerFunc{anyOfficial}
	if cfg.Idempotency.Enabled {
		lifecycle = append(lifecycle, internalmiddleware.Idempotency(idempotencyRepo, cfg.Idempotency.TTL, logr))
	}

	applications := secured.Group("/applications")
	applications.GET("", anyOfficial, applicationHandler.List)
	applications.GET("/export", supervisors, exportHandler.Register)
	applications.POST("", admins, applicationHandler.Create)
	applications.GET("/:applicantId", anyOfficial, applicationHandler.Get)
	applications.GET("/:applicantId/timeline.pdf", anyOfficial, exportHandler.Timeline)
	applications.POST("/:applicantId/assign", chain(lifecycle, applicationHandler.Assign)...)
	applications.POST("/:applicantId/compliance", chain(lifecycle, applicationHandler.MarkCompliance)...)
	applications.POST("/:applicantId/dispose", chain(lifecycle, applicationHandler.Dispose)...)

	secured.GET("/dashboard/summary", anyOfficial, dashboardHandler.Summary)

	attachments := secured.Group("/attachments")
	attachments.POST("", anyOfficial, attachmentHandler.Upload)
	attachments.GET("/link", anyOfficial, attachmentHandler.Link)

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
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// chain returns a fresh handler slice so routes never share a backing array.
func chain(middleware []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(middleware)+1)
	out = append(out, middleware...)
	return append(out, handler)
}
