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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/pointwatch/swtd-api/api/swagger"
	"github.com/pointwatch/swtd-api/internal/handler"
	"github.com/pointwatch/swtd-api/internal/middleware"
	"github.com/pointwatch/swtd-api/internal/models"
	"github.com/pointwatch/swtd-api/internal/repository"
	"github.com/pointwatch/swtd-api/internal/service"
	"github.com/pointwatch/swtd-api/pkg/cache"
	"github.com/pointwatch/swtd-api/pkg/config"
	"github.com/pointwatch/swtd-api/pkg/database"
	"github.com/pointwatch/swtd-api/pkg/export"
	"github.com/pointwatch/swtd-api/pkg/jobs"
	"github.com/pointwatch/swtd-api/pkg/logger"
	corsmiddleware "github.com/pointwatch/swtd-api/pkg/middleware/cors"
	reqidmiddleware "github.com/pointwatch/swtd-api/pkg/middleware/requestid"
	"github.com/pointwatch/swtd-api/pkg/storage"
)

// @title SWTD Compliance API
// @version 1.0.0
// @description Employee SWTD point tracking, validation, and clearance
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
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	userRepo := repository.NewUserRepository(db)
	termRepo := repository.NewTermRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	clearanceRepo := repository.NewClearanceRepository(db)
	reportJobRepo := repository.NewReportJobRepository(db)

	proofStore, err := storage.NewLocalStorage(cfg.Proofs.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init proof storage", "error", err)
	}
	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	proofSigner := storage.NewSignedURLSigner(cfg.Proofs.SignedURLSecret, cfg.Proofs.SignedURLTTL)
	reportSigner := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	validate := validator.New()

	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userService := service.NewUserService(userRepo, validate, logr)
	termService := service.NewTermService(termRepo, validate, logr)
	categoryService := service.NewCategoryService(categoryRepo, validate, logr)
	departmentService := service.NewDepartmentService(departmentRepo, validate, logr)
	clearanceService := service.NewClearanceService(clearanceRepo, userRepo, departmentRepo, termRepo, cacheRepo, validate, logr)

	allowedMIMEs := make(map[string]bool, len(cfg.Proofs.AllowedMIMEs))
	for _, mime := range cfg.Proofs.AllowedMIMEs {
		allowedMIMEs[mime] = true
	}
	submissionService := service.NewSubmissionService(
		submissionRepo, termRepo, categoryService, clearanceService, userRepo,
		proofStore, proofSigner,
		service.ProofConfig{MaxFileSizeBytes: cfg.Proofs.MaxFileSizeBytes, AllowedMIMEs: allowedMIMEs},
		validate, logr,
	)
	dashboardService := service.NewDashboardService(
		clearanceRepo, submissionRepo, userRepo, departmentRepo, termRepo,
		clearanceService, cacheRepo, cfg.Dashboard.CacheTTL, logr,
	)
	exportService := service.NewExportService(
		dashboardService, submissionRepo, userRepo, reportStore, reportSigner,
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL},
		logr, export.NewCSVExporter(), export.NewPDFExporter(),
	)

	reportWorker := service.NewReportWorker(reportJobRepo, exportService, cfg.Reports.WorkerRetries, logr)
	reportQueue := jobs.NewQueue("reports", reportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		BufferSize: 64,
		MaxRetries: cfg.Reports.WorkerRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	})
	reportService := service.NewReportService(reportJobRepo, reportQueue, exportService, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reportQueue.Start(ctx)
	defer reportQueue.Stop()
	reportService.RecoverPendingJobs(ctx)
	reportService.StartCleanup(ctx)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	termHandler := handler.NewTermHandler(termService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	departmentHandler := handler.NewDepartmentHandler(departmentService, userService)
	submissionHandler := handler.NewSubmissionHandler(submissionService)
	clearanceHandler := handler.NewClearanceHandler(clearanceService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	reportHandler := handler.NewReportHandler(reportService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.GET("/reports/download/:token", reportHandler.Download)
	api.GET("/submissions/proof/:token", submissionHandler.DownloadProof)

	authed := api.Group("", middleware.JWT(authService))

	authed.POST("/auth/logout", authHandler.Logout)
	authed.POST("/auth/change-password", authHandler.ChangePassword)
	authed.GET("/auth/me", authHandler.Me)

	users := authed.Group("/users")
	users.GET("", middleware.RequireRoles(models.RoleHead, models.RoleHR, models.RoleAdmin), userHandler.List)
	users.GET("/:id", middleware.RBAC("HEAD", "HR", "ADMIN", "SELF"), userHandler.Get)
	users.POST("", middleware.RequireRoles(models.RoleHR, models.RoleAdmin), middleware.Audit(userRepo, "CREATE", "user"), userHandler.Create)
	users.PUT("/:id", middleware.RequireRoles(models.RoleHR, models.RoleAdmin), middleware.Audit(userRepo, "UPDATE", "user"), userHandler.Update)
	users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), middleware.Audit(userRepo, "DEACTIVATE", "user"), userHandler.Deactivate)

	terms := authed.Group("/terms")
	terms.GET("", termHandler.List)
	terms.GET("/ongoing", termHandler.GetOngoing)
	terms.GET("/:id", termHandler.Get)
	terms.POST("", middleware.RequireRoles(models.RoleHR, models.RoleAdmin), termHandler.Create)
	terms.PUT("/:id", middleware.RequireRoles(models.RoleHR, models.RoleAdmin), termHandler.Update)
	terms.POST("/:id/ongoing", middleware.RequireRoles(models.RoleHR, models.RoleAdmin), termHandler.SetOngoing)
	terms.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), termHandler.Delete)

	categories := authed.Group("/categories")
	categories.GET("", categoryHandler.List)
	categories.GET("/:id", categoryHandler.Get)
	categories.POST("", middleware.RequireRoles(models.RoleHR, models.RoleAdmin), categoryHandler.Create)
	categories.PUT("/:id", middleware.RequireRoles(models.RoleHR, models.RoleAdmin), categoryHandler.Update)
	categories.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), categoryHandler.Delete)

	departments := authed.Group("/departments")
	departments.GET("", departmentHandler.List)
	departments.GET("/:id", departmentHandler.Get)
	departments.GET("/:id/members", middleware.RequireRoles(models.RoleHead, models.RoleHR, models.RoleAdmin), middleware.DepartmentScope(), departmentHandler.Members)
	departments.POST("", middleware.RequireRoles(models.RoleAdmin), departmentHandler.Create)
	departments.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), departmentHandler.Update)
	departments.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), departmentHandler.Delete)

	submissions := authed.Group("/submissions")
	submissions.GET("", submissionHandler.List)
	submissions.GET("/:id", submissionHandler.Get)
	submissions.POST("", submissionHandler.Create)
	submissions.PUT("/:id", submissionHandler.Update)
	submissions.DELETE("/:id", submissionHandler.Delete)
	submissions.POST("/:id/validate", middleware.RequireRoles(models.RoleHead, models.RoleHR, models.RoleAdmin), submissionHandler.Validate)
	submissions.POST("/:id/proof", submissionHandler.UploadProof)
	submissions.GET("/:id/proof-url", submissionHandler.ProofURL)

	clearance := authed.Group("/clearance")
	clearance.GET("/:id", middleware.RBAC("HEAD", "HR", "ADMIN", "SELF"), clearanceHandler.Decision)
	clearance.POST("/:id/grant", middleware.RequireRoles(models.RoleAdmin), clearanceHandler.Grant)
	clearance.POST("/:id/revoke", middleware.RequireRoles(models.RoleAdmin), clearanceHandler.Revoke)
	clearance.DELETE("/:id/override", middleware.RequireRoles(models.RoleAdmin), clearanceHandler.ClearOverride)

	dashboards := authed.Group("/dashboards")
	dashboards.GET("/employees/:id", middleware.RBAC("HEAD", "HR", "ADMIN", "SELF"), dashboardHandler.Employee)
	dashboards.GET("/departments/:id", middleware.RequireRoles(models.RoleHead, models.RoleHR, models.RoleAdmin), middleware.DepartmentScope(), dashboardHandler.Department)
	dashboards.GET("/hr", middleware.RequireRoles(models.RoleHR, models.RoleAdmin), dashboardHandler.HR)

	reports := authed.Group("/reports")
	reports.POST("/generate", reportHandler.Generate)
	reports.GET("/:id/status", reportHandler.Status)

	authed.GET("/system/metrics", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
