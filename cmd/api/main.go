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

	_ "github.com/tutordesk/tutordesk-api/api/swagger"
	"github.com/tutordesk/tutordesk-api/internal/handler"
	"github.com/tutordesk/tutordesk-api/internal/middleware"
	"github.com/tutordesk/tutordesk-api/internal/repository"
	"github.com/tutordesk/tutordesk-api/internal/service"
	"github.com/tutordesk/tutordesk-api/pkg/cache"
	"github.com/tutordesk/tutordesk-api/pkg/config"
	"github.com/tutordesk/tutordesk-api/pkg/database"
	"github.com/tutordesk/tutordesk-api/pkg/jobs"
	"github.com/tutordesk/tutordesk-api/pkg/logger"
	corsmiddleware "github.com/tutordesk/tutordesk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tutordesk/tutordesk-api/pkg/middleware/requestid"
	"github.com/tutordesk/tutordesk-api/pkg/storage"
)

// @title TutorDesk API
// @version 1.0.0
// @description Administration backend for private tutors: classes, students, attendance sheets, invoices and payments.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis is optional: without it the schedule fallback cache is disabled
	// and lookups go straight to the full-month default.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, schedule fallback cache disabled", "error", err)
		redisClient = nil
	}

	localStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	validate := validator.New()

	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	metricsSvc := service.NewMetricsService()
	classSvc := service.NewClassService(classRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, classRepo, cacheRepo, cfg.Schedule.FallbackCacheTTL, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, scheduleSvc, validate, logr)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, attendanceRepo, classRepo, studentRepo, scheduleRepo, validate, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, invoiceRepo, studentRepo, validate, logr)
	exportSvc := service.NewExportService(attendanceSvc, classRepo, localStorage, signer, validate, logr)

	invoiceQueue := jobs.NewQueue("invoices", invoiceSvc.HandleGenerateJob, jobs.QueueConfig{
		Workers:    cfg.Invoices.WorkerConcurrency,
		MaxRetries: cfg.Invoices.WorkerRetries,
		Logger:     logr,
	})
	invoiceQueue.Start(ctx)
	defer invoiceQueue.Stop()
	invoiceSvc.AttachQueue(invoiceQueue)

	classHandler := handler.NewClassHandler(classSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, metricsSvc)
	invoiceHandler := handler.NewInvoiceHandler(invoiceSvc, paymentSvc, metricsSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
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
	api.Use(middleware.JWT(cfg.JWT.Secret))
	{
		api.GET("/classes", classHandler.List)
		api.POST("/classes", classHandler.Create)
		api.GET("/classes/:id", classHandler.Get)
		api.DELETE("/classes/:id", classHandler.Delete)
		api.GET("/classes/:id/schedule", scheduleHandler.Month)
		api.PUT("/classes/:id/schedule", scheduleHandler.Replace)
		api.GET("/classes/:id/attendance", attendanceHandler.Sheet)

		api.GET("/students", studentHandler.List)
		api.POST("/students", studentHandler.Create)
		api.GET("/students/:id", studentHandler.Get)
		api.PUT("/students/:id", studentHandler.Update)

		api.PUT("/attendance", attendanceHandler.Save)

		api.GET("/invoices", invoiceHandler.List)
		api.POST("/invoices", invoiceHandler.Generate)
		api.POST("/invoices/batch", invoiceHandler.GenerateBatch)
		api.GET("/invoices/:id", invoiceHandler.Get)
		api.GET("/invoices/:id/payments", invoiceHandler.ListPayments)
		api.POST("/invoices/:id/payments", invoiceHandler.RecordPayment)

		api.POST("/exports/attendance", exportHandler.Export)
	}
	// Downloads authenticate via the signed token itself.
	r.GET(cfg.APIPrefix+"/exports/download/:token", exportHandler.Download)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
