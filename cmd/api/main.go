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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/hostelhq/maintenance-api/api/swagger"
	"github.com/hostelhq/maintenance-api/internal/handler"
	"github.com/hostelhq/maintenance-api/internal/middleware"
	"github.com/hostelhq/maintenance-api/internal/repository"
	"github.com/hostelhq/maintenance-api/internal/service"
	"github.com/hostelhq/maintenance-api/pkg/cache"
	"github.com/hostelhq/maintenance-api/pkg/config"
	"github.com/hostelhq/maintenance-api/pkg/database"
	"github.com/hostelhq/maintenance-api/pkg/export"
	"github.com/hostelhq/maintenance-api/pkg/jobs"
	"github.com/hostelhq/maintenance-api/pkg/logger"
	corsmiddleware "github.com/hostelhq/maintenance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/hostelhq/maintenance-api/pkg/middleware/requestid"
	"github.com/hostelhq/maintenance-api/pkg/storage"
)

// @title Hostel Maintenance API
// @version 0.1.0
// @description Maintenance request workflow engine for hostel and PG operators
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
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
		redisClient = nil
	}

	files, err := storage.NewLocalStorage(cfg.Certificates.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare certificate storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Certificates.SignedURLSecret, cfg.Certificates.SignedURLTTL)

	requestRepo := repository.NewRequestRepository(db)
	hostelRepo := repository.NewHostelRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	costRepo := repository.NewCostRepository(db)
	completionRepo := repository.NewCompletionRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metrics := service.NewMetricsService()

	emitter := service.NewQueueEmitter(jobs.QueueConfig{
		Workers:    cfg.Events.Workers,
		BufferSize: cfg.Events.BufferSize,
		Logger:     logr,
	}, logr, service.LoggingSink(logr), service.MetricsSink(metrics))
	emitter.Start(ctx)
	defer emitter.Stop()

	threshold := service.NewThresholdPolicy(cfg.Approval)
	approvalSvc := service.NewApprovalService(approvalRepo, requestRepo, auditRepo, emitter, cfg.Approval, nil, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, requestRepo, auditRepo, nil, logr)
	workflowSvc := service.NewWorkflowService(requestRepo, hostelRepo, sequenceRepo, threshold,
		approvalSvc, assignmentSvc, auditRepo, emitter, cfg.Approval, nil, logr)
	costSvc := service.NewCostService(costRepo, requestRepo, approvalRepo, auditRepo, cfg.Cost, nil, logr)
	completionSvc := service.NewCompletionService(completionRepo, requestRepo, hostelRepo,
		workflowSvc, assignmentSvc, costSvc, sequenceRepo, export.NewCertificatePDF(), files,
		auditRepo, emitter, cfg.Cost, cfg.Certificates, nil, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, requestRepo, auditRepo, emitter, nil, logr)
	scheduleSvc.SetRequestCreator(workflowSvc)
	dashboardSvc := service.NewDashboardService(cacheRepo, requestRepo, costRepo, scheduleRepo,
		workflowSvc, metrics, cfg.Dashboard, nil, logr)

	csvExporter := export.NewCSVExporter()

	handlers := handler.Handlers{
		Requests:    handler.NewRequestHandler(workflowSvc, csvExporter),
		Approvals:   handler.NewApprovalHandler(approvalSvc),
		Assignments: handler.NewAssignmentHandler(assignmentSvc),
		Costs:       handler.NewCostHandler(costSvc, csvExporter),
		Completions: handler.NewCompletionHandler(completionSvc, signer, files),
		Schedules:   handler.NewScheduleHandler(scheduleSvc),
		Dashboard:   handler.NewDashboardHandler(dashboardSvc, workflowSvc),
		Hostels:     handler.NewHostelHandler(hostelRepo),
		Metrics:     handler.NewMetricsHandler(metrics, db),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.RegisterRoutes(r, handler.RouterDeps{Config: cfg, Audit: auditRepo}, handlers)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if cfg.Scheduler.Enabled {
		go runSweepLoop(ctx, scheduleSvc, logr)
	}

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
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}

// runSweepLoop drives the preventive-maintenance sweep once an hour until
// the context is cancelled. Sweep itself is idempotent per due schedule.
func runSweepLoop(ctx context.Context, schedules *service.ScheduleService, logr *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			created, err := schedules.Sweep(ctx)
			if err != nil {
				logr.Sugar().Warnw("sweep failed", "error", err)
				continue
			}
			if created > 0 {
				logr.Sugar().Infow("sweep generated requests", "created", created)
			}
		}
	}
}
