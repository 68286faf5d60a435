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

	"github.com/anton-kx/timetable-api/internal/discovery"
	"github.com/anton-kx/timetable-api/internal/handler"
	"github.com/anton-kx/timetable-api/internal/middleware"
	"github.com/anton-kx/timetable-api/internal/parser"
	"github.com/anton-kx/timetable-api/internal/repository"
	"github.com/anton-kx/timetable-api/internal/service"
	"github.com/anton-kx/timetable-api/pkg/cache"
	"github.com/anton-kx/timetable-api/pkg/config"
	"github.com/anton-kx/timetable-api/pkg/database"
	"github.com/anton-kx/timetable-api/pkg/fetch"
	"github.com/anton-kx/timetable-api/pkg/jobs"
	"github.com/anton-kx/timetable-api/pkg/logger"
	reqidmiddleware "github.com/anton-kx/timetable-api/pkg/middleware/requestid"
	"github.com/anton-kx/timetable-api/pkg/storage"
)

const syncJobType = "sync"

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var cacheRepo service.CacheRepository
	if cfg.Schedule.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, schedule cache disabled", "error", err)
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}

	metrics := service.NewMetricsService()

	sourceRepo := repository.NewSourceFileRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	userRepo := repository.NewUserRepository(db)

	spool, err := storage.NewSpool(cfg.Ingest.DownloadDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare download directory", "error", err)
	}

	workbook, err := parser.NewWorkbook(cfg.Ingest.WorkbookColumns, logr)
	if err != nil {
		logr.Sugar().Fatalw("invalid workbook column layout", "error", err)
	}

	listClient := fetch.New(cfg.Ingest.ListTimeout)
	downloadClient := fetch.New(cfg.Ingest.DownloadTimeout)
	sheet := parser.NewSheet(downloadClient, logr)
	disc := discovery.New(cfg.Ingest.ScheduleURL, listClient, logr)
	downloader := discovery.NewDownloader(downloadClient, spool, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Schedule.DayCacheTTL, logr, cfg.Schedule.CacheEnabled && cacheRepo != nil)
	scheduleSvc := service.NewScheduleService(lessonRepo, groupRepo, cacheSvc, cfg.Schedule.DayCacheTTL, cfg.Schedule.WeekCacheTTL, logr)
	userSvc := service.NewUserService(userRepo, groupRepo, logr)
	importSvc := service.NewImportService(lessonRepo, sourceRepo, workbook, parser.Delimited{}, sheet, scheduleSvc, metrics, cfg.Ingest.SheetContentHash, logr)
	syncSvc := service.NewSyncService(disc, downloader, spool, workbook, sourceRepo, lessonRepo, scheduleSvc, metrics, cfg.Ingest.MaxFiles, logr)
	authSvc := service.NewAuthService(service.AuthConfig{
		Secret:     cfg.Admin.JWTSecret,
		Expiration: cfg.Admin.JWTExpiration,
	}, logr)

	queue := jobs.NewQueue("ingest", func(ctx context.Context, job jobs.Job) error {
		if job.Type != syncJobType {
			return fmt.Errorf("unknown job type %q", job.Type)
		}
		_, err := syncSvc.Sync(ctx)
		return err
	}, jobs.QueueConfig{Workers: 1, Logger: logr})
	queue.Start(ctx)
	defer queue.Stop()
	queue.EnqueueEvery(cfg.Ingest.SyncInterval, syncJobType)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics)
	groupHandler := handler.NewGroupHandler(scheduleSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	userHandler := handler.NewUserHandler(userSvc)
	adminHandler := handler.NewAdminHandler(syncSvc, importSvc, spool)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/groups", groupHandler.List)
		api.GET("/groups/:id/lessons", scheduleHandler.Lessons)
		api.GET("/groups/:id/schedule/day", scheduleHandler.Day)
		api.GET("/groups/:id/schedule/week", scheduleHandler.Week)

		api.PUT("/users/:id/group", userHandler.SelectGroup)
		api.GET("/users/:id/group", userHandler.ActiveGroup)

		admin := api.Group("/admin", middleware.AdminJWT(authSvc))
		admin.POST("/sync", adminHandler.Sync)
		admin.POST("/import/file", adminHandler.ImportFile)
		admin.POST("/import/sheet", adminHandler.ImportSheet)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
