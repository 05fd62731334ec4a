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
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/Gabusnow21/Administrador-de-Notas-Matematicas/api/swagger"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/handler"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/middleware"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/models"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/repository"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/service"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/cache"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/config"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/database"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/logger"
	reqidmiddleware "github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/middleware/requestid"
)

// @title Gabus Grades API
// @version 1.0.0
// @description Weighted activities, grades and report cards
// @BasePath /
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logr.Fatal("failed to apply schema", zap.Error(err))
	}

	var redisClient redis.UniversalClient
	if cfg.Reports.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, report cache disabled", zap.Error(err))
		} else {
			redisClient = client
			defer client.Close()
		}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	activityRepo := repository.NewActivityRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	termRepo := repository.NewTermRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Reports.CacheTTL, logr, redisClient != nil)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)
	weighting := service.NewWeightingValidator(activityRepo, metricsSvc, logr)
	activitySvc := service.NewActivityService(activityRepo, gradeRepo, subjectRepo, termRepo, database.NewTransactor(db), weighting, cacheSvc, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, activityRepo, subjectRepo, studentRepo, sectionRepo, cacheSvc, metricsSvc, validate, logr)
	reportSvc := service.NewReportCardService(gradeRepo, studentRepo, sectionRepo, cacheSvc, metricsSvc, nil, nil, service.ReportCardOptions{
		SchoolName:     cfg.Reports.SchoolName,
		CanonicalTerms: cfg.Reports.CanonicalTerms,
		CacheTTL:       cfg.Reports.CacheTTL,
	}, logr)

	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}

	healthHandler := handler.NewHealthHandler(metricsSvc, checks, logr)
	activityHandler := handler.NewActivityHandler(activitySvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	reportHandler := handler.NewReportHandler(reportSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(metricsSvc))
		r.GET("/metrics", healthHandler.Prometheus)
	}

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)

	if cfg.Docs.Enabled && cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
	{
		activities := api.Group("/activities")
		activities.GET("", activityHandler.List)
		activities.POST("", activityHandler.Create)
		activities.GET("/:id", activityHandler.Get)
		activities.PUT("/:id", activityHandler.Update)
		activities.DELETE("/:id", activityHandler.Delete)

		grades := api.Group("/grades")
		grades.POST("", gradeHandler.Upsert)
		grades.GET("/sheet", gradeHandler.Sheet)
		grades.GET("/activity/:id", gradeHandler.ByActivity)
		grades.GET("/student/:id", gradeHandler.ByStudent)

		reports := api.Group("/reports/report-card/:studentId")
		reports.GET("", reportHandler.ReportCard)
		reports.GET("/pdf", reportHandler.PDF)
		reports.GET("/csv", reportHandler.CSV)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "report_cache", redisClient != nil)
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
