package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Nakib00/asps-dashboard-api/api/swagger"
	"github.com/Nakib00/asps-dashboard-api/internal/gateway"
	"github.com/Nakib00/asps-dashboard-api/internal/handler"
	"github.com/Nakib00/asps-dashboard-api/internal/middleware"
	"github.com/Nakib00/asps-dashboard-api/internal/models"
	"github.com/Nakib00/asps-dashboard-api/internal/service"
	"github.com/Nakib00/asps-dashboard-api/internal/validation"
	"github.com/Nakib00/asps-dashboard-api/pkg/cache"
	"github.com/Nakib00/asps-dashboard-api/pkg/config"
	"github.com/Nakib00/asps-dashboard-api/pkg/logger"
	corsmiddleware "github.com/Nakib00/asps-dashboard-api/pkg/middleware/cors"
	reqidmiddleware "github.com/Nakib00/asps-dashboard-api/pkg/middleware/requestid"
)

// @title ASPS Dashboard API
// @version 0.1.0
// @description Backend facade for the after-school program dashboard
// @BasePath /
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

	metricsSvc := service.NewMetricsService()

	upstream := gateway.NewClient(cfg.Upstream, logr, metricsSvc)

	sessions := service.NewSessionManager(cfg.Sessions.IdleTTL, logr)
	stopPruner := make(chan struct{})
	defer close(stopPruner)
	go sessions.Run(stopPruner)

	validate := validation.New()

	attendanceSvc := service.NewAttendanceService(upstream, sessions, metricsSvc, logr)
	feeSvc := service.NewFeeService(upstream, sessions, validate, metricsSvc, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		exportSvc = service.NewExportService()
	}

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
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := upstream.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "upstream": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Session(cfg.JWT.Secret))

	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, nil)
	feeHandler := handler.NewFeeHandler(feeSvc, nil)
	if exportSvc != nil {
		attendanceHandler = handler.NewAttendanceHandler(attendanceSvc, exportSvc)
		feeHandler = handler.NewFeeHandler(feeSvc, exportSvc)
	}

	// Parents are read-only consumers; marking and money movement stay with
	// staff roles.
	attendance := api.Group("", middleware.RequireRoles(models.RoleTeacher, models.RoleCenterAdmin, models.RoleSuperAdmin))
	attendanceHandler.Register(attendance)

	fees := api.Group("", middleware.RequireRoles(models.RoleCenterAdmin, models.RoleSuperAdmin))
	feeHandler.Register(fees)

	if cfg.Reports.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			// Reports degrade to pass-through when the cache is unreachable.
			logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
			redisClient = nil
		}
		reportSvc := service.NewReportService(upstream, redisClient, cfg.Reports.CacheTTL, metricsSvc, logr)
		handler.NewReportHandler(reportSvc).Register(api)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "upstream", cfg.Upstream.BaseURL)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
