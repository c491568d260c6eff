package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/campus-booking-api/api/swagger"
	"github.com/noah-isme/campus-booking-api/internal/handler"
	"github.com/noah-isme/campus-booking-api/internal/middleware"
	"github.com/noah-isme/campus-booking-api/internal/models"
	"github.com/noah-isme/campus-booking-api/internal/repository"
	"github.com/noah-isme/campus-booking-api/internal/service"
	"github.com/noah-isme/campus-booking-api/pkg/cache"
	"github.com/noah-isme/campus-booking-api/pkg/config"
	"github.com/noah-isme/campus-booking-api/pkg/database"
	"github.com/noah-isme/campus-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-booking-api/pkg/middleware/cors"
	ratelimitmiddleware "github.com/noah-isme/campus-booking-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/campus-booking-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-booking-api/pkg/roomlock"
)

// @title Campus Booking API
// @version 1.0.0
// @description Room booking and schedule conflict engine
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, schedule caching disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.ScheduleTTL, logr, true)
			defer cacheRepo.Close()
		}
	}

	roomRepo := repository.NewRoomRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	occupationRepo := repository.NewOccupationRepository(db)
	occurrenceRepo := repository.NewOccurrenceRepository(db)
	roomChangeRepo := repository.NewRoomChangeRepository(db)
	userRepo := repository.NewUserRepository(db)

	locks := roomlock.NewRegistry(roomlock.Options{
		AcquireTimeout: cfg.Locks.AcquireTimeout,
		MaxRetries:     cfg.Locks.MaxRetries,
		RetryBackoff:   cfg.Locks.RetryBackoff,
	})

	availabilitySvc := service.NewAvailabilityService(occupationRepo, metricsSvc, logr)
	bookingSvc := service.NewBookingService(bookingRepo, roomRepo, availabilitySvc, locks, cacheSvc, metricsSvc, cfg.Booking, validate, logr)
	roomSvc := service.NewRoomService(roomRepo, occupationRepo, availabilitySvc, logr)
	importSvc := service.NewImportService(occurrenceRepo, roomRepo, availabilitySvc, locks, metricsSvc, cfg.Import.MaxRows, logr)
	roomChangeSvc := service.NewRoomChangeService(roomChangeRepo, bookingRepo, roomRepo, occupationRepo, availabilitySvc, locks, cacheSvc, metricsSvc, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	authHandler := handler.NewAuthHandler(authSvc)
	roomHandler := handler.NewRoomHandler(roomSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	scheduleHandler := handler.NewScheduleHandler(importSvc)
	roomChangeHandler := handler.NewRoomChangeHandler(roomChangeSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	if cfg.RateLimit.Enabled {
		r.Use(ratelimitmiddleware.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.GET("/auth/profile", authHandler.Profile)

		authed.GET("/rooms", roomHandler.List)
		authed.GET("/rooms/:id", roomHandler.Get)
		authed.GET("/rooms/:id/availability", roomHandler.Availability)
		authed.GET("/rooms/:id/schedule", roomHandler.Schedule)
		authed.GET("/rooms/:id/schedule/export", roomHandler.ExportSchedule)

		authed.GET("/bookings", bookingHandler.List)
		authed.POST("/bookings", bookingHandler.Create)
		authed.GET("/bookings/:id", bookingHandler.Get)

		staff := authed.Group("")
		staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleLecturer))
		{
			staff.PATCH("/bookings/:id/status", bookingHandler.SetStatus)
			staff.GET("/room-changes", roomChangeHandler.List)
			staff.POST("/room-changes", roomChangeHandler.Create)
		}

		admin := authed.Group("")
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admin.POST("/schedules/import", scheduleHandler.Import)
			admin.GET("/schedules/import/template", scheduleHandler.Template)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
