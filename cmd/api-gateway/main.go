package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/opencampus/course-portal-api/api/swagger"
	"github.com/opencampus/course-portal-api/internal/handler"
	"github.com/opencampus/course-portal-api/internal/middleware"
	"github.com/opencampus/course-portal-api/internal/repository"
	"github.com/opencampus/course-portal-api/internal/service"
	"github.com/opencampus/course-portal-api/pkg/cache"
	"github.com/opencampus/course-portal-api/pkg/config"
	"github.com/opencampus/course-portal-api/pkg/database"
	"github.com/opencampus/course-portal-api/pkg/export"
	"github.com/opencampus/course-portal-api/pkg/logger"
	corsmiddleware "github.com/opencampus/course-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/opencampus/course-portal-api/pkg/middleware/requestid"
	"github.com/opencampus/course-portal-api/pkg/mq"
)

// @title Course Portal API
// @version 1.0.0
// @description Course enrollment backend with admission control, schedule conflicts and async notifications
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	queue, err := mq.NewRabbitMQ(cfg.RabbitMQ, logr)
	if err != nil {
		logr.Fatal("failed to connect to rabbitmq", zap.Error(err))
	}
	defer queue.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, scheduleRepo, validate, logr)
	detector := service.NewConflictDetector(cfg.Enrollment.WeekAwareConflicts)
	pusher := service.NewRedisPusher(redisClient, cfg.Notifications.PushChannelPrefix)
	notificationSvc := service.NewNotificationService(notificationRepo, queue, pusher, metricsSvc, logr)
	enrollmentSvc := service.NewEnrollmentService(
		enrollmentRepo, courseRepo, scheduleRepo, detector,
		notificationSvc, metricsSvc,
		cfg.Enrollment.MaxCoursesPerStudent, validate, logr,
	)
	calendarSvc := service.NewCalendarService(scheduleRepo, courseRepo, logr)

	if cfg.Notifications.Enabled {
		go func() {
			if err := notificationSvc.Start(ctx); err != nil && ctx.Err() == nil {
				logr.Error("notification consumer stopped", zap.Error(err))
			}
		}()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
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
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router := &handler.Router{
		Auth:          handler.NewAuthHandler(authSvc),
		Courses:       handler.NewCourseHandler(courseSvc),
		Enrollments:   handler.NewEnrollmentHandler(enrollmentSvc),
		Calendar:      handler.NewCalendarHandler(calendarSvc, export.NewPDFExporter()),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Metrics:       handler.NewMetricsHandler(metricsSvc),
		AuthService:   authSvc,
	}
	router.Register(r, cfg.APIPrefix)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
