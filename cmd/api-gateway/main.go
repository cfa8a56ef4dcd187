package main

import (
	"context"
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

	_ "github.com/gradtrack/mentor-api/api/swagger"
	"github.com/gradtrack/mentor-api/internal/handler"
	"github.com/gradtrack/mentor-api/internal/middleware"
	"github.com/gradtrack/mentor-api/internal/models"
	"github.com/gradtrack/mentor-api/internal/repository"
	"github.com/gradtrack/mentor-api/internal/service"
	"github.com/gradtrack/mentor-api/pkg/cache"
	"github.com/gradtrack/mentor-api/pkg/config"
	"github.com/gradtrack/mentor-api/pkg/database"
	"github.com/gradtrack/mentor-api/pkg/jobs"
	"github.com/gradtrack/mentor-api/pkg/logger"
	"github.com/gradtrack/mentor-api/pkg/mailer"
	corsmiddleware "github.com/gradtrack/mentor-api/pkg/middleware/cors"
	reqidmiddleware "github.com/gradtrack/mentor-api/pkg/middleware/requestid"
	"github.com/gradtrack/mentor-api/pkg/storage"
)

// @title GradTrack Mentor API
// @version 1.0.0
// @description Mentoring and academic progress tracking backend
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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	store, err := storage.NewLocalStorage(cfg.Uploads.StorageDir, cfg.Uploads.MaxFileSizeBytes, cfg.Uploads.AllowedMIMEs)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	courseTypeRepo := repository.NewCourseTypeRepository(db)
	termRepo := repository.NewTermRepository(db)
	universityRepo := repository.NewUniversityRepository(db)
	professorRepo := repository.NewProfessorRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	topicRepo := repository.NewTopicRepository(db)
	mentorStatsRepo := repository.NewMentorStatsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled)

	materializer := service.NewTaskMaterializerService(courseRepo, termRepo, taskRepo, universityRepo, logr)
	rollup := service.NewTopicRollupService(taskRepo, topicRepo, logr)
	pipeline := service.NewAggregationPipeline(materializer, rollup, metricsSvc, logr)

	var retryQueue *jobs.Queue
	if cfg.Aggregation.RetryEnabled {
		retryQueue = jobs.NewQueue("aggregation-retry", pipeline.RetryHandler(), jobs.QueueConfig{
			Workers:    cfg.Aggregation.RetryWorkers,
			MaxRetries: cfg.Aggregation.MaxRetries,
			RetryDelay: cfg.Aggregation.RetryDelay,
			Logger:     logr,
		})
		pipeline.WithRetryQueue(retryQueue)
	}

	mailSender := mailer.New(cfg.Mail, logr)
	authSvc := service.NewAuthService(userRepo, mailSender, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		BaseURL:            cfg.Mail.BaseURL,
	})

	userSvc := service.NewUserService(userRepo, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, pipeline, nil, logr)
	courseSvc := service.NewCourseService(courseRepo, termRepo, nil, logr)
	courseTypeSvc := service.NewCourseTypeService(courseTypeRepo, nil, logr)
	termSvc := service.NewTermService(termRepo, nil, logr)
	universitySvc := service.NewUniversityService(universityRepo, nil, logr)
	professorSvc := service.NewProfessorService(professorRepo, nil, logr)
	taskSvc := service.NewTaskService(taskRepo, nil, logr)
	topicSvc := service.NewTopicService(topicRepo, taskRepo, pipeline, nil, logr)
	statsSvc := service.NewMentorStatsService(taskRepo, mentorStatsRepo, cacheSvc, logr)
	exportSvc := service.NewExportService(taskRepo, statsSvc, store, signer, service.ExportConfig{APIPrefix: cfg.APIPrefix}, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	courseTypeHandler := handler.NewCourseTypeHandler(courseTypeSvc)
	termHandler := handler.NewTermHandler(termSvc)
	universityHandler := handler.NewUniversityHandler(universitySvc)
	professorHandler := handler.NewProfessorHandler(professorSvc)
	taskHandler := handler.NewTaskHandler(taskSvc)
	topicHandler := handler.NewTopicHandler(topicSvc)
	statsHandler := handler.NewStatsHandler(statsSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	attachmentHandler := handler.NewAttachmentHandler(store, signer)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/verify-email", authHandler.VerifyEmail)
		auth.POST("/login", middleware.Audit(userRepo, models.AuditActionLogin, "auth"), authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.POST("/logout", middleware.JWT(authSvc), middleware.Audit(userRepo, models.AuditActionLogout, "auth"), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	// Download endpoints authenticate via signed tokens instead of JWTs so
	// links can be opened outside an API client.
	api.GET("/export/:token", middleware.OptionalJWT(authSvc), exportHandler.Download)
	api.GET("/attachments/:token", middleware.OptionalJWT(authSvc), attachmentHandler.Download)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		admin := middleware.RBAC("SUPERADMIN", "ADMIN")
		mentorUp := middleware.RBAC("SUPERADMIN", "ADMIN", "MENTOR")

		users := protected.Group("/users")
		{
			users.GET("", admin, userHandler.List)
			users.GET("/:id", middleware.RBAC("SUPERADMIN", "ADMIN", "SELF"), userHandler.Get)
			users.POST("", admin, userHandler.Create)
			users.PUT("/:id", admin, userHandler.Update)
			users.DELETE("/:id", middleware.RequireRoles(models.RoleSuperAdmin), userHandler.Delete)
		}

		students := protected.Group("/students")
		{
			students.GET("", studentHandler.List)
			students.GET("/:id", studentHandler.Get)
			students.POST("", mentorUp, studentHandler.Create)
			students.PUT("/:id", mentorUp, studentHandler.Update)
			students.DELETE("/:id", admin, studentHandler.Delete)
		}

		tasks := protected.Group("/tasks")
		{
			tasks.GET("", taskHandler.List)
			tasks.GET("/:id", taskHandler.Get)
			tasks.PUT("/:id", mentorUp, taskHandler.Update)
			tasks.DELETE("/:id", admin, taskHandler.Delete)
		}

		topics := protected.Group("/topics")
		{
			topics.GET("", topicHandler.List)
			topics.GET("/:id", topicHandler.Get)
			topics.POST("", mentorUp, topicHandler.Create)
			topics.PUT("/:id", mentorUp, topicHandler.Update)
			topics.DELETE("/:id", mentorUp, topicHandler.Delete)
		}

		courses := protected.Group("/courses")
		{
			courses.GET("", courseHandler.List)
			courses.GET("/:id", courseHandler.Get)
			courses.POST("", admin, courseHandler.Create)
			courses.PUT("/:id", admin, courseHandler.Update)
			courses.DELETE("/:id", admin, courseHandler.Delete)
		}

		courseTypes := protected.Group("/course-types")
		{
			courseTypes.GET("", courseTypeHandler.List)
			courseTypes.GET("/:id", courseTypeHandler.Get)
			courseTypes.POST("", admin, courseTypeHandler.Create)
			courseTypes.PUT("/:id", admin, courseTypeHandler.Update)
			courseTypes.DELETE("/:id", admin, courseTypeHandler.Delete)
		}

		terms := protected.Group("/terms")
		{
			terms.GET("", termHandler.List)
			terms.GET("/:id", termHandler.Get)
			terms.POST("", admin, termHandler.Create)
			terms.PUT("/:id", admin, termHandler.Update)
			terms.DELETE("/:id", admin, termHandler.Delete)
		}

		universities := protected.Group("/universities")
		{
			universities.GET("", universityHandler.List)
			universities.GET("/:id", universityHandler.Get)
			universities.POST("", admin, universityHandler.Create)
			universities.PUT("/:id", admin, universityHandler.Update)
			universities.DELETE("/:id", admin, universityHandler.Delete)
		}

		professors := protected.Group("/professors")
		{
			professors.GET("", professorHandler.List)
			professors.GET("/:id", professorHandler.Get)
			professors.POST("", mentorUp, professorHandler.Create)
			professors.PUT("/:id", mentorUp, professorHandler.Update)
			professors.DELETE("/:id", admin, professorHandler.Delete)
		}

		stats := protected.Group("/stats")
		{
			stats.GET("/me", statsHandler.Me)
			stats.GET("/mentor/:id", admin, statsHandler.ByMentor)
		}

		protected.GET("/export", exportHandler.Generate)
		protected.POST("/attachments", mentorUp, attachmentHandler.Upload)
		protected.GET("/system/metrics", admin, metricsHandler.Snapshot)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if retryQueue != nil {
		retryQueue.Start(ctx)
		defer retryQueue.Stop()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown error", "error", err)
	}
}
