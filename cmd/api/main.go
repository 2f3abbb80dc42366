package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/portfolio-api/api/swagger"
	"github.com/noah-isme/portfolio-api/internal/handler"
	"github.com/noah-isme/portfolio-api/internal/middleware"
	"github.com/noah-isme/portfolio-api/internal/repository"
	"github.com/noah-isme/portfolio-api/internal/service"
	"github.com/noah-isme/portfolio-api/pkg/cache"
	"github.com/noah-isme/portfolio-api/pkg/config"
	"github.com/noah-isme/portfolio-api/pkg/database"
	"github.com/noah-isme/portfolio-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/portfolio-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/portfolio-api/pkg/middleware/requestid"
	"github.com/noah-isme/portfolio-api/pkg/storage"
)

// @title Portfolio API
// @version 1.0.0
// @description Backend for the portfolio website
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and rate limiting degraded", "error", err)
		redisClient = nil
	}

	mediaStore, err := storage.NewMediaStore(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init media storage", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	contactRepo := repository.NewContactRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		MaxFailedAttempts:  cfg.Auth.MaxFailedAttempts,
		LockoutDuration:    cfg.Auth.LockoutDuration,
	})
	contactSvc := service.NewContactService(contactRepo, validate, logr)
	projectSvc := service.NewProjectService(projectRepo, mediaStore, validate, logr, service.UploadPolicy{
		MaxImageSize:     cfg.Uploads.MaxImageSize,
		AllowedMIMETypes: cfg.Uploads.AllowedMIMETypes,
		PublicBaseURL:    cfg.Uploads.PublicBaseURL,
	})
	cvSvc := service.NewCVService(cfg.CV.DataPath, logr)
	dashboardSvc := service.NewDashboardService(projectRepo, contactRepo, cacheRepo, db, logr, cfg.Dashboard.CacheTTL)

	authHandler := handler.NewAuthHandler(authSvc, metricsSvc)
	contactHandler := handler.NewContactHandler(contactSvc, dashboardSvc)
	projectHandler := handler.NewProjectHandler(projectSvc, dashboardSvc)
	cvHandler := handler.NewCVHandler(cvSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, metricsSvc)

	rateLimiter := middleware.NewRateLimiter(redisClient, metricsSvc, logr, cfg.RateLimit)

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
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	r.Static("/uploads", mediaStore.Dir())

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.Use(rateLimiter.Handler())
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/profile", middleware.JWT(authSvc), authHandler.Profile)
		auth.PUT("/profile", middleware.JWT(authSvc), authHandler.UpdateProfile)
	}

	public := api.Group("/public")
	public.Use(rateLimiter.Handler())
	{
		public.POST("/contact", contactHandler.Submit)
		public.GET("/projects", projectHandler.List)
		public.GET("/projects/:id", projectHandler.Get)
		public.GET("/cv/download", cvHandler.Download)
		public.GET("/cv/preview", cvHandler.Preview)
	}

	manage := api.Group("/manage")
	manage.Use(middleware.JWT(authSvc), middleware.AdminOnly())
	{
		manage.GET("/dashboard", dashboardHandler.Stats)
		manage.GET("/system-health", dashboardHandler.SystemHealth)

		manage.GET("/contacts", contactHandler.List)
		manage.GET("/contacts/export", contactHandler.Export)
		manage.GET("/contacts/:id", contactHandler.Get)
		manage.PUT("/contacts/:id", contactHandler.Update)
		manage.DELETE("/contacts/:id", contactHandler.Delete)

		manage.POST("/projects", projectHandler.Create)
		manage.PUT("/projects/:id", projectHandler.Update)
		manage.DELETE("/projects/:id", projectHandler.Delete)
		manage.POST("/projects/:id/images", projectHandler.UploadImage)
		manage.PUT("/projects/:id/images/:imageId/primary", projectHandler.SetPrimaryImage)
		manage.DELETE("/projects/:id/images/:imageId", projectHandler.DeleteImage)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
