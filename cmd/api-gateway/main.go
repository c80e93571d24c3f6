package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/cybercell/cybercell-api/api/swagger"
	"github.com/cybercell/cybercell-api/internal/handler"
	"github.com/cybercell/cybercell-api/internal/middleware"
	"github.com/cybercell/cybercell-api/internal/models"
	"github.com/cybercell/cybercell-api/internal/repository"
	"github.com/cybercell/cybercell-api/internal/service"
	"github.com/cybercell/cybercell-api/pkg/cache"
	"github.com/cybercell/cybercell-api/pkg/config"
	"github.com/cybercell/cybercell-api/pkg/database"
	"github.com/cybercell/cybercell-api/pkg/logger"
	corsmiddleware "github.com/cybercell/cybercell-api/pkg/middleware/cors"
	reqidmiddleware "github.com/cybercell/cybercell-api/pkg/middleware/requestid"
	"github.com/cybercell/cybercell-api/pkg/storage"
	"github.com/cybercell/cybercell-api/pkg/upload"
)

// @title CyberCell API
// @version 1.0.0
// @description Crime incident reporting and case management API
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
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Stats fall back to direct queries when the cache is down.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	store, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare upload storage", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	evidenceValidator := upload.NewValidator(upload.EvidenceExtensions, cfg.Uploads.MaxFileSizeBytes, cfg.Uploads.AllowedMIMEs)
	pictureValidator := upload.NewValidator(upload.ImageExtensions, cfg.Uploads.MaxFileSizeBytes, []string{"image/jpeg", "image/png"})

	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	statsService := service.NewStatsService(reportRepo, cacheRepo, cfg.Stats.CacheTTL, metricsService, logr)
	profileService := service.NewProfileService(userRepo, store, pictureValidator, metricsService, logr)
	reportService := service.NewReportService(reportRepo, userRepo, store, evidenceValidator, validate, metricsService, statsService, logr)
	exportService := service.NewExportService(reportService, logr)

	authHandler := handler.NewAuthHandler(authService)
	profileHandler := handler.NewProfileHandler(profileService)
	userHandler := handler.NewUserHandler(profileService)
	reportHandler := handler.NewReportHandler(reportService, exportService)
	statsHandler := handler.NewStatsHandler(statsService)
	metricsHandler := handler.NewMetricsHandler(metricsService, db, redisClient)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		api.GET("/categories", reportHandler.Categories)
		api.POST("/categories", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin), reportHandler.CreateCategory)

		reports := api.Group("/reports")
		{
			reports.GET("", middleware.OptionalJWT(authService), reportHandler.List)
			reports.POST("", middleware.JWT(authService), reportHandler.Create)
			reports.GET("/manage", middleware.JWT(authService), middleware.RequireStaff(), reportHandler.Manage)
			reports.GET("/manage/export", middleware.JWT(authService), middleware.RequireStaff(), reportHandler.ExportCSV)
			reports.GET("/:id", middleware.JWT(authService), reportHandler.Get)
			reports.GET("/:id/export", middleware.JWT(authService), reportHandler.ExportPDF)
			reports.PUT("/:id/status", middleware.JWT(authService), middleware.RequireStaff(), reportHandler.UpdateStatus)
			reports.POST("/:id/updates", middleware.JWT(authService), middleware.RequireStaff(), reportHandler.AddUpdate)
		}

		profile := api.Group("/profile", middleware.JWT(authService))
		{
			profile.GET("", profileHandler.Get)
			profile.PUT("", profileHandler.Update)
			profile.PUT("/picture", profileHandler.SetPicture)
		}

		users := api.Group("/users", middleware.JWT(authService))
		{
			users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.List)
			users.GET("/officers", middleware.RequireStaff(), userHandler.Officers)
			users.PUT("/:id/role", middleware.RequireRoles(models.RoleAdmin), userHandler.UpdateRole)
		}

		api.GET("/stats", middleware.JWT(authService), middleware.RequireStaff(), statsHandler.CrimeStats)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
