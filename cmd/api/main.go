package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "sitesupply/api/swagger" // swagger docs
	"sitesupply/internal/cache"
	"sitesupply/internal/config"
	"sitesupply/internal/database"
	"sitesupply/internal/handler"
	"sitesupply/internal/logger"
	"sitesupply/internal/middleware"
	"sitesupply/internal/repository"
	"sitesupply/internal/service"
	"sitesupply/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Site Supply API
// @version         1.0
// @description     Construction-site order lifecycle and stock reconciliation.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	log := logger.New(cfg.Server.AppEnv, cfg.Logger)
	defer log.Sync() //nolint:errcheck

	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}
	secret := []byte(cfg.JWT.Secret)
	tokenTTL := time.Duration(cfg.JWT.TokenTTLHours) * time.Hour

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.Postgres, cfg.IsProduction(), log)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	log.Info("Connected to PostgreSQL successfully")

	// Redis is optional; without it stock reads go straight to the ledger.
	var stockCache service.StockCache
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, stock cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			stockCache = cache.NewStockCache(rdb, time.Duration(cfg.Redis.TTLSeconds)*time.Second)
			log.Info("Stock cache enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	siteRepo := repository.NewSiteRepository(db)
	productRepo := repository.NewProductRepository(db)
	stockRepo := repository.NewStockRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	returnRepo := repository.NewReturnRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	statisticsRepo := repository.NewStatisticsRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, userRepo, wsHub, log)
	stockService := service.NewStockService(stockRepo, productRepo, siteRepo, auditRepo, txManager, notificationService, stockCache, log)
	orderService := service.NewOrderService(orderRepo, siteRepo, userRepo, productRepo, auditRepo, txManager, stockService, notificationService, log)
	returnService := service.NewReturnService(returnRepo, productRepo, orderRepo, siteRepo, userRepo, auditRepo, txManager, stockService, notificationService, log)
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, tokenTTL)
	auditService := service.NewAuditService(auditRepo)
	statisticsService := service.NewStatisticsService(statisticsRepo, stockRepo)

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService, tokenTTL, cfg.IsProduction(), log)
	orderHandler := handler.NewOrderHandler(orderService, log)
	stockHandler := handler.NewStockHandler(stockService, log)
	returnHandler := handler.NewReturnHandler(returnService, log)
	notificationHandler := handler.NewNotificationHandler(notificationService, log)
	auditHandler := handler.NewAuditHandler(auditService, log)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(log), gin.Recovery())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	rateLimit, err := middleware.RateLimit(cfg.RateLimit.Rate)
	if err != nil {
		log.Fatal("Invalid rate limit", zap.String("rate", cfg.RateLimit.Rate), zap.Error(err))
	}

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, secret)
	})

	// API Routing
	api := router.Group("/api")
	api.Use(rateLimit)
	authHandler.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(middleware.Authenticate(secret))
	orderHandler.RegisterRoutes(protected)
	stockHandler.RegisterRoutes(protected)
	returnHandler.RegisterRoutes(protected)
	notificationHandler.RegisterRoutes(protected)
	auditHandler.RegisterRoutes(protected)
	statisticsHandler.RegisterRoutes(protected)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}
