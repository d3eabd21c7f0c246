package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ripplefeed/backend/internal/auth"
	"github.com/ripplefeed/backend/internal/cache"
	"github.com/ripplefeed/backend/internal/config"
	"github.com/ripplefeed/backend/internal/database"
	"github.com/ripplefeed/backend/internal/engagement"
	"github.com/ripplefeed/backend/internal/events"
	"github.com/ripplefeed/backend/internal/handlers"
	"github.com/ripplefeed/backend/internal/logger"
	"github.com/ripplefeed/backend/internal/mail"
	"github.com/ripplefeed/backend/internal/metrics"
	"github.com/ripplefeed/backend/internal/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables before anything reads them
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== Ripple server starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
	)

	metrics.Initialize()

	if err := database.Initialize(cfg.DatabaseURL); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	redisClient, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
	if err != nil {
		logger.Log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	var mailer mail.Mailer
	if cfg.IsProduction() {
		mailer, err = mail.NewSESMailer(cfg.AWSRegion, cfg.MailFrom, cfg.MailName)
		if err != nil {
			logger.Log.Fatal("Failed to initialize SES mailer", zap.Error(err))
		}
	} else {
		mailer = mail.LogMailer{}
		logger.Log.Info("Using log mailer, outbound mail disabled")
	}

	challengeStore := auth.NewRedisChallengeStore(redisClient)
	authService := auth.NewService(challengeStore, mailer,
		cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, cfg.BaseURL)

	counterStore := engagement.NewRedisCounterStore(redisClient.Client())
	engagementService := engagement.NewService(counterStore)

	// Comment lifecycle events keep the cached comment counters in step
	bus := events.NewBus(64)
	engagement.NewCommentCountBridge(engagementService).Register(bus)
	bus.Start()
	defer bus.Stop()

	// Background sweep for refresh sessions nobody rotates anymore
	sessionCleanup := auth.NewCleanupService(auth.SweepInterval)
	sessionCleanup.Start()
	defer sessionCleanup.Stop()

	h := handlers.New(authService, engagementService, cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.BaseURL}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "ripple-backend",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authGroup.Use(middleware.RedisRateLimitMiddleware(30, time.Minute))
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.POST("/refresh", h.Refresh)
			authGroup.POST("/logout", h.Logout)

			authGroup.POST("/reset-password/start", h.StartReset)
			authGroup.POST("/reset-password/check", h.CheckResetCode)
			authGroup.POST("/reset-password/confirm", h.ConfirmReset)
			authGroup.POST("/verify-email", h.VerifyEmail)

			protected := authGroup.Group("")
			protected.Use(h.AuthMiddleware())
			{
				protected.POST("/logout-others", h.LogoutOthers)
				protected.POST("/change-password", h.ChangePassword)
				protected.POST("/send-verify-email", h.SendVerifyEmail)
				protected.GET("/sessions", h.ListSessions)
				protected.DELETE("/sessions/:id", h.TerminateSession)
			}
		}

		postsGroup := api.Group("/posts")
		{
			postsGroup.GET("/counts", h.GetCounts)
			postsGroup.PUT("/:id/rating", h.AuthMiddleware(), h.SetRating)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Forced shutdown", zap.Error(err))
	}
	logger.Log.Info("Server exited")
}
