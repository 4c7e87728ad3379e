package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/onehorn/event-booking-backend/internal/config"
	"github.com/onehorn/event-booking-backend/internal/database"
	"github.com/onehorn/event-booking-backend/internal/handlers"
	"github.com/onehorn/event-booking-backend/internal/middleware"
	"github.com/onehorn/event-booking-backend/internal/services"
	"github.com/onehorn/event-booking-backend/pkg/jwt"
	"github.com/onehorn/event-booking-backend/pkg/mq"
	"github.com/onehorn/event-booking-backend/pkg/obs"
	"github.com/onehorn/event-booking-backend/pkg/validator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

type eventPublisher interface {
	services.EventPublisher
	Close() error
}

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting One Horn event booking backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Tracing
	shutdownTracer, err := obs.InitTracer(context.Background(), cfg.Tracing.Endpoint, cfg.Tracing.ServiceName, cfg.Server.Environment)
	if err != nil {
		logger.Fatalf("Failed to initialize tracing: %v", err)
	}
	if cfg.Tracing.Endpoint != "" {
		logger.Infof("✓ Tracing exported to %s", cfg.Tracing.Endpoint)
	}

	// Database
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Domain events
	var events eventPublisher = mq.Discard{}
	if cfg.Events.AMQPURL != "" {
		publisher, err := mq.NewPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			logger.Fatalf("Failed to connect to message broker: %v", err)
		}
		events = publisher
		logger.Infof("✓ Publishing domain events to exchange %s", cfg.Events.Exchange)
	} else {
		logger.Info("AMQP_URL not set - domain events are discarded")
	}
	defer events.Close()

	// Repositories
	bookingRepository := database.NewBookingRepository(db)
	paymentRepository := database.NewPaymentRepository(db)
	paymentAuditRepository := database.NewPaymentAuditRepository(db, logger)
	userRepository := database.NewUserRepository(db)
	refreshTokenRepository := database.NewRefreshTokenRepository(db)
	authAuditRepository := database.NewAuthAuditRepository(db)
	quoteRepository := database.NewCustomQuoteRepository(db)

	// Services
	logger.Info("Initializing services...")
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.MustNewMetrics(registry)

	structValidator := validator.NewStructValidator()
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	auditService := services.NewAuditService(authAuditRepository, cfg.Security.EnableAuditLog, logger)
	identityService := services.NewIdentityService(
		userRepository,
		refreshTokenRepository,
		jwtService,
		auditService,
		structValidator,
		services.NewRateLimitService(services.DefaultRateLimitConfig()),
		cfg.Security.BcryptCost,
		logger,
	)

	gateway := services.NewRazorpayGateway(&cfg.Payment, logger)
	if gateway.IsMock() {
		logger.Warn("⚠️ PAYMENT_MODE=mock - no real payments will be collected")
	}

	settlementService := services.NewSettlementService(
		paymentRepository,
		bookingRepository,
		paymentAuditRepository,
		services.InitialStageConfirms{},
		events,
		metrics,
		logger,
	)
	orchestrator := services.NewBookingOrchestratorService(
		bookingRepository,
		paymentRepository,
		paymentAuditRepository,
		structValidator,
		events,
		metrics,
		logger,
	)
	coordinator := services.NewPaymentCoordinatorService(
		bookingRepository,
		paymentRepository,
		gateway,
		settlementService,
		paymentAuditRepository,
		metrics,
		cfg.Coordinator,
		logger,
	)
	reconciler := services.NewPaymentReconcilerService(
		paymentRepository,
		bookingRepository,
		settlementService,
		paymentAuditRepository,
		gateway,
		metrics,
		logger,
	)
	projector := services.NewStatusProjectorService(bookingRepository, logger)
	quoteService := services.NewQuoteService(quoteRepository, structValidator, logger)

	chatService, err := services.NewChatService(cfg.Chat.MaxSessions, cfg.Chat.ResponderDelay, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize chat service: %v", err)
	}

	coordinator.Start()
	logger.Info("✓ Payment coordinator started")

	cronService := services.NewCronService(refreshTokenRepository, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("✓ Cron service started - refresh token cleanup enabled")

	logger.Info("Services initialized")

	// Handlers
	authHandler := handlers.NewAuthHandler(identityService, logger)
	catalogHandler := handlers.NewCatalogHandler()
	bookingHandler := handlers.NewBookingHandler(orchestrator, projector, logger)
	paymentHandler := handlers.NewPaymentHandler(coordinator, reconciler, logger)
	quoteHandler := handlers.NewQuoteHandler(quoteService, logger)
	chatHandler := handlers.NewChatHandler(chatService, cfg.CORS.AllowedOrigins, logger)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		AllowWebSockets:  true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", healthCheckHandler(db))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	requireAuth := middleware.AuthMiddleware(jwtService)
	optionalAuth := middleware.OptionalAuthMiddleware(jwtService)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", authHandler.SignUp)
			auth.POST("/signin", authHandler.SignIn)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/signout", requireAuth, authHandler.SignOut)
			auth.GET("/session", requireAuth, authHandler.Session)
		}

		user := v1.Group("/user", requireAuth)
		{
			user.GET("/profile", authHandler.GetProfile)
			user.PUT("/profile", authHandler.UpdateProfile)
			user.PUT("/password", authHandler.ChangePassword)
		}

		v1.GET("/packages", catalogHandler.ListPackages)
		v1.GET("/packages/:name", catalogHandler.GetPackage)

		// Anonymous booking attempts get AUTH_REQUIRED with a resume hint
		v1.POST("/bookings", optionalAuth, bookingHandler.CreateBooking)
		v1.POST("/bookings/:id/initial-payment", requireAuth, bookingHandler.RetryInitialPayment)
		v1.GET("/dashboard", requireAuth, bookingHandler.Dashboard)

		payments := v1.Group("/payments/attempts", requireAuth)
		{
			payments.POST("", paymentHandler.BeginAttempt)
			payments.GET("/:id", paymentHandler.GetAttempt)
			payments.POST("/:id/success", paymentHandler.AttemptSucceeded)
			payments.POST("/:id/error", paymentHandler.AttemptFailed)
			payments.POST("/:id/dismiss", paymentHandler.AttemptDismissed)
			payments.DELETE("/:id", paymentHandler.CloseAttempt)
		}

		v1.POST("/webhooks/razorpay", paymentHandler.RazorpayWebhook)

		v1.POST("/quotes", optionalAuth, quoteHandler.SubmitQuote)
		v1.GET("/quotes", requireAuth, quoteHandler.ListQuotes)

		chat := v1.Group("/chat/sessions")
		{
			chat.POST("", chatHandler.OpenSession)
			chat.GET("/:id/messages", chatHandler.GetMessages)
			chat.POST("/:id/messages", chatHandler.SendMessage)
			chat.DELETE("/:id", chatHandler.CloseSession)
			chat.GET("/:id/ws", chatHandler.Stream)
		}
	}

	// WriteTimeout stays zero so chat websockets are not cut off
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Stopping payment coordinator...")
	coordinator.Stop()

	logger.Info("Stopping cron service...")
	cronService.Stop()

	if err := shutdownTracer(ctx); err != nil {
		logger.Warnf("Failed to flush traces: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      c.Request.URL.RawQuery,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
			"has_auth":   c.GetHeader("Authorization") != "",
		}
		if userCtx, ok := middleware.GetUserContext(c); ok {
			fields["user_id"] = userCtx.UserID
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler reports database reachability
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
