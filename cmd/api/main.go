package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/config"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/handler"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/middleware"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/repository/postgres"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/repository/storage"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/service"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/websocket"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Initialize repositories
	loanRepo := postgres.NewLoanRepository(pool)
	entryRepo := postgres.NewEntryRepository(pool)
	dayCloseRepo := postgres.NewDayCloseRepository(pool)

	// Receipt storage is optional; without a bucket the upload endpoints
	// respond 503 and the rest of the API works as usual.
	var receiptStorage storage.ReceiptRepository
	if cfg.S3.Bucket != "" && cfg.S3.AccessKeyID != "" {
		s3Repo, err := storage.NewS3ReceiptRepository(context.Background(), cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize receipt storage")
		}
		receiptStorage = s3Repo
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Receipt storage enabled")
	} else {
		log.Warn().Msg("Receipt storage not configured, uploads disabled")
	}

	// Initialize websocket hub for real-time updates
	hub := websocket.NewHub()
	wsValidator, err := websocket.NewAuth0JWTValidator(cfg.Auth0Domain, cfg.Auth0Audience)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create websocket token validator")
	}

	// Initialize services
	loanService := service.NewLoanService(loanRepo)
	loanService.SetEventPublisher(hub)
	entryService := service.NewEntryService(pool, loanRepo, entryRepo)
	entryService.SetEventPublisher(hub)
	summaryService := service.NewSummaryService(loanRepo, entryRepo)
	dayCloseService := service.NewDayCloseService(pool, loanRepo, dayCloseRepo)
	dayCloseService.SetEventPublisher(hub)
	receiptService := service.NewReceiptService(receiptStorage, entryRepo)

	// Initialize auth middleware
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Stop()

	// Initialize handlers
	loanHandler := handler.NewLoanHandler(loanService, summaryService)
	entryHandler := handler.NewEntryHandler(entryService)
	dayCloseHandler := handler.NewDayCloseHandler(dayCloseService)
	receiptHandler := handler.NewReceiptHandler(receiptService)
	wsHandler := handler.NewWebSocketHandler(hub, wsValidator, cfg.CORSOrigins)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, rateLimiter, loanHandler, entryHandler, dayCloseHandler, receiptHandler, wsHandler)

	// Schedule the nightly day-close run; an empty schedule disables it
	var scheduler *cron.Cron
	if cfg.DayCloseSchedule != "" {
		scheduler = cron.New()
		_, err = scheduler.AddFunc(cfg.DayCloseSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			run, err := dayCloseService.Run(ctx, time.Now().UTC())
			if err != nil {
				if errors.Is(err, domain.ErrDayCloseAlreadyRun) {
					log.Info().Msg("Day close already ran for today, skipping")
					return
				}
				log.Error().Err(err).Msg("Scheduled day close failed")
				return
			}
			log.Info().
				Time("run_date", run.RunDate).
				Int32("loans_processed", run.LoansProcessed).
				Msg("Scheduled day close completed")
		})
		if err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.DayCloseSchedule).Msg("Invalid day close schedule")
		}
		scheduler.Start()
		defer scheduler.Stop()
		log.Info().Str("schedule", cfg.DayCloseSchedule).Msg("Day close scheduler started")
	} else {
		log.Warn().Msg("Day close scheduler disabled")
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
