package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/gym_backend/config"
	"github.com/HSouheill/gym_backend/controllers"
	"github.com/HSouheill/gym_backend/middleware"
	"github.com/HSouheill/gym_backend/repositories"
	"github.com/HSouheill/gym_backend/routes"
	"github.com/HSouheill/gym_backend/services"
	"github.com/HSouheill/gym_backend/websocket"
)

const (
	loginMaxAttempts   = 5
	loginLockoutWindow = 30 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	logger := config.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	client, err := config.ConnectDB(ctx, cfg.Mongo, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()
	db := client.Database(cfg.Mongo.Database)

	// Redis is optional
	redisClient := config.ConnectRedis(ctx, cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	mailer, err := services.NewMailer(cfg.Mail, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to configure mailer")
	}
	storage, err := services.NewStorage(ctx, cfg.Storage)
	if err != nil {
		logger.WithError(err).Fatal("Failed to configure storage")
	}

	// Create WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run(ctx)

	var revocations services.RevocationStore
	if redisClient != nil {
		revocations = services.NewRedisRevocationStore(redisClient)
	} else {
		memory := services.NewMemoryRevocationStore()
		go memory.RunCleanup(ctx, 10*time.Minute)
		revocations = memory
	}

	userRepo := repositories.NewUserRepository(db)
	otpRepo := repositories.NewOTPRepository(db, config.OTPCollection)

	authService := services.NewAuthService(services.AuthDeps{
		Users:         userRepo,
		OTPs:          otpRepo,
		Tokens:        services.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL),
		Revocations:   revocations,
		OTPAttempts:   services.NewOTPAttemptLimiter(redisClient, cfg.OTP.MaxAttempts, cfg.OTP.TTL),
		LoginAttempts: services.NewLoginAttemptLimiter(redisClient, loginMaxAttempts, loginLockoutWindow),
		Mailer:        mailer,
		Notifier:      wsHub,
	}, services.AuthConfig{
		OTPTTL:           cfg.OTP.TTL,
		OTPLength:        cfg.OTP.Length,
		SuperAdminEmails: cfg.SuperAdminEmails,
	}, logger)
	profileService := services.NewProfileService(userRepo, storage, logger)
	adminService := services.NewAdminService(userRepo, wsHub, logger)

	e := newServer(ctx, cfg, logger)

	uploadsDir := ""
	if cfg.Storage.Provider == "local" {
		uploadsDir = cfg.Storage.UploadsDir
	}
	routes.SetupRoutes(e, routes.Handlers{
		Auth:    controllers.NewAuthController(authService, controllers.CookieConfig{Secure: cfg.Server.SecureCookies, Domain: cfg.Server.CookieDomain}, logger),
		Profile: controllers.NewProfileController(profileService, logger),
		Admin:   controllers.NewAdminController(adminService, logger),
		Health:  controllers.NewHealthController(healthChecks(client, redisClient), logger),
		Events:  websocket.Handler(wsHub, authService, cfg.CORSAllowedOrigins, logger),
		JWT:     middleware.JWTMiddleware(authService, logger),

		UploadsDir: uploadsDir,
		Logger:     logger,
	})

	// Start server
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}

// newServer builds the echo instance with the global middleware chain
func newServer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = controllers.NewValidator()

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(ctx)

	e.Use(echoMiddleware.Recover())
	e.Use(middleware.RequestIDMiddleware())
	e.Use(middleware.LoggerMiddleware(logger))
	e.Use(middleware.DashboardCORS(cfg.CORSAllowedOrigins))
	e.Use(middleware.SecurityHeaders(middleware.SecurityConfig{HSTS: cfg.Server.SecureCookies}))
	e.Use(echoMiddleware.BodyLimit("6M"))
	e.Use(middleware.RequireContentType())
	e.Use(rateLimiter.RateLimit())
	e.Use(httpsRedirect())

	return e
}

func healthChecks(client *mongo.Client, redisClient *redis.Client) map[string]controllers.HealthCheck {
	checks := map[string]controllers.HealthCheck{
		"mongo": func(ctx context.Context) error { return client.Ping(ctx, nil) },
		"redis": nil,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	return checks
}

func httpsRedirect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("X-Forwarded-Proto") == "http" {
				return c.Redirect(http.StatusMovedPermanently, "https://"+c.Request().Host+c.Request().RequestURI)
			}
			return next(c)
		}
	}
}
