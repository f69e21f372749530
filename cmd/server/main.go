package main

import (
	"context"                // context package is needed for Redis operations
	"taxpal/internal/api"    // Custom package for API handlers
	"taxpal/internal/auth"   // Auth and recovery service
	"taxpal/internal/config" // Custom package for configuration
	"taxpal/internal/db"     // Database connection and migration
	"taxpal/internal/mailer" // Outgoing email
	"taxpal/internal/store"  // Credential and ledger stores
	"taxpal/internal/utils"  // Token issuer

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	// Connect to the database and make sure the schema is current
	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("failed to migrate DB: %v", err)
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection, the API still works without it
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.WithError(err).Warn("Redis unavailable, caching and rate limiting disabled")
		_ = redisClient.Close()
		redisClient = nil
	}

	// Mail goes to the log until an SMTP relay is configured
	var sender mailer.Sender = mailer.LogSender{}
	if cfg.SMTPHost != "" {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.Sender(),
		})
	} else {
		logrus.Warn("SMTP_HOST not set, emails will only be logged")
	}

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpire)
	authService := auth.NewService(store.NewUsers(gdb), tokens, sender, auth.WithDevMode(cfg.IsDevelopment()))

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r, err := api.NewRouter(api.Deps{
		Auth:          authService,
		Ledger:        store.NewLedger(gdb),
		Tokens:        tokens,
		Redis:         redisClient,
		AuthRateLimit: cfg.AuthRateLimit,
		Origins:       cfg.Origins,
	})
	if err != nil {
		logrus.Fatalf("failed to build router: %v", err)
	}

	logrus.Info("Server running on " + cfg.AppPort) // Log server start
	if err := r.Run(":" + cfg.AppPort); err != nil { // Start the server on port cfg.AppPort
		logrus.Fatalf("server stopped: %v", err)
	}
}
