package config

import (
	"fmt"  // Error wrapping
	"time" // Durations for token expiry

	"github.com/caarlos0/env/v11" // Struct-tag based environment parsing
	"github.com/joho/godotenv"    // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort string   `env:"APP_PORT" envDefault:"7000"`      // Application port
	AppEnv  string   `env:"APP_ENV" envDefault:"production"` // development | production
	IsProd  bool     `env:"IS_PROD" envDefault:"false"`      // Is production environment
	Origins []string `env:"CORS_ORIGINS" envSeparator:","`   // Allowed CORS origins, empty allows all

	DBDriver   string `env:"DB_DRIVER" envDefault:"mysql"`   // mysql or sqlite
	DBUser     string `env:"DB_USER"`                        // Database user
	DBPassword string `env:"DB_PASSWORD"`                    // Database password
	DBHost     string `env:"DB_HOST" envDefault:"127.0.0.1"` // Database host
	DBPort     string `env:"DB_PORT" envDefault:"3306"`      // Database port
	DBName     string `env:"DB_NAME" envDefault:"taxpal"`    // Database name
	DBPath     string `env:"DB_PATH" envDefault:"taxpal.db"` // SQLite file, only for DB_DRIVER=sqlite

	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"` // JWT secret key
	JWTExpire time.Duration `env:"JWT_EXPIRE" envDefault:"24h"`  // Lifetime of issued tokens

	RedisAddr string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"` // Redis server address
	RedisPass string `env:"REDIS_PASS"`                             // Redis password
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`                // Redis database number

	SMTPHost string `env:"SMTP_HOST"`                  // SMTP relay, empty logs mail instead of sending
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"` // SMTP port
	SMTPUser string `env:"SMTP_USER"`                  // SMTP username
	SMTPPass string `env:"SMTP_PASS"`                  // SMTP password
	MailFrom string `env:"MAIL_FROM"`                  // Sender address, defaults to SMTP_USER

	AuthRateLimit int `env:"AUTH_RATE_LIMIT" envDefault:"10"` // Public auth requests per minute per IP
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// DSN builds the MySQL data source name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

// Sender returns the From address for outgoing mail
func (c *Config) Sender() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return c.SMTPUser
}

// LoadConfig loads configuration from the environment, reading .env first if present
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
