package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
)

// MongoConfig holds raw snapshot store connection settings.
type MongoConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Timeout  time.Duration
}

// URI renders the settings as a MongoDB connection string.
func (c MongoConfig) URI() string {
	return fmt.Sprintf("mongodb://%s:%s@%s:%s/", c.User, c.Password, c.Host, c.Port)
}

// PostgresConfig holds relational sink connection settings.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN renders the settings as a lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	Mongo    MongoConfig
	Postgres PostgresConfig

	FeedURL     string
	FeedDataset string
	FeedRows    int
	FeedTimeout time.Duration

	ScheduleInterval time.Duration
	RunRetries       int
	RetryDelay       time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	feedTimeout, err := envDuration("FEED_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	feedRows, err := envInt("FEED_ROWS", 10000, 1, 10000)
	if err != nil {
		return nil, err
	}

	interval, err := envDuration("SCHEDULE_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	retries, err := envInt("RUN_RETRIES", 2, 0, 10)
	if err != nil {
		return nil, err
	}

	retryDelay, err := envDuration("RETRY_DELAY", "1m")
	if err != nil {
		return nil, err
	}

	mongoTimeout, err := envDuration("MONGO_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Mongo: MongoConfig{
			Host:     EnvOrDefault("MONGO_HOST", "mongodb"),
			Port:     EnvOrDefault("MONGO_PORT", "27017"),
			User:     EnvOrDefault("MONGO_USER", "mongo"),
			Password: EnvOrDefault("MONGO_PASSWORD", "mongo"),
			Database: EnvOrDefault("MONGO_DB", "velib_datalake"),
			Timeout:  mongoTimeout,
		},
		Postgres: PostgresConfig{
			Host:     EnvOrDefault("DB_HOST", "postgres"),
			Port:     EnvOrDefault("DB_PORT", "5432"),
			User:     EnvOrDefault("DB_USER", "airflow"),
			Password: EnvOrDefault("DB_PASSWORD", "airflow"),
			Database: EnvOrDefault("DB_NAME", "airflow"),
			SSLMode:  EnvOrDefault("DB_SSLMODE", "disable"),
		},

		FeedURL:     EnvOrDefault("FEED_URL", "https://data.opendatasoft.com/api/records/1.0/search/"),
		FeedDataset: EnvOrDefault("FEED_DATASET", "velib-disponibilite-en-temps-reel@parisdata"),
		FeedRows:    feedRows,
		FeedTimeout: feedTimeout,

		ScheduleInterval: interval,
		RunRetries:       retries,
		RetryDelay:       retryDelay,

		HTTPAddr:        EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.FeedURL == "" {
		return nil, fmt.Errorf("FEED_URL is required")
	}
	if cfg.FeedDataset == "" {
		return nil, fmt.Errorf("FEED_DATASET is required")
	}

	return cfg, nil
}
