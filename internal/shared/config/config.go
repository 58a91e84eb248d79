package config

import (
	"fmt"
	"hexmap-server/internal/shared/utils"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Frontend  FrontendConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Tree      TreeConfig
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
	Channel  string
}

type ServerConfig struct {
	Port         string
	URL          string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

type FrontendConfig struct {
	URL       string
	CORSDebug bool
}

type LoggingConfig struct {
	Level      string
	JSONFormat bool
	File       string
	MaxSizeMB  int
	MaxBackups int
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	TrustProxy        bool
}

// TreeConfig bounds the work a single tree operation may do
type TreeConfig struct {
	MaxHierarchyDepth          int
	MaxDescendantsForOperation int
	ContentBatchSize           int
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config, err := load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

func load() (*Config, error) {
	config := &Config{
		Server:    loadServerConfig(),
		Database:  loadDatabaseConfig(),
		Redis:     loadRedisConfig(),
		Auth:      loadAuthConfig(),
		Frontend:  loadFrontendConfig(),
		Logging:   loadLoggingConfig(),
		RateLimit: loadRateLimitConfig(),
		Tree:      loadTreeConfig(),
	}

	return config, nil
}

func loadRedisConfig() RedisConfig {
	enabled := utils.GetEnv("REDIS_ENABLED", "false") == "true"

	return RedisConfig{
		Enabled:  enabled,
		URL:      utils.GetEnv("REDIS_URL", ""),
		Host:     utils.GetEnv("REDIS_HOST", "localhost"),
		Port:     utils.GetEnv("REDIS_PORT", "6379"),
		Password: utils.GetEnv("REDIS_PASSWORD", ""),
		DB:       utils.GetEnvInt("REDIS_DB", 0),
		Channel:  utils.GetEnv("REDIS_EVENTS_CHANNEL", "hexmap:events"),
	}
}

func loadServerConfig() ServerConfig {
	readTimeout := utils.GetEnvInt("SERVER_READ_TIMEOUT_SECONDS", 15)
	writeTimeout := utils.GetEnvInt("SERVER_WRITE_TIMEOUT_SECONDS", 15)
	idleTimeout := utils.GetEnvInt("SERVER_IDLE_TIMEOUT_SECONDS", 60)

	return ServerConfig{
		Port:         utils.GetEnv("SERVER_PORT", "8080"),
		URL:          utils.GetEnv("SERVER_URL", "http://localhost:8080"),
		Environment:  utils.GetEnv("ENVIRONMENT", "development"),
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
		IdleTimeout:  time.Duration(idleTimeout) * time.Second,
	}
}

func loadDatabaseConfig() DatabaseConfig {
	connMaxLifetime := utils.GetEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 5)

	return DatabaseConfig{
		Driver:          utils.GetEnv("DB_DRIVER", "postgres"),
		Host:            utils.GetEnv("DB_HOST", "localhost"),
		Port:            utils.GetEnv("DB_PORT", "5432"),
		User:            utils.GetEnv("DB_USER", "postgres"),
		Password:        utils.GetEnv("DB_PASSWORD", "postgres"),
		Name:            utils.GetEnv("DB_NAME", "hexmap"),
		SSLMode:         utils.GetEnv("DB_SSLMODE", "disable"),
		SQLitePath:      utils.GetEnv("DB_SQLITE_PATH", "hexmap.db"),
		MaxOpenConns:    utils.GetEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    utils.GetEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: time.Duration(connMaxLifetime) * time.Minute,
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret: utils.GetEnv("JWT_SECRET", ""),
	}
}

func loadFrontendConfig() FrontendConfig {
	corsDebug := utils.GetEnv("CORS_DEBUG", "") == "true"

	return FrontendConfig{
		URL:       utils.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSDebug: corsDebug,
	}
}

func loadLoggingConfig() LoggingConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")
	jsonFormat := environment == "production" || utils.GetEnv("LOG_FORMAT", "text") == "json"

	return LoggingConfig{
		Level:      utils.GetEnv("LOG_LEVEL", "debug"),
		JSONFormat: jsonFormat,
		File:       utils.GetEnv("LOG_FILE", ""),
		MaxSizeMB:  utils.GetEnvInt("LOG_FILE_MAX_SIZE_MB", 100),
		MaxBackups: utils.GetEnvInt("LOG_FILE_MAX_BACKUPS", 5),
	}
}

func loadRateLimitConfig() RateLimitConfig {
	enabled := utils.GetEnv("RATE_LIMIT_ENABLED", "true") == "true"
	requestsPerSecond, err := strconv.ParseFloat(utils.GetEnv("RATE_LIMIT_REQUESTS_PER_SECOND", "10"), 64)
	if err != nil {
		requestsPerSecond = 10
	}

	return RateLimitConfig{
		Enabled:           enabled,
		RequestsPerSecond: requestsPerSecond,
		BurstSize:         utils.GetEnvInt("RATE_LIMIT_BURST_SIZE", 20),
		TrustProxy:        utils.GetEnv("RATE_LIMIT_TRUST_PROXY", "false") == "true",
	}
}

func loadTreeConfig() TreeConfig {
	return TreeConfig{
		MaxHierarchyDepth:          utils.GetEnvInt("TREE_MAX_HIERARCHY_DEPTH", 20),
		MaxDescendantsForOperation: utils.GetEnvInt("TREE_MAX_DESCENDANTS_FOR_OPERATION", 5000),
		ContentBatchSize:           utils.GetEnvInt("TREE_CONTENT_BATCH_SIZE", 100),
	}
}

// DefaultTreeConfig returns the limits used when nothing is configured
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		MaxHierarchyDepth:          20,
		MaxDescendantsForOperation: 5000,
		ContentBatchSize:           100,
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("DB_SQLITE_PATH is required when DB_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.BurstSize < 1) {
		return fmt.Errorf("RATE_LIMIT_REQUESTS_PER_SECOND and RATE_LIMIT_BURST_SIZE must be positive when rate limiting is enabled")
	}

	return c.Tree.Validate()
}

// Validate checks that every tree limit is usable
func (t TreeConfig) Validate() error {
	if t.MaxHierarchyDepth < 1 {
		return fmt.Errorf("TREE_MAX_HIERARCHY_DEPTH must be positive")
	}

	if t.MaxDescendantsForOperation < 1 {
		return fmt.Errorf("TREE_MAX_DESCENDANTS_FOR_OPERATION must be positive")
	}

	if t.ContentBatchSize < 1 {
		return fmt.Errorf("TREE_CONTENT_BATCH_SIZE must be positive")
	}

	return nil
}

func (c *Config) ConnectionString() string {
	if c.Database.Driver == "sqlite" {
		return SQLiteDSN(c.Database.SQLitePath)
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SQLiteDSN builds a modernc sqlite DSN with the pragmas every connection needs
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}
