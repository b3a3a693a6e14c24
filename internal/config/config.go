// Package config provides configuration management for the giveaway service.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Chain     ChainConfig
	Neynar    NeynarConfig
	LogIndex  LogIndexConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres PostgresConfig
	Redis    RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// RedisConfig holds Redis configuration. Redis is optional: when no host is
// configured the TTL stores fall back to process-local maps.
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// ChainConfig holds blockchain access configuration
type ChainConfig struct {
	RPCURL          string
	ContractAddress string
	ChainID         int64
	SignerKey       string // hex-encoded private key, never logged
	RPCRateLimit    int    // outbound RPC calls per second
}

// NeynarConfig holds social-graph service configuration
type NeynarConfig struct {
	BaseURL string
	APIKey  string
}

// LogIndexConfig holds log-indexing service configuration
type LogIndexConfig struct {
	BaseURL      string
	APIKey       string
	RequestsPerS int
}

// CacheConfig holds TTLs for the ephemeral de-duplication stores
type CacheConfig struct {
	StatusTTL    time.Duration // contract status cache
	SyncDebounce time.Duration // reconciliation debounce window
}

// RateLimitConfig holds per-IP fixed-window ceilings
type RateLimitConfig struct {
	Window          time.Duration
	ClaimPerWindow  int
	LookupPerWindow int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "baget"),
				User:           getEnv("POSTGRES_USER", "baget"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", ""),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Chain: ChainConfig{
			RPCURL:          getEnv("RPC_URL", "https://mainnet.base.org"),
			ContractAddress: getEnv("CONTRACT_ADDRESS", ""),
			ChainID:         int64(getEnvAsInt("CHAIN_ID", 8453)),
			SignerKey:       getEnv("SIGNER_PRIVATE_KEY", ""),
			RPCRateLimit:    getEnvAsInt("RPC_RATE_LIMIT", 10),
		},
		Neynar: NeynarConfig{
			BaseURL: getEnv("NEYNAR_BASE_URL", "https://api.neynar.com"),
			APIKey:  getEnv("NEYNAR_API_KEY", ""),
		},
		LogIndex: LogIndexConfig{
			BaseURL:      getEnv("LOG_INDEX_BASE_URL", "https://api.basescan.org/api"),
			APIKey:       getEnv("LOG_INDEX_API_KEY", ""),
			RequestsPerS: getEnvAsInt("LOG_INDEX_RATE_LIMIT", 3),
		},
		Cache: CacheConfig{
			StatusTTL:    getEnvAsDuration("STATUS_CACHE_TTL", 10*time.Second),
			SyncDebounce: getEnvAsDuration("SYNC_DEBOUNCE_TTL", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			Window:          getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
			ClaimPerWindow:  getEnvAsInt("RATE_LIMIT_CLAIM", 10),
			LookupPerWindow: getEnvAsInt("RATE_LIMIT_LOOKUP", 30),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// Validate checks configuration required for signing and recording claims.
func (c *Config) Validate() error {
	if c.Chain.ContractAddress == "" {
		return fmt.Errorf("CONTRACT_ADDRESS is required")
	}
	if c.Chain.SignerKey == "" {
		return fmt.Errorf("SIGNER_PRIVATE_KEY is required")
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
