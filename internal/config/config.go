package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
	StorageRedis    = "redis"

	VerifierBlockfrost = "blockfrost"
	VerifierTrust      = "trust"

	MintStub   = "stub"
	MintRemote = "remote"
)

type Config struct {
	DBSource string
	Port     string
	Env      string
	LogLevel string

	StorageBackend    string
	ReputationBackend string
	RedisAddr         string

	VerifierMode        string
	BlockfrostProjectID string
	BlockfrostURL       string
	BlockfrostRPS       float64

	MintMode       string
	MintServiceURL string
	MintTimeout    time.Duration

	AgentCacheSize int
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBSource:            os.Getenv("DB_SOURCE"),
		Port:                getenv("SERVER_PORT", "8080"),
		Env:                 getenv("ENVIRONMENT", "development"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
		StorageBackend:      strings.ToLower(getenv("STORAGE_BACKEND", StoragePostgres)),
		ReputationBackend:   strings.ToLower(getenv("REPUTATION_BACKEND", StoragePostgres)),
		RedisAddr:           getenv("REDIS_ADDR", "localhost:6379"),
		VerifierMode:        strings.ToLower(getenv("VERIFIER_MODE", VerifierBlockfrost)),
		BlockfrostProjectID: os.Getenv("BLOCKFROST_PROJECT_ID_PREVIEW"),
		BlockfrostURL:       os.Getenv("BLOCKFROST_URL"),
		MintMode:            strings.ToLower(getenv("MINT_MODE", MintStub)),
		MintServiceURL:      os.Getenv("MINT_SERVICE_URL"),
	}

	var err error
	if cfg.BlockfrostRPS, err = strconv.ParseFloat(getenv("BLOCKFROST_RPS", "10"), 64); err != nil {
		return nil, fmt.Errorf("BLOCKFROST_RPS: %w", err)
	}
	if cfg.MintTimeout, err = time.ParseDuration(getenv("MINT_TIMEOUT", "30s")); err != nil {
		return nil, fmt.Errorf("MINT_TIMEOUT: %w", err)
	}
	if cfg.AgentCacheSize, err = strconv.Atoi(getenv("AGENT_CACHE_SIZE", "256")); err != nil {
		return nil, fmt.Errorf("AGENT_CACHE_SIZE: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case StoragePostgres:
		if c.DBSource == "" {
			return fmt.Errorf("DB_SOURCE environment variable is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.ReputationBackend {
	case StoragePostgres:
		if c.StorageBackend == StorageMemory {
			// reputation follows the ledger storage
			c.ReputationBackend = StorageMemory
		}
	case StorageMemory, StorageRedis:
	default:
		return fmt.Errorf("unknown REPUTATION_BACKEND %q", c.ReputationBackend)
	}

	switch c.VerifierMode {
	case VerifierBlockfrost:
		if c.BlockfrostProjectID == "" {
			return fmt.Errorf("BLOCKFROST_PROJECT_ID_PREVIEW environment variable is required")
		}
	case VerifierTrust:
		if !c.IsDevelopment() {
			return fmt.Errorf("VERIFIER_MODE=trust is only allowed in development")
		}
	default:
		return fmt.Errorf("unknown VERIFIER_MODE %q", c.VerifierMode)
	}

	switch c.MintMode {
	case MintStub:
	case MintRemote:
		if c.MintServiceURL == "" {
			return fmt.Errorf("MINT_SERVICE_URL is required when MINT_MODE=remote")
		}
	default:
		return fmt.Errorf("unknown MINT_MODE %q", c.MintMode)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// NewLogger builds the process logger: JSON outside development.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	if c.IsDevelopment() {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
