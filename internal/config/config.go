package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName         = "walletd"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultLockTimeout     = 5 * time.Second
	defaultConflictRetries = 3
	defaultConflictBackoff = 10 * time.Millisecond
	defaultBackoffMax      = 500 * time.Millisecond
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	lockTimeoutEnvVar      = "LOCK_TIMEOUT"
	conflictRetriesEnvVar  = "CONFLICT_RETRIES"
	conflictBackoffEnvVar  = "CONFLICT_BACKOFF"
	backoffMaxEnvVar       = "CONFLICT_BACKOFF_MAX"
	dbMaxConnsEnvVar       = "DB_MAX_CONNS"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName         string
	AppEnv          string
	Port            string
	LogLevel        string
	LogFormat       string
	DatabaseURL     string
	DBMaxConns      int32
	RedisURL        string
	ShutdownPeriod  time.Duration
	IdempotencyTTL  time.Duration
	LockTimeout     time.Duration
	ConflictRetries int
	ConflictBackoff time.Duration
	BackoffMax      time.Duration
}

// Load reads an optional .env file, then configuration values from the
// environment. Variables already set in the environment win over the file.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		AppEnv:          getEnv("APP_ENV", defaultAppEnv),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		ShutdownPeriod:  defaultShutdownDelay,
		IdempotencyTTL:  defaultIdempotencyTTL,
		LockTimeout:     defaultLockTimeout,
		ConflictRetries: defaultConflictRetries,
		ConflictBackoff: defaultConflictBackoff,
		BackoffMax:      defaultBackoffMax,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.LockTimeout, err = durationEnv("", lockTimeoutEnvVar, cfg.LockTimeout); err != nil {
		return Config{}, err
	}
	if cfg.LockTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid %s: must be positive", lockTimeoutEnvVar)
	}

	if cfg.ConflictBackoff, err = durationEnv("", conflictBackoffEnvVar, cfg.ConflictBackoff); err != nil {
		return Config{}, err
	}
	if cfg.BackoffMax, err = durationEnv("", backoffMaxEnvVar, cfg.BackoffMax); err != nil {
		return Config{}, err
	}
	if cfg.ConflictBackoff <= 0 || cfg.BackoffMax < cfg.ConflictBackoff {
		return Config{}, fmt.Errorf("invalid %s/%s: need 0 < backoff <= max", conflictBackoffEnvVar, backoffMaxEnvVar)
	}

	if v := os.Getenv(conflictRetriesEnvVar); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid %s: %q", conflictRetriesEnvVar, v)
		}
		cfg.ConflictRetries = n
	}

	if v := os.Getenv(dbMaxConnsEnvVar); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid %s: %q", dbMaxConnsEnvVar, v)
		}
		cfg.DBMaxConns = int32(n)
	}

	if cfg.DatabaseURL == "" && !cfg.IsDev() {
		return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the service runs in a development environment, where
// the in-memory store may stand in for PostgreSQL.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// durationEnv reads a whole-seconds variable first, then a Go duration string.
func durationEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
