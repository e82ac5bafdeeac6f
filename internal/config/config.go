// Package config centraliza o carregamento de configurações da aplicação.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tanguilp/apiac-filter-throttler/internal/core/domain"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Throttle ThrottleConfig
}

type ServerConfig struct {
	Port string
}

type StorageConfig struct {
	Type  string
	Redis RedisConfig
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ThrottleConfig agrega os parâmetros do filtro. Scale e Limit são
// obrigatórios: sem eles a aplicação se recusa a iniciar.
type ThrottleConfig struct {
	Strategy       string
	Hashed         bool
	Scale          time.Duration
	Limit          int64
	Increment      int64
	Verbosity      domain.Verbosity
	FailOpen       bool
	ExemptMachines bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	server := ServerConfig{Port: getEnv("SERVER_PORT", "8080")}

	storageType := getEnv("STORAGE_TYPE", "memory")

	redisConfig, err := buildRedisConfig()
	if err != nil {
		return Config{}, err
	}

	throttleConfig, err := buildThrottleConfig()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Server: server,
		Storage: StorageConfig{
			Type:  storageType,
			Redis: redisConfig,
		},
		Throttle: throttleConfig,
	}, nil
}

func buildRedisConfig() (RedisConfig, error) {
	host := getEnv("REDIS_HOST", "localhost")
	port, err := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	return RedisConfig{
		Host:     host,
		Port:     port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func buildThrottleConfig() (ThrottleConfig, error) {
	scaleStr := strings.TrimSpace(os.Getenv("THROTTLE_SCALE_MS"))
	if scaleStr == "" {
		return ThrottleConfig{}, fmt.Errorf("THROTTLE_SCALE_MS is required")
	}
	scaleMs, err := strconv.ParseInt(scaleStr, 10, 64)
	if err != nil || scaleMs <= 0 {
		return ThrottleConfig{}, fmt.Errorf("invalid THROTTLE_SCALE_MS: %q", scaleStr)
	}

	limitStr := strings.TrimSpace(os.Getenv("THROTTLE_LIMIT"))
	if limitStr == "" {
		return ThrottleConfig{}, fmt.Errorf("THROTTLE_LIMIT is required")
	}
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit < 0 {
		return ThrottleConfig{}, fmt.Errorf("invalid THROTTLE_LIMIT: %q", limitStr)
	}

	increment, err := strconv.ParseInt(getEnv("THROTTLE_INCREMENT", "1"), 10, 64)
	if err != nil || increment < 1 {
		return ThrottleConfig{}, fmt.Errorf("invalid THROTTLE_INCREMENT")
	}

	verbosity, err := domain.ParseVerbosity(getEnv("THROTTLE_VERBOSITY", "normal"))
	if err != nil {
		return ThrottleConfig{}, fmt.Errorf("invalid THROTTLE_VERBOSITY: %w", err)
	}

	failOpen, err := buildErrorPolicy()
	if err != nil {
		return ThrottleConfig{}, err
	}

	hashed, err := strconv.ParseBool(getEnv("THROTTLE_KEY_HASHED", "false"))
	if err != nil {
		return ThrottleConfig{}, fmt.Errorf("invalid THROTTLE_KEY_HASHED: %w", err)
	}

	exempt, err := strconv.ParseBool(getEnv("THROTTLE_EXEMPT_MACHINES", "false"))
	if err != nil {
		return ThrottleConfig{}, fmt.Errorf("invalid THROTTLE_EXEMPT_MACHINES: %w", err)
	}

	return ThrottleConfig{
		Strategy:       getEnv("THROTTLE_KEY", "ip"),
		Hashed:         hashed,
		Scale:          time.Duration(scaleMs) * time.Millisecond,
		Limit:          limit,
		Increment:      increment,
		Verbosity:      verbosity,
		FailOpen:       failOpen,
		ExemptMachines: exempt,
	}, nil
}

func buildErrorPolicy() (bool, error) {
	switch policy := getEnv("THROTTLE_ON_BACKEND_ERROR", "fail_closed"); policy {
	case "fail_closed":
		return false, nil
	case "fail_open":
		return true, nil
	default:
		return false, fmt.Errorf("THROTTLE_ON_BACKEND_ERROR must be fail_closed or fail_open, got %q", policy)
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
