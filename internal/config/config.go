package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var (
	instance *Config
	once     sync.Once
)

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	AppURL      string

	// Sandbox provider
	SandboxAPIURL string
	SandboxAPIKey string

	// Shared secret for internal service webhooks
	WebhookApiKey string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string

	// Scaling executor cluster access
	KubeConfigPath  string
	ScalerNamespace string

	// Orchestration
	MaxSandboxesPerUser int
	SandboxMaxAge       time.Duration
	SandboxMaxIdle      time.Duration
	CleanupInterval     time.Duration

	// Autoscaling
	EvaluationInterval time.Duration
	MaxInstancesCap    int

	// CORS
	CorsOrigins string
}

func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()

		instance = &Config{
			Port:                getEnv("PORT", "8080"),
			DatabaseURL:         getEnv("DATABASE_URL", ""),
			JWTSecret:           getEnv("JWT_SECRET", ""),
			AppURL:              getEnv("APP_URL", "http://localhost:3000"),
			SandboxAPIURL:       getEnv("SANDBOX_API_URL", "http://localhost:4000"),
			SandboxAPIKey:       getEnv("SANDBOX_API_KEY", ""),
			WebhookApiKey:       getEnv("WEBHOOK_API_KEY", ""),
			RedisHost:           getEnv("REDIS_HOST", "localhost"),
			RedisPort:           getEnv("REDIS_PORT", "6379"),
			RedisUsername:       getEnv("REDIS_USERNAME", ""),
			RedisPassword:       getEnv("REDIS_PASSWORD", ""),
			KubeConfigPath:      getEnv("KUBECONFIG", ""),
			ScalerNamespace:     getEnv("SCALER_NAMESPACE", "deployments"),
			MaxSandboxesPerUser: getEnvInt("MAX_SANDBOXES_PER_USER", 3),
			SandboxMaxAge:       getEnvDuration("SANDBOX_MAX_AGE", time.Hour),
			SandboxMaxIdle:      getEnvDuration("SANDBOX_MAX_IDLE", 30*time.Minute),
			CleanupInterval:     getEnvDuration("CLEANUP_INTERVAL", 10*time.Minute),
			EvaluationInterval:  getEnvDuration("EVALUATION_INTERVAL", 30*time.Second),
			MaxInstancesCap:     getEnvInt("MAX_INSTANCES_CAP", 10),
			CorsOrigins:         getEnv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"),
		}
	})
	return instance
}

// Get returns the loaded config instance
func Get() *Config {
	return instance
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
