package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Sync        SyncConfig
	Integration IntegrationConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
}

type DatabaseConfig struct {
	Connection string
	// Channel the row-level triggers NOTIFY on.
	ChangeChannel string
}

// SyncConfig carries the realtime policy knobs. The defaults mirror the
// deployed values, but none of them is an invariant so everything is
// overridable from the environment.
type SyncConfig struct {
	MaxConnections  int
	MaxMessageSize  int64
	PresenceTTL     time.Duration // server-side purge window
	PresenceSweep   time.Duration
	ActiveWindow    time.Duration // client-side display window
	ReconnectBase   time.Duration
	ReconnectMax    time.Duration
	DebounceWindow  time.Duration
	QueueMaxRetries int
}

type IntegrationConfig struct {
	WebhookURL     string
	RequestTimeout time.Duration
	MaxAttempts    int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", ""),
			JWTSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection:    getEnv("DB_CONNECTION_STRING", ""),
			ChangeChannel: getEnv("DB_CHANGE_CHANNEL", "assessment_changes"),
		},
		Sync: SyncConfig{
			MaxConnections:  getEnvAsInt("SYNC_MAX_CONNECTIONS", 100),
			MaxMessageSize:  int64(getEnvAsInt("SYNC_MAX_MESSAGE_SIZE", 64*1024)),
			PresenceTTL:     getEnvAsDuration("SYNC_PRESENCE_TTL", 60*time.Second),
			PresenceSweep:   getEnvAsDuration("SYNC_PRESENCE_SWEEP", 60*time.Second),
			ActiveWindow:    getEnvAsDuration("SYNC_ACTIVE_WINDOW", 30*time.Second),
			ReconnectBase:   getEnvAsDuration("SYNC_RECONNECT_BASE", time.Second),
			ReconnectMax:    getEnvAsDuration("SYNC_RECONNECT_MAX", 30*time.Second),
			DebounceWindow:  getEnvAsDuration("SYNC_DEBOUNCE_WINDOW", time.Second),
			QueueMaxRetries: getEnvAsInt("SYNC_QUEUE_MAX_RETRIES", 3),
		},
		Integration: IntegrationConfig{
			WebhookURL:     getEnv("INTEGRATION_WEBHOOK_URL", ""),
			RequestTimeout: getEnvAsDuration("INTEGRATION_TIMEOUT", 30*time.Second),
			MaxAttempts:    getEnvAsInt("INTEGRATION_MAX_ATTEMPTS", 3),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
