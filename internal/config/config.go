package config

import (
	"os"
	"strconv"
	"time"

	"fastticket/internal/cache"
	"fastticket/internal/database"
	"fastticket/internal/messaging"
	"fastticket/internal/outbox"
)

// Config holds the configuration for one service binary
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	Database database.Config
	NATS     messaging.Config
	Outbox   outbox.Config
	Auth     AuthConfig
	Cache    cache.Config

	Elasticsearch ElasticsearchConfig

	// Booking service: stuck-pending monitor tunables
	StuckThreshold     time.Duration
	StuckCheckInterval time.Duration
}

// AuthConfig configures the identity boundary. The secret is shared with
// the external auth service that issues the tokens.
type AuthConfig struct {
	JWTSecret string
}

// ElasticsearchConfig configures the optional event search index
type ElasticsearchConfig struct {
	Enabled    bool
	URL        string
	Username   string
	Password   string
	Index      string
	MaxRetries int
}

// LoadBooking loads the booking service configuration from the environment
func LoadBooking() *Config {
	cfg := loadCommon("8001", "booking-service")
	cfg.Database = databaseConfig("BOOKING_DB", "booking")
	cfg.StuckThreshold = time.Duration(getEnvInt("STUCK_PENDING_THRESHOLD_SEC", 300)) * time.Second
	cfg.StuckCheckInterval = time.Duration(getEnvInt("STUCK_PENDING_CHECK_SEC", 60)) * time.Second
	return cfg
}

// LoadEvents loads the events service configuration from the environment
func LoadEvents() *Config {
	cfg := loadCommon("8002", "events-service")
	cfg.Database = databaseConfig("EVENTS_DB", "events")

	cfg.Cache = cache.Config{
		Enabled:  getEnv("CACHE_ENABLED", "false") == "true",
		Addr:     getEnv("CACHE_ADDR", "localhost:6379"),
		Password: getEnv("CACHE_PASSWORD", ""),
		TTL:      time.Duration(getEnvInt("CACHE_TTL_SEC", 30)) * time.Second,
	}

	cfg.Elasticsearch = ElasticsearchConfig{
		Enabled:    getEnv("ELASTICSEARCH_ENABLED", "false") == "true",
		URL:        getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
		Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
		Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
		Index:      getEnv("ELASTICSEARCH_INDEX", "events"),
		MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
	}
	return cfg
}

func loadCommon(defaultPort, clientID string) *Config {
	return &Config{
		Port:           getEnv("PORT", defaultPort),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "fastticket"),
			ClientID:  getEnv("NATS_CLIENT_ID", clientID),
		},

		Outbox: outbox.Config{
			RelayInterval: time.Duration(getEnvInt("OUTBOX_RELAY_INTERVAL_SEC", 2)) * time.Second,
			BatchSize:     getEnvInt("OUTBOX_BATCH_SIZE", 100),
			MaxRetries:    getEnvInt("OUTBOX_MAX_RETRIES", 10),
			BackoffBase:   time.Duration(getEnvInt("OUTBOX_BACKOFF_BASE_MS", 500)) * time.Millisecond,
			BackoffMax:    time.Duration(getEnvInt("OUTBOX_BACKOFF_MAX_SEC", 60)) * time.Second,
		},

		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
	}
}

func databaseConfig(prefix, dbName string) database.Config {
	return database.Config{
		Host:               getEnv(prefix+"_HOST", "localhost"),
		Port:               getEnvInt(prefix+"_PORT", 5432),
		User:               getEnv(prefix+"_USER", "fastticket"),
		Password:           getEnv(prefix+"_PASSWORD", "fastticket123"),
		DBName:             getEnv(prefix+"_NAME", dbName),
		SSLMode:            getEnv(prefix+"_SSLMODE", "disable"),
		MaxOpenConns:       getEnvInt(prefix+"_MAX_OPEN_CONNS", 50),
		MaxIdleConns:       getEnvInt(prefix+"_MAX_IDLE_CONNS", 10),
		ConnMaxLifetimeMin: getEnvInt(prefix+"_CONN_MAX_LIFETIME_MIN", 5),
		ConnMaxIdleTimeMin: getEnvInt(prefix+"_CONN_MAX_IDLE_TIME_MIN", 1),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
