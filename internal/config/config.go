package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	MongoDB     MongoDBConfig
	SQLite      SQLiteConfig
	JWT         JWTConfig
	Reservation ReservationConfig
	Notify      NotifyConfig
	Entitlement EntitlementConfig
	LogLevel    string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// StorageConfig selects the storage backend: "mongo" or "sqlite"
type StorageConfig struct {
	Driver string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// SQLiteConfig holds the SQLite file path or libSQL URL
type SQLiteConfig struct {
	DSN string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int // seconds
}

// ReservationConfig tunes the ticket reservation engine
type ReservationConfig struct {
	TTLMinutes          int
	MaxTicketsPerOrder  int
	ReclaimInterval     time.Duration
	ReclaimGrace        time.Duration
	SampleBulkThreshold int
}

// NotifyConfig holds notification gateway configuration
type NotifyConfig struct {
	Gateway          string // MOCK, TELEGRAM or WEBHOOK
	DispatchInterval time.Duration
	BatchSize        int
	Telegram         TelegramConfig
	Webhook          WebhookConfig
}

// TelegramConfig holds the staff alert bot configuration
type TelegramConfig struct {
	Token  string
	ChatID int64
}

// WebhookConfig holds the outbound email/push relay configuration
type WebhookConfig struct {
	URL    string
	Secret string
}

// EntitlementConfig holds the organization entitlement API configuration
type EntitlementConfig struct {
	BaseURL string
	APIKey  string
	Mock    bool
}

// Load loads configuration from .env, an optional config file and
// environment variables. An empty path searches "." and "./config".
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "mongo":
		if c.MongoDB.URI == "" {
			return errors.New("config: MongoDB.URI is required for the mongo driver")
		}
	case "sqlite":
		if c.SQLite.DSN == "" {
			return errors.New("config: SQLite.DSN is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Reservation.TTLMinutes <= 0 {
		return errors.New("config: Reservation.TTLMinutes must be positive")
	}
	if c.Reservation.MaxTicketsPerOrder <= 0 {
		return errors.New("config: Reservation.MaxTicketsPerOrder must be positive")
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "8080")
	v.SetDefault("Server.AllowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("Server.ShutdownTimeout", 15*time.Second)
	v.SetDefault("Storage.Driver", "sqlite")
	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	v.SetDefault("MongoDB.Database", "raffles")
	v.SetDefault("MongoDB.ConnectTimeout", 10*time.Second)
	v.SetDefault("SQLite.DSN", "raffles.db")
	v.SetDefault("JWT.Secret", "")
	v.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	v.SetDefault("Reservation.TTLMinutes", 60)
	v.SetDefault("Reservation.MaxTicketsPerOrder", 500)
	v.SetDefault("Reservation.ReclaimInterval", time.Minute)
	v.SetDefault("Reservation.ReclaimGrace", 5*time.Minute)
	v.SetDefault("Reservation.SampleBulkThreshold", 100)
	v.SetDefault("Notify.Gateway", "MOCK")
	v.SetDefault("Notify.DispatchInterval", 5*time.Second)
	v.SetDefault("Notify.BatchSize", 50)
	v.SetDefault("Notify.Telegram.Token", "")
	v.SetDefault("Notify.Telegram.ChatID", 0)
	v.SetDefault("Notify.Webhook.URL", "")
	v.SetDefault("Notify.Webhook.Secret", "")
	v.SetDefault("Entitlement.BaseURL", "")
	v.SetDefault("Entitlement.APIKey", "")
	v.SetDefault("Entitlement.Mock", true)
	v.SetDefault("LogLevel", "info")
}
