package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variable.
type Config struct {
	// Gateway Process Configurations
	GatewayScript        string `mapstructure:"GATEWAY_SCRIPT"`
	GatewayInterpreter   string `mapstructure:"GATEWAY_INTERPRETER"`
	GatewayBaseDir       string `mapstructure:"GATEWAY_BASE_DIR"`
	ResultPrefix         string `mapstructure:"RESULT_PREFIX"`
	InvokeTimeoutSeconds int    `mapstructure:"INVOKE_TIMEOUT_SECONDS"`
	ValidatePayload      bool   `mapstructure:"VALIDATE_PAYLOAD"`

	// Worker Configurations
	WorkerConcurrency int `mapstructure:"WORKER_CONCURRENCY"`
	InternalQueueSize int `mapstructure:"INTERNAL_QUEUE_SIZE"`

	// Server Configurations
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`
	TLSCertFile   string `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile    string `mapstructure:"TLS_KEY_FILE"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`

	// Health Configurations
	HealthFailureWindowMinutes int `mapstructure:"HEALTH_FAILURE_WINDOW_MINUTES"`
	HealthFailureThreshold     int `mapstructure:"HEALTH_FAILURE_THRESHOLD"`

	// History Configurations
	HistoryEnabled      bool   `mapstructure:"HISTORY_ENABLED"`
	HistoryBatchSize    int    `mapstructure:"HISTORY_BATCH_SIZE"`
	HistoryFlushSeconds int    `mapstructure:"HISTORY_FLUSH_SECONDS"`
	DBHost              string `mapstructure:"DB_HOST"`
	DBUser              string `mapstructure:"DB_USER"`
	DBPassword          string `mapstructure:"DB_PASSWORD"`
	DBName              string `mapstructure:"DB_NAME"`
	DBPort              string `mapstructure:"DB_PORT"`

	// Security/Encryption Configurations
	EncryptionKey        string `mapstructure:"GATEWAY_SECRET"`
	JWTSecret            string `mapstructure:"JWT_SECRET"`
	AdminUser            string `mapstructure:"ADMIN_USER"`
	AdminHash            string `mapstructure:"ADMIN_HASH"`
	SessionDurationHours int    `mapstructure:"SESSION_DURATION_HOURS"`
}

// InvokeTimeout returns the configured per-invocation timeout (zero means none).
func (c *Config) InvokeTimeout() time.Duration {
	return time.Duration(c.InvokeTimeoutSeconds) * time.Second
}

// HistoryFlushInterval returns how often buffered history rows are flushed.
func (c *Config) HistoryFlushInterval() time.Duration {
	return time.Duration(c.HistoryFlushSeconds) * time.Second
}

// AuthEnabled reports whether the API requires a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// 1. Set Defaults
	v.SetDefault("GATEWAY_SCRIPT", "modbus_gateway.py")
	v.SetDefault("GATEWAY_INTERPRETER", "python3")
	v.SetDefault("GATEWAY_BASE_DIR", "")
	v.SetDefault("RESULT_PREFIX", "")
	v.SetDefault("INVOKE_TIMEOUT_SECONDS", 0)
	v.SetDefault("VALIDATE_PAYLOAD", false)
	v.SetDefault("WORKER_CONCURRENCY", 4)
	v.SetDefault("INTERNAL_QUEUE_SIZE", 100)
	v.SetDefault("SERVER_ADDRESS", ":8080")
	v.SetDefault("TLS_CERT_FILE", "")
	v.SetDefault("TLS_KEY_FILE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HEALTH_FAILURE_WINDOW_MINUTES", 5)
	v.SetDefault("HEALTH_FAILURE_THRESHOLD", 3)
	v.SetDefault("HISTORY_ENABLED", false)
	v.SetDefault("HISTORY_BATCH_SIZE", 50)
	v.SetDefault("HISTORY_FLUSH_SECONDS", 5)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_USER", "gateway")
	v.SetDefault("DB_PASSWORD", "gateway")
	v.SetDefault("DB_NAME", "gateway")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("GATEWAY_SECRET", "1234567890123456789012345678901212345678901234567890123456789012")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ADMIN_USER", "admin")
	v.SetDefault("ADMIN_HASH", "$2a$10$BST/uOdLLXUyqO4fN.b9cuwVwoXEJWWFzpc4iirHiu3GcgbuJqtdu")
	v.SetDefault("SESSION_DURATION_HOURS", 24)

	// 2. Read app.yaml if exists
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	// 3. Read .env if exists (overriding app.yaml)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	// 4. Allow Viper to read Environment Variables (highest priority)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.WorkerConcurrency < 1 {
		config.WorkerConcurrency = 1
	}
	if config.InternalQueueSize < 0 {
		config.InternalQueueSize = 0
	}

	return &config, nil
}
