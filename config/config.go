package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the water quality monitoring backend
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Database DatabaseConfig `yaml:"database"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// MaxRecords bounds the in-memory store when no database is reachable.
	MaxRecords int `yaml:"max_records"`
}

// MQTTConfig holds MQTT broker configuration
type MQTTConfig struct {
	Enabled           bool          `yaml:"enabled"`
	BrokerURL         string        `yaml:"broker_url"`
	ClientID          string        `yaml:"client_id"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	KeepAlive         time.Duration `yaml:"keep_alive"`
	PingTimeout       time.Duration `yaml:"ping_timeout"`
	ConnectRetry      bool          `yaml:"connect_retry"`
	TopicFieldSamples string        `yaml:"topic_field_samples"`
	TopicDischarges   string        `yaml:"topic_discharges"`
	TopicResults      string        `yaml:"topic_results"`
}

// DatabaseConfig holds database configuration. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver     string `yaml:"driver"`
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	DBName     string `yaml:"name"`
	SSLMode    string `yaml:"sslmode"`
	SQLitePath string `yaml:"sqlite_path"`
}

// ArchiveConfig holds the S3 destination for archived reports
type ArchiveConfig struct {
	Bucket          string        `yaml:"bucket"`
	Region          string        `yaml:"region"`
	Prefix          string        `yaml:"prefix"`
	Endpoint        string        `yaml:"endpoint"`
	PathStyle       bool          `yaml:"path_style"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	// Interval between scheduled report uploads; zero disables the scheduler.
	Interval time.Duration `yaml:"interval"`
}

// Enabled reports whether a bucket has been configured.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// Load loads configuration from environment variables with defaults. When
// CONFIG_FILE names a YAML file, the sections it sets override the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			MaxRecords:   getIntEnv("MAX_RECORDS", 5000),
		},
		MQTT: MQTTConfig{
			Enabled:           getBoolEnv("MQTT_ENABLED", true),
			BrokerURL:         getMQTTBrokerURL(),
			ClientID:          getEnv("MQTT_CLIENT_ID", "hydro_backend"),
			Username:          getEnv("MQTT_USERNAME", ""),
			Password:          getEnv("MQTT_PASSWORD", ""),
			KeepAlive:         getDurationEnv("MQTT_KEEP_ALIVE", 30*time.Second),
			PingTimeout:       getDurationEnv("MQTT_PING_TIMEOUT", 10*time.Second),
			ConnectRetry:      getBoolEnv("MQTT_CONNECT_RETRY", true),
			TopicFieldSamples: getEnv("MQTT_TOPIC_FIELD_SAMPLES", "hydro/stations/+/samples"),
			TopicDischarges:   getEnv("MQTT_TOPIC_DISCHARGES", "hydro/discharges/+/samples"),
			TopicResults:      getEnv("MQTT_TOPIC_RESULTS", "hydro/ica/results"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", ""),
			DBName:     getEnv("DB_NAME", "hydro"),
			SSLMode:    getEnv("DB_SSLMODE", "require"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "hydro.db"),
		},
		Archive: ArchiveConfig{
			Bucket:          getEnv("ARCHIVE_BUCKET", ""),
			Region:          getEnv("ARCHIVE_REGION", getEnv("AWS_REGION", "us-east-1")),
			Prefix:          getEnv("ARCHIVE_PREFIX", "ica-reports"),
			Endpoint:        getEnv("ARCHIVE_ENDPOINT", ""),
			PathStyle:       getBoolEnv("ARCHIVE_PATH_STYLE", false),
			AccessKeyID:     getEnv("ARCHIVE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("ARCHIVE_SECRET_ACCESS_KEY", ""),
			Interval:        getDurationEnv("ARCHIVE_INTERVAL", 0),
		},
		Metrics: MetricsConfig{
			Namespace: getEnv("METRICS_NAMESPACE", "hydro"),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the file
// keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse yaml: %w", err)
	}
	return nil
}

func validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver %q unknown: want postgres|sqlite", cfg.Database.Driver)
	}
	if cfg.Server.MaxRecords <= 0 {
		return fmt.Errorf("server.max_records must be positive, got %d", cfg.Server.MaxRecords)
	}
	if cfg.Archive.Interval < 0 {
		return fmt.Errorf("archive.interval must not be negative, got %v", cfg.Archive.Interval)
	}
	if cfg.Server.Port == "" {
		return fmt.Errorf("server.port must not be empty")
	}
	return nil
}

// getEnv returns environment variable value or default if not set
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv returns duration environment variable value or default if not set
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getBoolEnv returns boolean environment variable value or default if not set
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getIntEnv returns integer environment variable value or default if not set
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getMQTTBrokerURL returns MQTT broker URL with tcp:// prefix if not present
// Supports both "localhost:1883" and "tcp://localhost:1883" formats
func getMQTTBrokerURL() string {
	broker := getEnv("MQTT_BROKER", getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"))

	if !strings.Contains(broker, "://") {
		return "tcp://" + broker
	}
	return broker
}
