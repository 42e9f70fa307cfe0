package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Record store backends.
const (
	StoreCSV      = "csv"
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Caregiver alert transports.
const (
	AlertHTTP = "http"
	AlertMQTT = "mqtt"
)

// DatabaseConfig PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN builds a lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// MQTTConfig broker settings for caregiver alerts
type MQTTConfig struct {
	Enabled    bool
	Broker     string
	ClientID   string
	Username   string
	Password   string
	AlertTopic string
	QoS        byte
}

// MailConfig HTTP mail gateway used to e-mail caregivers
type MailConfig struct {
	GatewayURL  string
	SenderEmail string // HEARTPI_EMAIL
	AppPassword string // HEARTPI_APP_PASSWORD
	Timeout     time.Duration
}

// Config heartpi service configuration
type Config struct {
	ServiceName string

	HTTP struct {
		Addr string
	}

	Store struct {
		Backend        string
		UserDataPath   string
		ReadingLogPath string
	}

	Assessment struct {
		FollowUpSamples int
		FollowUpSpread  float64
		Stream          string        // Redis stream receiving assessment events
		LatestTTL       time.Duration // TTL of the cached latest assessment
	}

	Alert struct {
		Transport string
	}

	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	Mail     MailConfig

	Log struct {
		Level        string
		Format       string
		ErrorLogPath string
	}
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.ServiceName = getEnv("SERVICE_NAME", "heartpi")
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Store.Backend = strings.ToLower(getEnv("STORE_BACKEND", StoreCSV))
	cfg.Store.UserDataPath = getEnv("USERDATA_PATH", "userdata.csv")
	cfg.Store.ReadingLogPath = getEnv("READING_LOG_PATH", "heart_log.csv")

	cfg.Assessment.FollowUpSamples = parseInt(getEnv("FOLLOW_UP_SAMPLES", "19"), 19)
	cfg.Assessment.FollowUpSpread = parseFloat(getEnv("FOLLOW_UP_SPREAD", "5"), 5)
	cfg.Assessment.Stream = getEnv("ASSESSMENT_STREAM", "heartpi:assessments")
	cfg.Assessment.LatestTTL = parseDuration(getEnv("LATEST_CACHE_TTL", "24h"), 24*time.Hour)

	cfg.Alert.Transport = strings.ToLower(getEnv("ALERT_TRANSPORT", AlertHTTP))

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "heartpi")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "2"), 2)

	cfg.Redis.Enabled = parseBool(getEnv("REDIS_ENABLED", "false"))
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.MQTT.Enabled = parseBool(getEnv("MQTT_ENABLED", "false"))
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "heartpi")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.AlertTopic = getEnv("MQTT_ALERT_TOPIC", "heartpi/alerts")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))

	cfg.Mail.GatewayURL = getEnv("MAIL_GATEWAY_URL", "")
	cfg.Mail.SenderEmail = getEnv("HEARTPI_EMAIL", "")
	cfg.Mail.AppPassword = getEnv("HEARTPI_APP_PASSWORD", "")
	cfg.Mail.Timeout = parseDuration(getEnv("MAIL_TIMEOUT", "10s"), 10*time.Second)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")
	cfg.Log.ErrorLogPath = getEnv("ERROR_LOG_PATH", "Error_log.txt")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks option values that have no safe fallback.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreCSV, StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	switch c.Alert.Transport {
	case AlertHTTP, AlertMQTT:
	default:
		return fmt.Errorf("unknown ALERT_TRANSPORT %q", c.Alert.Transport)
	}
	if c.Alert.Transport == AlertMQTT && !c.MQTT.Enabled {
		return fmt.Errorf("ALERT_TRANSPORT=mqtt requires MQTT_ENABLED=true")
	}
	if c.Assessment.FollowUpSamples < 0 {
		return fmt.Errorf("FOLLOW_UP_SAMPLES must not be negative, got %d", c.Assessment.FollowUpSamples)
	}
	if c.Assessment.FollowUpSpread < 0 {
		return fmt.Errorf("FOLLOW_UP_SPREAD must not be negative, got %g", c.Assessment.FollowUpSpread)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
