package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	EventStore EventStoreConfig
	Auth       AuthConfig
	Alerts     AlertConfig
	Geocode    GeocodeConfig
	Cache      CacheConfig
	Media      MediaConfig
	Routing    RoutingConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// EventStoreConfig holds configuration for the EventStoreDB change feed.
type EventStoreConfig struct {
	// Host is the EventStoreDB server hostname
	Host string
	// Port is the gRPC port (default 2113)
	Port int
	// Insecure disables TLS (for development)
	Insecure bool
	// Username for authentication (optional)
	Username string
	// Password for authentication (optional)
	Password string
}

type AuthConfig struct {
	JWTSecret string
}

// AlertConfig holds the email alert thresholds configured by an admin.
// Alerts fire only for priorities whose flag is set, and only when an
// address is configured.
type AlertConfig struct {
	Enabled bool
	ToEmail string
	High    bool
	Urgent  bool
	// SendGridAPIKey authorizes the outbound email provider
	SendGridAPIKey string
	FromEmail      string
	FromName       string
}

// GeocodeConfig holds configuration for the forward-geocoding client.
type GeocodeConfig struct {
	// BiasLat/BiasLng bias Photon results toward the municipality
	BiasLat float64
	BiasLng float64
	// CountryCode restricts the Nominatim fallback
	CountryCode string
	// RequestsPerSecond caps outbound lookups (Nominatim usage policy)
	RequestsPerSecond float64
}

type CacheConfig struct {
	// Path to the local SQLite cache file
	Path string
}

type MediaConfig struct {
	// Dir is the root directory of stored report attachments
	Dir string
	// PublicBaseURL prefixes resolved attachment URLs
	PublicBaseURL string
}

type RoutingConfig struct {
	// OverridesPath points to an optional YAML file mapping categories to
	// departments, merged over the built-in table
	OverridesPath string
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "portal"),
			Password: getEnv("DB_PASSWORD", "portal"),
			Database: getEnv("DB_NAME", "portal"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		EventStore: EventStoreConfig{
			Host:     getEnv("EVENTSTORE_HOST", "localhost"),
			Port:     getEnvInt("EVENTSTORE_PORT", 2113),
			Insecure: getEnvBool("EVENTSTORE_INSECURE", true),
			Username: getEnv("EVENTSTORE_USERNAME", ""),
			Password: getEnv("EVENTSTORE_PASSWORD", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
		},
		Alerts: AlertConfig{
			Enabled:        getEnvBool("ALERT_EMAILS_ENABLED", false),
			ToEmail:        getEnv("ALERT_TO_EMAIL", ""),
			High:           getEnvBool("ALERT_ON_HIGH", true),
			Urgent:         getEnvBool("ALERT_ON_URGENT", true),
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromEmail:      getEnv("ALERT_FROM_EMAIL", "alerts@portal.local"),
			FromName:       getEnv("ALERT_FROM_NAME", "Civic Portal"),
		},
		Geocode: GeocodeConfig{
			BiasLat:           getEnvFloat("GEOCODE_BIAS_LAT", 18.9489),
			BiasLng:           getEnvFloat("GEOCODE_BIAS_LNG", 73.2245),
			CountryCode:       getEnv("GEOCODE_COUNTRY", "in"),
			RequestsPerSecond: getEnvFloat("GEOCODE_RPS", 1),
		},
		Cache: CacheConfig{
			Path: getEnv("LOCAL_CACHE_PATH", "portal-cache.db"),
		},
		Media: MediaConfig{
			Dir:           getEnv("MEDIA_DIR", "media"),
			PublicBaseURL: getEnv("MEDIA_BASE_URL", "/media"),
		},
		Routing: RoutingConfig{
			OverridesPath: getEnv("ROUTING_OVERRIDES_PATH", ""),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}
