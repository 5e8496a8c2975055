package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database drivers accepted by database.driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName               string
	AppEnv                string
	AppPort               string
	DatabaseDriver        string
	DatabaseURL           string
	RedisURL              string
	NATSURL               string
	JWTSecret             string
	NotificationChannel   string
	NotificationKeepAlive time.Duration
	RateLimitRequests     int
	RateLimitWindow       time.Duration
	SeedEnabled           bool
	SeedToken             string
	CORSAllowOrigins      string
	AccessLog             bool
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("HOSTEL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Hostel Allocation API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("notifications.channel", "hostel")
	v.SetDefault("notifications.keepalive", "30s")
	v.SetDefault("rate_limit.requests", 10)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("seed.enabled", false)
	v.SetDefault("http.access_log", true)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	keepAlive, err := parseDuration(v, "notifications.keepalive")
	if err != nil {
		return Config{}, err
	}
	window, err := parseDuration(v, "rate_limit.window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:               v.GetString("app.name"),
		AppEnv:                v.GetString("app.env"),
		AppPort:               v.GetString("app.port"),
		DatabaseDriver:        strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
		DatabaseURL:           v.GetString("database.url"),
		RedisURL:              v.GetString("redis.url"),
		NATSURL:               v.GetString("nats.url"),
		JWTSecret:             v.GetString("jwt.secret"),
		NotificationChannel:   v.GetString("notifications.channel"),
		NotificationKeepAlive: keepAlive,
		RateLimitRequests:     v.GetInt("rate_limit.requests"),
		RateLimitWindow:       window,
		SeedEnabled:           v.GetBool("seed.enabled"),
		SeedToken:             v.GetString("seed.token"),
		CORSAllowOrigins:      v.GetString("cors.allow_origins"),
		AccessLog:             v.GetBool("http.access_log"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.SeedEnabled && strings.TrimSpace(cfg.SeedToken) == "" {
		return Config{}, fmt.Errorf("seed token must be provided when seeding is enabled")
	}

	if cfg.RateLimitRequests <= 0 {
		cfg.RateLimitRequests = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" || raw == "0" {
		return 0, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return parsed, nil
}
