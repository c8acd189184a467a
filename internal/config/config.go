package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string `env:"PORT" envDefault:"8080"`
	Env  string `env:"ENV" envDefault:"development"`

	// Database: a postgres URL, or sqlite://<path> for a single-binary store
	DatabaseURL   string `env:"DATABASE_URL,required,notEmpty"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"./migrations"`

	// Redis (empty disables realtime notifications)
	RedisURL string `env:"REDIS_URL"`

	// JWT
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`

	// Sweeps
	SessionStartSweepInterval    time.Duration `env:"SESSION_START_SWEEP_INTERVAL" envDefault:"60s"`
	AttendanceSweepInterval      time.Duration `env:"ATTENDANCE_SWEEP_INTERVAL" envDefault:"60s"`
	ExceptionExpirySweepInterval time.Duration `env:"EXCEPTION_EXPIRY_SWEEP_INTERVAL" envDefault:"1h"`

	// Notifications
	NotificationWorkers int `env:"NOTIFICATION_WORKERS" envDefault:"2"`

	// Tracing
	OTelEndpoint    string `env:"OTEL_EXPORTER_ENDPOINT"`
	OTelServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"dmt-app"`

	// Frontend
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
}

const sqlitePrefix = "sqlite://"

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	intervals := []struct {
		name string
		d    time.Duration
	}{
		{"SESSION_START_SWEEP_INTERVAL", c.SessionStartSweepInterval},
		{"ATTENDANCE_SWEEP_INTERVAL", c.AttendanceSweepInterval},
		{"EXCEPTION_EXPIRY_SWEEP_INTERVAL", c.ExceptionExpirySweepInterval},
	}
	for _, iv := range intervals {
		if iv.d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", iv.name, iv.d)
		}
	}
	if c.NotificationWorkers < 1 {
		return fmt.Errorf("NOTIFICATION_WORKERS must be at least 1, got %d", c.NotificationWorkers)
	}
	if c.UsesSQLite() && c.SQLitePath() == "" {
		return fmt.Errorf("DATABASE_URL %q has no sqlite path", c.DatabaseURL)
	}
	return nil
}

// UsesSQLite reports whether DATABASE_URL selects the embedded store.
func (c *Config) UsesSQLite() bool {
	return strings.HasPrefix(c.DatabaseURL, sqlitePrefix)
}

func (c *Config) SQLitePath() string {
	return strings.TrimPrefix(c.DatabaseURL, sqlitePrefix)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
