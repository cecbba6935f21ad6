package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	OverlapBoundaryStrict    = "strict"
	OverlapBoundaryInclusive = "inclusive"
)

type HTTPConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

type DBConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret        string
	SessionTTL          time.Duration
	ConfirmationTTL     time.Duration
	MaxFailedLogins     int
	LoginRateLimitRPS   float64
	LoginRateLimitBurst int
}

type NotifyConfig struct {
	NATSURL       string
	SubjectPrefix string
	Timeout       time.Duration
	BaseURL       string
}

type WorkOrderConfig struct {
	SchedulingWindow time.Duration
	OverlapBoundary  string
	NumberRetries    int
	TemplateSeedFile string
}

type Config struct {
	Environment string
	LogLevel    string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Notify      NotifyConfig
	WorkOrders  WorkOrderConfig
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		HTTP: HTTPConfig{
			Host:            v.GetString("HTTP_HOST"),
			Port:            v.GetInt("HTTP_PORT"),
			ShutdownTimeout: v.GetDuration("HTTP_SHUTDOWN_TIMEOUT"),
		},
		DB: DBConfig{
			Driver:          strings.ToLower(v.GetString("STORAGE_DRIVER")),
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret:        v.GetString("JWT_ACCESS_SECRET"),
			SessionTTL:          v.GetDuration("SESSION_TTL"),
			ConfirmationTTL:     v.GetDuration("CONFIRMATION_TTL"),
			MaxFailedLogins:     v.GetInt("MAX_FAILED_LOGINS"),
			LoginRateLimitRPS:   v.GetFloat64("LOGIN_RATE_LIMIT_RPS"),
			LoginRateLimitBurst: v.GetInt("LOGIN_RATE_LIMIT_BURST"),
		},
		Notify: NotifyConfig{
			NATSURL:       v.GetString("NATS_URL"),
			SubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
			Timeout:       v.GetDuration("NOTIFY_TIMEOUT"),
			BaseURL:       v.GetString("APP_BASE_URL"),
		},
		WorkOrders: WorkOrderConfig{
			SchedulingWindow: v.GetDuration("SCHEDULING_WINDOW"),
			OverlapBoundary:  strings.ToLower(v.GetString("SCHEDULING_OVERLAP_BOUNDARY")),
			NumberRetries:    v.GetInt("WORK_ORDER_NUMBER_RETRIES"),
			TemplateSeedFile: v.GetString("TASK_TEMPLATE_SEED_FILE"),
		},
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = StorageDriverPostgres
	}
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 20
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 5
	}
	if cfg.DB.ConnMaxLifetime == 0 {
		cfg.DB.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 8 * time.Hour
	}
	if cfg.Auth.ConfirmationTTL == 0 {
		cfg.Auth.ConfirmationTTL = 24 * time.Hour
	}
	if cfg.Auth.MaxFailedLogins == 0 {
		cfg.Auth.MaxFailedLogins = 3
	}
	if cfg.Auth.LoginRateLimitRPS == 0 {
		cfg.Auth.LoginRateLimitRPS = 1
	}
	if cfg.Auth.LoginRateLimitBurst == 0 {
		cfg.Auth.LoginRateLimitBurst = 5
	}
	if cfg.Notify.SubjectPrefix == "" {
		cfg.Notify.SubjectPrefix = "notifications.workorders"
	}
	if cfg.Notify.Timeout == 0 {
		cfg.Notify.Timeout = 5 * time.Second
	}
	if cfg.Notify.BaseURL == "" {
		cfg.Notify.BaseURL = "http://localhost:8080"
	}
	if cfg.WorkOrders.SchedulingWindow == 0 {
		cfg.WorkOrders.SchedulingWindow = 7 * 24 * time.Hour
	}
	if cfg.WorkOrders.OverlapBoundary == "" {
		cfg.WorkOrders.OverlapBoundary = OverlapBoundaryStrict
	}
	if cfg.WorkOrders.NumberRetries == 0 {
		cfg.WorkOrders.NumberRetries = 3
	}
}

func validate(cfg *Config) error {
	switch cfg.DB.Driver {
	case StorageDriverPostgres:
		if cfg.DB.DSN == "" {
			return fmt.Errorf("DB_DSN is required")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q", StorageDriverPostgres, StorageDriverMemory)
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Auth.MaxFailedLogins < 1 {
		return fmt.Errorf("MAX_FAILED_LOGINS must be positive")
	}
	switch cfg.WorkOrders.OverlapBoundary {
	case OverlapBoundaryStrict, OverlapBoundaryInclusive:
	default:
		return fmt.Errorf("SCHEDULING_OVERLAP_BOUNDARY must be %q or %q", OverlapBoundaryStrict, OverlapBoundaryInclusive)
	}
	return nil
}
