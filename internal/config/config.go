package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Alerting      AlertingConfig      `mapstructure:"alerting"`
	Collector     CollectorConfig     `mapstructure:"collector"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Security      SecurityConfig      `mapstructure:"security"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MigrationsPath string `mapstructure:"migrations_path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AlertingConfig controls the alerting and escalation engine.
type AlertingConfig struct {
	Enabled            bool            `mapstructure:"enabled"`
	EvaluationInterval string          `mapstructure:"evaluation_interval"`
	EscalationInterval string          `mapstructure:"escalation_interval"`
	DefinitionsPath    string          `mapstructure:"definitions_path"`
	Retention          RetentionConfig `mapstructure:"retention"`
}

// RetentionConfig controls how long closed alerts and raw samples are kept.
type RetentionConfig struct {
	Schedule     string `mapstructure:"schedule"`
	AlertMaxAge  string `mapstructure:"alert_max_age"`
	SampleMaxAge string `mapstructure:"sample_max_age"`
}

// CollectorConfig controls the built-in system metric sampler.
type CollectorConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Interval    string `mapstructure:"interval"`
	ServiceName string `mapstructure:"service_name"`
}

// NotificationsConfig holds provider settings shared by the channel notifiers.
type NotificationsConfig struct {
	HTTPTimeout string     `mapstructure:"http_timeout"`
	Email       SMTPConfig `mapstructure:"email"`
}

type SMTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	From string `mapstructure:"from"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	EnableCORS     bool     `mapstructure:"enable_cors"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("logging.level", "LOG_LEVEL")
	viper.BindEnv("alerting.enabled", "ALERTING_ENABLED")
	viper.BindEnv("alerting.definitions_path", "ALERTING_DEFINITIONS_PATH")
	viper.BindEnv("collector.enabled", "COLLECTOR_ENABLED")
	viper.BindEnv("notifications.email.host", "SMTP_HOST")
	viper.BindEnv("notifications.email.port", "SMTP_PORT")
	viper.BindEnv("notifications.email.from", "SMTP_FROM")

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; defaults plus env cover local runs.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8090)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.mode", "development")

	viper.SetDefault("database.path", "./data/pulse.db")
	viper.SetDefault("database.migrations_path", "./migrations")
	viper.SetDefault("database.max_connections", 10)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("alerting.enabled", true)
	viper.SetDefault("alerting.evaluation_interval", "60s")
	viper.SetDefault("alerting.escalation_interval", "30s")
	viper.SetDefault("alerting.retention.schedule", "@hourly")
	viper.SetDefault("alerting.retention.alert_max_age", "168h")
	viper.SetDefault("alerting.retention.sample_max_age", "72h")

	viper.SetDefault("collector.enabled", true)
	viper.SetDefault("collector.interval", "30s")
	viper.SetDefault("collector.service_name", "pulse-backend")

	viper.SetDefault("notifications.http_timeout", "15s")
	viper.SetDefault("notifications.email.port", 587)

	viper.SetDefault("security.enable_cors", true)
	viper.SetDefault("security.allowed_origins", []string{"*"})
}

// Duration parses a duration config value, falling back when unset or invalid.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
