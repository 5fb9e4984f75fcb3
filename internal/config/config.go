package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Policy     PolicyConfig     `mapstructure:"policy"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds record store configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ExtractionConfig holds the extraction collaborator configuration
type ExtractionConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PolicyConfig holds the reconciliation policy thresholds
type PolicyConfig struct {
	AmountThreshold   string `mapstructure:"amount_threshold"`
	MaxReceiptAgeDays int    `mapstructure:"max_receipt_age_days"`
}

// ScheduleConfig holds the end-of-day schedule synthesis anchors
type ScheduleConfig struct {
	DayStart        string `mapstructure:"day_start"` // HH:MM
	DayEnd          string `mapstructure:"day_end"`   // HH:MM
	MinBlockMinutes int    `mapstructure:"min_block_minutes"`
	MaxBlockMinutes int    `mapstructure:"max_block_minutes"`
}

// NotifyConfig holds the optional Lark report push configuration
type NotifyConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	AppID         string `mapstructure:"app_id"`
	AppSecret     string `mapstructure:"app_secret"`
	ReceiveIDType string `mapstructure:"receive_id_type"`
	ReceiveID     string `mapstructure:"receive_id"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/claims.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	viper.SetDefault("extraction.model", "gpt-4o")
	viper.SetDefault("extraction.timeout", 60*time.Second)

	viper.SetDefault("policy.amount_threshold", "300.00")
	viper.SetDefault("policy.max_receipt_age_days", 30)

	viper.SetDefault("schedule.day_start", "09:00")
	viper.SetDefault("schedule.day_end", "17:00")
	viper.SetDefault("schedule.min_block_minutes", 10)
	viper.SetDefault("schedule.max_block_minutes", 15)

	viper.SetDefault("notify.enabled", false)
	viper.SetDefault("notify.receive_id_type", "chat_id")

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("extraction.api_key", "OPENAI_API_KEY")
	viper.BindEnv("notify.app_id", "LARK_APP_ID")
	viper.BindEnv("notify.app_secret", "LARK_APP_SECRET")
	viper.BindEnv("notify.receive_id", "LARK_RECEIVE_ID")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Extraction.APIKey == "" {
		return fmt.Errorf("extraction.api_key is required")
	}

	if c.Policy.MaxReceiptAgeDays <= 0 {
		return fmt.Errorf("policy.max_receipt_age_days must be positive")
	}

	if c.Schedule.MinBlockMinutes <= 0 || c.Schedule.MaxBlockMinutes < c.Schedule.MinBlockMinutes {
		return fmt.Errorf("schedule block minutes must satisfy 0 < min <= max (min: %d, max: %d)",
			c.Schedule.MinBlockMinutes, c.Schedule.MaxBlockMinutes)
	}

	if c.Notify.Enabled {
		if c.Notify.AppID == "" || c.Notify.AppSecret == "" {
			return fmt.Errorf("notify.app_id and notify.app_secret are required when notify is enabled")
		}
		if c.Notify.ReceiveID == "" {
			return fmt.Errorf("notify.receive_id is required when notify is enabled")
		}
	}

	return nil
}
