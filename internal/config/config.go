package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Business  BusinessConfig  `mapstructure:"business"`
	Health    HealthConfig    `mapstructure:"health"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type SchedulerConfig struct {
	Timezone string `mapstructure:"SCHEDULER_TIMEZONE"`
}

// BusinessConfig carries the identifier and underwriting constants.
type BusinessConfig struct {
	LoanIDPrefix     string        `mapstructure:"LOAN_ID_PREFIX"`
	TxnIDPrefix      string        `mapstructure:"TXN_ID_PREFIX"`
	NPLThresholdDays int           `mapstructure:"NPL_THRESHOLD_DAYS"`
	WeeksPerMonth    int           `mapstructure:"WEEKS_PER_MONTH"`
	TopOverdueLimit  int           `mapstructure:"TOP_OVERDUE_LIMIT"`
	ReportCacheTTL   time.Duration `mapstructure:"REPORT_CACHE_TTL"`
	ChartPalette     string        `mapstructure:"CHART_PALETTE"`
}

type HealthConfig struct {
	Timeout time.Duration `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_READ_TIMEOUT", "15s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SCHEDULER_TIMEZONE", "Asia/Jakarta")
	viper.SetDefault("LOAN_ID_PREFIX", "WLID-")
	viper.SetDefault("TXN_ID_PREFIX", "INV")
	viper.SetDefault("NPL_THRESHOLD_DAYS", 90)
	viper.SetDefault("WEEKS_PER_MONTH", 4)
	viper.SetDefault("TOP_OVERDUE_LIMIT", 5)
	viper.SetDefault("REPORT_CACHE_TTL", "5m")
	viper.SetDefault("CHART_PALETTE", "#4e73df,#1cc88a,#36b9cc,#f6c23e,#e74a3b,#858796")
	viper.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Business.LoanIDPrefix == "" {
		return fmt.Errorf("LOAN_ID_PREFIX is required")
	}

	if c.Business.TxnIDPrefix == "" {
		return fmt.Errorf("TXN_ID_PREFIX is required")
	}

	if c.Business.NPLThresholdDays <= 0 {
		return fmt.Errorf("NPL_THRESHOLD_DAYS must be greater than 0")
	}

	if c.Business.WeeksPerMonth <= 0 {
		return fmt.Errorf("WEEKS_PER_MONTH must be greater than 0")
	}

	if c.Business.TopOverdueLimit <= 0 {
		return fmt.Errorf("TOP_OVERDUE_LIMIT must be greater than 0")
	}

	if len(c.Palette()) == 0 {
		return fmt.Errorf("CHART_PALETTE must list at least one color")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// Palette returns the dashboard chart colors in cycling order.
func (c *Config) Palette() []string {
	parts := strings.Split(c.Business.ChartPalette, ",")
	colors := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			colors = append(colors, p)
		}
	}
	return colors
}
