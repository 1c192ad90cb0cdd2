package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"medication-adherence/internal/platform/clock"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DBDSN          string        `mapstructure:"DB_DSN"`
	DBMaxOpenConns int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	Timezone       string        `mapstructure:"TIMEZONE"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
	AppName   string `mapstructure:"APP_NAME"`

	JWTSecret string `mapstructure:"JWT_SECRET"`
	JWTIssuer string `mapstructure:"JWT_ISSUER"`

	RedisAddr string `mapstructure:"REDIS_ADDR"`

	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`
	KafkaGroupID string   `mapstructure:"KAFKA_GROUP_ID"`

	RolloverInterval     time.Duration `mapstructure:"ROLLOVER_INTERVAL"`
	RolloverLookbackDays int           `mapstructure:"ROLLOVER_LOOKBACK_DAYS"`
	RolloverWorkers      int           `mapstructure:"ROLLOVER_WORKERS"`

	RiskWindowDays int `mapstructure:"RISK_WINDOW_DAYS"`
}

var keys = []string{
	"PORT", "ENV", "DB_DSN", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "TIMEZONE", "REQUEST_TIMEOUT",
	"LOG_LEVEL", "LOG_FORMAT", "APP_NAME",
	"JWT_SECRET", "JWT_ISSUER",
	"REDIS_ADDR",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "KAFKA_GROUP_ID",
	"ROLLOVER_INTERVAL", "ROLLOVER_LOOKBACK_DAYS", "ROLLOVER_WORKERS",
	"RISK_WINDOW_DAYS",
}

// Load lee .env (si existe) y variables de entorno; el entorno gana.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("TIMEZONE", "Asia/Bangkok")
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("APP_NAME", "medication-adherence")
	v.SetDefault("KAFKA_TOPIC", "health-readings")
	v.SetDefault("KAFKA_GROUP_ID", "medication-adherence-readings")
	v.SetDefault("ROLLOVER_INTERVAL", "1h")
	v.SetDefault("ROLLOVER_LOOKBACK_DAYS", 1)
	v.SetDefault("ROLLOVER_WORKERS", 4)
	v.SetDefault("RISK_WINDOW_DAYS", 30)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env es opcional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// KAFKA_BROKERS llega como "host1:9092,host2:9092"
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if _, err := clock.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.RolloverInterval <= 0 {
		errs = append(errs, errors.New("ROLLOVER_INTERVAL must be positive"))
	}
	if c.RolloverLookbackDays < 1 {
		errs = append(errs, errors.New("ROLLOVER_LOOKBACK_DAYS must be >= 1"))
	}
	if c.RolloverWorkers < 1 {
		errs = append(errs, errors.New("ROLLOVER_WORKERS must be >= 1"))
	}
	if c.DBMaxOpenConns < 1 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS must be >= 1"))
	}
	if c.DBMaxIdleConns < 0 {
		errs = append(errs, errors.New("DB_MAX_IDLE_CONNS must be >= 0"))
	}
	if c.RiskWindowDays < 1 {
		errs = append(errs, errors.New("RISK_WINDOW_DAYS must be >= 1"))
	}
	if c.IsProduction() && strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	if len(c.KafkaBrokers) > 0 && strings.TrimSpace(c.KafkaTopic) == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location resuelve TIMEZONE; Validate ya garantizó que existe.
func (c *Config) Location() *time.Location {
	loc, err := clock.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) RiskWindow() time.Duration {
	return time.Duration(c.RiskWindowDays) * 24 * time.Hour
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
