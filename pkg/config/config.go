package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Refresh RefreshConfig `mapstructure:"refresh"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Logger  LoggerConfig  `mapstructure:"logger"`
}

type AppConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"` // e.g., "local", "prod"
}

type ScraperConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RefreshConfig struct {
	MajorInterval  time.Duration `mapstructure:"major_interval"`
	JitterInterval time.Duration `mapstructure:"jitter_interval"`
}

// RedisConfig controls the optional snapshot mirror. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// KafkaConfig controls the optional downstream tick feed. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level"`
	Env   string `mapstructure:"env"`
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Load .env into the process environment first so viper sees the values
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	v.SetDefault("app.port", ":3001")
	v.SetDefault("app.env", "local")

	v.SetDefault("scraper.base_url", "https://www.ilboursa.com")
	v.SetDefault("scraper.timeout", 15*time.Second)

	v.SetDefault("refresh.major_interval", 30*time.Second)
	v.SetDefault("refresh.jitter_interval", 5*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", time.Hour)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "market_ticks")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.env", "prod")

	// Map dot-notation keys to underscore env vars (e.g. "app.port" -> "APP_PORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Viper needs explicit binds to map flat env vars onto nested structs
	bindEnv(v, "app.port", "app.env")
	bindEnv(v, "scraper.base_url", "scraper.timeout")
	bindEnv(v, "refresh.major_interval", "refresh.jitter_interval")
	bindEnv(v, "redis.addr", "redis.password", "redis.db", "redis.ttl")
	bindEnv(v, "kafka.brokers", "kafka.topic")
	bindEnv(v, "logger.level", "logger.env")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %v", err)
	}

	if cfg.Refresh.MajorInterval <= 0 || cfg.Refresh.JitterInterval <= 0 {
		return nil, fmt.Errorf("refresh intervals must be positive")
	}
	if cfg.Scraper.BaseURL == "" {
		return nil, fmt.Errorf("scraper base_url cannot be empty")
	}

	return &cfg, nil
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
