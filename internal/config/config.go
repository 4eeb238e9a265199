package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds engine configuration
type Config struct {
	DBURL        string `mapstructure:"DB_URL"`
	RedisAddr    string `mapstructure:"REDIS_ADDR"`
	MQTTBroker   string `mapstructure:"MQTT_BROKER"`
	MQTTClientID string `mapstructure:"MQTT_CLIENT_ID"`
	LogLevel     string `mapstructure:"LOG_LEVEL"`

	// CooldownMs throttles re-firing of one auto-behavior rule instance
	CooldownMs int64 `mapstructure:"COOLDOWN_MS"`
	// ExecWindowSecs is the TTL on schedule execution dedupe markers
	ExecWindowSecs int `mapstructure:"EXEC_WINDOW_SECS"`
	// PollIntervalSecs is the schedule poller tick interval
	PollIntervalSecs int `mapstructure:"POLL_INTERVAL_SECS"`
}

// LoadConfig reads configuration from .env or environment variables
func LoadConfig() (*Config, error) {
	// .env is optional; environment variables still apply without it
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetDefault("MQTT_CLIENT_ID", "homeauto-engine")
	viper.SetDefault("COOLDOWN_MS", 30000)
	viper.SetDefault("EXEC_WINDOW_SECS", 90)
	viper.SetDefault("POLL_INTERVAL_SECS", 60)

	cfg := &Config{
		DBURL:            viper.GetString("DB_URL"),
		RedisAddr:        viper.GetString("REDIS_ADDR"),
		MQTTBroker:       viper.GetString("MQTT_BROKER"),
		MQTTClientID:     viper.GetString("MQTT_CLIENT_ID"),
		LogLevel:         viper.GetString("LOG_LEVEL"),
		CooldownMs:       viper.GetInt64("COOLDOWN_MS"),
		ExecWindowSecs:   viper.GetInt("EXEC_WINDOW_SECS"),
		PollIntervalSecs: viper.GetInt("POLL_INTERVAL_SECS"),
	}
	return cfg, cfg.validate()
}

// validate rejects boot without the required connections
func (c *Config) validate() error {
	if c.DBURL == "" {
		return fmt.Errorf("configuration error: DB_URL is required")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("configuration error: REDIS_ADDR is required")
	}
	if c.MQTTBroker == "" {
		return fmt.Errorf("configuration error: MQTT_BROKER is required")
	}
	return nil
}

// Cooldown returns the cooldown as a duration
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownMs) * time.Millisecond
}

// ExecWindow returns the dedupe marker TTL. Kept at or above one poll
// interval and bounded so markers never accumulate.
func (c *Config) ExecWindow() time.Duration {
	secs := c.ExecWindowSecs
	if secs < 60 {
		secs = 60
	}
	if secs > 600 {
		secs = 600
	}
	return time.Duration(secs) * time.Second
}

// PollInterval returns the schedule poller tick interval
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalSecs <= 0 {
		return time.Minute
	}
	return time.Duration(c.PollIntervalSecs) * time.Second
}
