// Package config содержит логику чтения конфигурации сервиса баллов.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса баллов.
type Config struct {
	RunAddress           string `env:"RUN_ADDRESS"`
	DatabaseURI          string `env:"DATABASE_URI"`
	UserDirectoryAddress string `env:"USER_DIRECTORY_ADDRESS"`
	AuthSecret           string `env:"AUTH_SECRET"`

	// DailyTimezone задаёт часовой пояс, по которому считаются суточные лимиты.
	DailyTimezone string `env:"DAILY_TZ" envDefault:"UTC"`

	TransferMinAmount  int64 `env:"TRANSFER_MIN_AMOUNT" envDefault:"1"`
	TransferMaxAmount  int64 `env:"TRANSFER_MAX_AMOUNT" envDefault:"10000"`
	TransferFee        int64 `env:"TRANSFER_FEE" envDefault:"0"`
	TransferDailyLimit int   `env:"TRANSFER_DAILY_LIMIT" envDefault:"20"`

	CheckinDailyLimit int `env:"CHECKIN_DAILY_LIMIT" envDefault:"1"`
	LotteryDailyLimit int `env:"LOTTERY_DAILY_LIMIT" envDefault:"10"`
	DiceDailyLimit    int `env:"DICE_DAILY_LIMIT" envDefault:"10"`
	RPSDailyLimit     int `env:"RPS_DAILY_LIMIT" envDefault:"10"`

	EnvelopeTTL   time.Duration `env:"ENVELOPE_TTL" envDefault:"24h"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

// DailyLimits возвращает потолки активностей по их видам.
func (c *Config) DailyLimits() map[string]int {
	return map[string]int{
		"checkin":  c.CheckinDailyLimit,
		"lottery":  c.LotteryDailyLimit,
		"dice":     c.DiceDailyLimit,
		"rps":      c.RPSDailyLimit,
		"transfer": c.TransferDailyLimit,
	}
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envUserDirAddress := cfg.UserDirectoryAddress
	envAuthSecret := cfg.AuthSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.UserDirectoryAddress, "u", "", "user directory address")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret for signing auth cookies")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envUserDirAddress != "" {
		cfg.UserDirectoryAddress = envUserDirAddress
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
