package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Discord   DiscordConfig   `yaml:"discord"`
	Notifier  NotifierConfig  `yaml:"notifier"`
	Redis     RedisConfig     `yaml:"redis"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	// DSN overrides the host/port/user fields when set
	DSN      string `yaml:"dsn"`
	LogLevel string `yaml:"log_level"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`
	GinMode string `yaml:"gin_mode"`
}

type DiscordConfig struct {
	Token string `yaml:"token"`
}

type NotifierConfig struct {
	Backend  string `yaml:"backend"`
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange"`
}

// RedisConfig is optional; an empty Addr keeps sweep locks in-process
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SchedulerConfig struct {
	Enabled              bool          `yaml:"enabled"`
	Timezone             string        `yaml:"timezone"`
	DeadlineCron         string        `yaml:"deadline_cron"`
	IssueWatchCron       string        `yaml:"issue_watch_cron"`
	WeeklyReportCron     string        `yaml:"weekly_report_cron"`
	UnattendedDays       int           `yaml:"unattended_days"`
	WarningCooldownHours int           `yaml:"warning_cooldown_hours"`
	LeadDays             []int         `yaml:"lead_days"`
	LockTTL              time.Duration `yaml:"lock_ttl"`
}

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	NotifierDiscord = "discord"
	NotifierAMQP    = "amqp"
	NotifierLog     = "log"
)

// Default returns the configuration used when nothing is configured
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:   DriverSQLite,
			Host:     "localhost",
			Port:     "3306",
			User:     "pmbot",
			Name:     "pmbot.db",
			LogLevel: "warn",
		},
		Server: ServerConfig{
			Addr:    ":8080",
			GinMode: "release",
		},
		Notifier: NotifierConfig{
			Backend:  NotifierLog,
			Exchange: "notifications",
		},
		Scheduler: SchedulerConfig{
			Enabled:              true,
			Timezone:             "Asia/Seoul",
			DeadlineCron:         "0 9 * * *",
			IssueWatchCron:       "0 */6 * * *",
			WeeklyReportCron:     "0 9 * * 1",
			UnattendedDays:       3,
			WarningCooldownHours: 6,
			LeadDays:             []int{7, 1},
			LockTTL:              30 * time.Minute,
		},
	}
}

// Load reads the optional YAML file at path, then applies environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.overrideFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overrideFromEnv() {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.DSN = getEnv("DB_DSN", c.Database.DSN)
	c.Database.LogLevel = getEnv("DB_LOG_LEVEL", c.Database.LogLevel)

	c.Server.Addr = getEnv("SERVER_ADDR", c.Server.Addr)
	c.Server.GinMode = getEnv("GIN_MODE", c.Server.GinMode)

	c.Discord.Token = getEnv("DISCORD_TOKEN", c.Discord.Token)

	c.Notifier.Backend = getEnv("NOTIFIER_BACKEND", c.Notifier.Backend)
	c.Notifier.AMQPURL = getEnv("AMQP_URL", c.Notifier.AMQPURL)
	c.Notifier.Exchange = getEnv("AMQP_EXCHANGE", c.Notifier.Exchange)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	if db, err := strconv.Atoi(getEnv("REDIS_DB", "")); err == nil {
		c.Redis.DB = db
	}

	c.Scheduler.Timezone = getEnv("SCHEDULER_TIMEZONE", c.Scheduler.Timezone)
	if enabled, err := strconv.ParseBool(getEnv("SCHEDULER_ENABLED", "")); err == nil {
		c.Scheduler.Enabled = enabled
	}
}

// Validate rejects settings the bot cannot run with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Notifier.Backend {
	case NotifierDiscord:
		if c.Discord.Token == "" {
			return errors.New("discord notifier requires a discord token")
		}
	case NotifierAMQP:
		if c.Notifier.AMQPURL == "" {
			return errors.New("amqp notifier requires an amqp url")
		}
	case NotifierLog:
	default:
		return fmt.Errorf("unsupported notifier backend %q", c.Notifier.Backend)
	}

	if _, err := c.Scheduler.Location(); err != nil {
		return err
	}
	if c.Scheduler.UnattendedDays <= 0 {
		return errors.New("scheduler.unattended_days must be positive")
	}
	if c.Scheduler.WarningCooldownHours <= 0 {
		return errors.New("scheduler.warning_cooldown_hours must be positive")
	}
	for _, lead := range c.Scheduler.LeadDays {
		if lead != 7 && lead != 1 {
			return fmt.Errorf("unsupported lead day %d: only 7 and 1 are tracked", lead)
		}
	}
	if c.Scheduler.LockTTL <= 0 {
		return errors.New("scheduler.lock_ttl must be positive")
	}

	return nil
}

// Location resolves the scheduler timezone
func (s SchedulerConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(s.Timezone))
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// WarningCooldown returns the issue warning cooldown as a duration
func (s SchedulerConfig) WarningCooldown() time.Duration {
	return time.Duration(s.WarningCooldownHours) * time.Hour
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
