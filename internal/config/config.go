// Package config provides YAML-based configuration loading for Switchboard.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the top-level Switchboard configuration, loaded from switchboard.yaml.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Redis     RedisConfig     `yaml:"redis"`
	Notify    NotifyConfig    `yaml:"notify"`
	Log       LogConfig       `yaml:"log"`
	Seed      SeedConfig      `yaml:"seed"`
}

// DatabaseConfig selects the store backend. Driver "mysql" uses Host/Port/User/
// Password/Name; driver "sqlite" uses Path.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
}

// APIConfig holds HTTP API settings.
type APIConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// SchedulerConfig controls the reassignment sweep. Interval and StaleAfter are
// independent: a request is reclaimed once it has been assigned for StaleAfter,
// checked every Interval (or on the Cron schedule when set).
type SchedulerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	Cron       string        `yaml:"cron"`
	StaleAfter time.Duration `yaml:"stale_after"`
	Penalty    float64       `yaml:"penalty"`
	Disabled   bool          `yaml:"disabled"`
}

// RedisConfig enables the cross-process scheduler lock when URL is set.
type RedisConfig struct {
	URL     string        `yaml:"url"`
	LockKey string        `yaml:"lock_key"`
	LockTTL time.Duration `yaml:"lock_ttl"`
}

// NotifyConfig holds optional chat alert targets.
type NotifyConfig struct {
	Slack   ChatConfig `yaml:"slack"`
	Discord ChatConfig `yaml:"discord"`
}

// ChatConfig is a bot token plus the channel alerts are posted to.
type ChatConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// Enabled reports whether both token and channel are configured.
func (c ChatConfig) Enabled() bool {
	return c.BotToken != "" && c.ChannelID != ""
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SeedConfig lists users created by `sb db init`.
type SeedConfig struct {
	Customers []SeedUser `yaml:"customers"`
	Agents    []SeedUser `yaml:"agents"`
}

// SeedUser is a user profile to seed.
type SeedUser struct {
	Email       string `yaml:"email"`
	FirstName   string `yaml:"first_name"`
	LastName    string `yaml:"last_name"`
	PhoneNumber string `yaml:"phone_number"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Name == "" {
			c.Database.Name = "switchboard"
		}
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "switchboard.db"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = 30 * time.Minute
	}
	if c.Scheduler.StaleAfter == 0 {
		c.Scheduler.StaleAfter = 30 * time.Minute
	}
	if c.Scheduler.Penalty == 0 {
		c.Scheduler.Penalty = 0.5
	}
	if c.Redis.LockKey == "" {
		c.Redis.LockKey = "switchboard:scheduler"
	}
	if c.Redis.LockTTL == 0 {
		c.Redis.LockTTL = 5 * time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (mysql, sqlite)", c.Database.Driver))
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port %d is out of range", c.API.Port))
	}
	if c.Scheduler.Interval < 0 {
		errs = append(errs, "scheduler.interval must be positive")
	}
	if c.Scheduler.StaleAfter < 0 {
		errs = append(errs, "scheduler.stale_after must be positive")
	}
	if c.Scheduler.Penalty < 0 {
		errs = append(errs, "scheduler.penalty must not be negative")
	}
	if c.Scheduler.Cron != "" {
		if _, err := cron.ParseStandard(c.Scheduler.Cron); err != nil {
			errs = append(errs, fmt.Sprintf("scheduler.cron: %v", err))
		}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("log.level: %v", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	for i, u := range c.Seed.Customers {
		if u.Email == "" {
			errs = append(errs, fmt.Sprintf("seed.customers[%d].email is required", i))
		}
	}
	for i, u := range c.Seed.Agents {
		if u.Email == "" {
			errs = append(errs, fmt.Sprintf("seed.agents[%d].email is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// NewLogger builds a logrus logger from the log section.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(c.Log.Level); err == nil {
		logger.SetLevel(lvl)
	}
	if c.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}
