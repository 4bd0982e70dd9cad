package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

const fullYAML = `
database:
  driver: mysql
  host: 10.0.0.5
  port: 3307
  user: support
  password: hunter2
  name: helpdesk

api:
  port: 9090
  cors_origins: ["https://support.example.com"]

scheduler:
  interval: 5m
  stale_after: 45m
  penalty: 1.5

redis:
  url: redis://localhost:6379/0
  lock_ttl: 2m

notify:
  slack:
    bot_token: xoxb-1
    channel_id: C123
  discord:
    bot_token: abc

log:
  level: debug
  format: json

seed:
  customers:
    - email: carol@example.com
      first_name: Carol
  agents:
    - email: dave@example.com
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Host != "10.0.0.5" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "10.0.0.5")
	}
	if cfg.Database.Port != 3307 {
		t.Errorf("Database.Port = %d, want 3307", cfg.Database.Port)
	}
	if cfg.Database.User != "support" || cfg.Database.Password != "hunter2" {
		t.Errorf("Database credentials = %q/%q", cfg.Database.User, cfg.Database.Password)
	}
	if cfg.Database.Name != "helpdesk" {
		t.Errorf("Database.Name = %q, want helpdesk", cfg.Database.Name)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if len(cfg.API.CORSOrigins) != 1 {
		t.Errorf("len(API.CORSOrigins) = %d, want 1", len(cfg.API.CORSOrigins))
	}
	if cfg.Scheduler.Interval != 5*time.Minute {
		t.Errorf("Scheduler.Interval = %s, want 5m", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.StaleAfter != 45*time.Minute {
		t.Errorf("Scheduler.StaleAfter = %s, want 45m", cfg.Scheduler.StaleAfter)
	}
	if cfg.Scheduler.Penalty != 1.5 {
		t.Errorf("Scheduler.Penalty = %v, want 1.5", cfg.Scheduler.Penalty)
	}
	if cfg.Redis.LockTTL != 2*time.Minute {
		t.Errorf("Redis.LockTTL = %s, want 2m", cfg.Redis.LockTTL)
	}
	if cfg.Redis.LockKey != "switchboard:scheduler" {
		t.Errorf("Redis.LockKey = %q, want default", cfg.Redis.LockKey)
	}
	if !cfg.Notify.Slack.Enabled() {
		t.Error("slack should be enabled")
	}
	if cfg.Notify.Discord.Enabled() {
		t.Error("discord without channel should be disabled")
	}
	if len(cfg.Seed.Customers) != 1 || cfg.Seed.Customers[0].FirstName != "Carol" {
		t.Errorf("Seed.Customers = %+v", cfg.Seed.Customers)
	}
	if len(cfg.Seed.Agents) != 1 {
		t.Errorf("len(Seed.Agents) = %d, want 1", len(cfg.Seed.Agents))
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Driver != "mysql" {
		t.Errorf("Database.Driver = %q, want mysql", cfg.Database.Driver)
	}
	if cfg.Database.Host != "127.0.0.1" {
		t.Errorf("Database.Host = %q, want 127.0.0.1", cfg.Database.Host)
	}
	if cfg.Database.Port != 3306 {
		t.Errorf("Database.Port = %d, want 3306", cfg.Database.Port)
	}
	if cfg.Database.Name != "switchboard" {
		t.Errorf("Database.Name = %q, want switchboard", cfg.Database.Name)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want 8080", cfg.API.Port)
	}
	if cfg.Scheduler.Interval != 30*time.Minute {
		t.Errorf("Scheduler.Interval = %s, want 30m", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.StaleAfter != 30*time.Minute {
		t.Errorf("Scheduler.StaleAfter = %s, want 30m", cfg.Scheduler.StaleAfter)
	}
	if cfg.Scheduler.Penalty != 0.5 {
		t.Errorf("Scheduler.Penalty = %v, want 0.5", cfg.Scheduler.Penalty)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want info/text", cfg.Log)
	}
}

func TestParse_SQLiteDefaults(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  driver: sqlite\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Path != "switchboard.db" {
		t.Errorf("Database.Path = %q, want switchboard.db", cfg.Database.Path)
	}
	if cfg.Database.Host != "" {
		t.Errorf("Database.Host = %q, want empty for sqlite", cfg.Database.Host)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad driver", "database:\n  driver: oracle\n", "database.driver"},
		{"negative penalty", "scheduler:\n  penalty: -1\n", "scheduler.penalty"},
		{"bad cron", "scheduler:\n  cron: \"not a cron\"\n", "scheduler.cron"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"bad format", "log:\n  format: xml\n", "log.format"},
		{"port range", "api:\n  port: 70000\n", "api.port"},
		{"seed without email", "seed:\n  agents:\n    - first_name: X\n", "seed.agents[0].email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err, tt.want)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("database: [unterminated"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("error = %q", err)
	}
}

func TestParse_ValidCron(t *testing.T) {
	cfg, err := Parse([]byte("scheduler:\n  cron: \"*/15 * * * *\"\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Scheduler.Cron != "*/15 * * * *" {
		t.Errorf("Scheduler.Cron = %q", cfg.Scheduler.Cron)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "switchboard.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Name != "helpdesk" {
		t.Errorf("Database.Name = %q", cfg.Database.Name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q", err)
	}
}

func TestNewLogger(t *testing.T) {
	cfg, err := Parse([]byte("log:\n  level: warn\n  format: json\n"))
	if err != nil {
		t.Fatal(err)
	}
	logger := cfg.NewLogger()
	if logger.GetLevel() != logrus.WarnLevel {
		t.Errorf("level = %s, want warn", logger.GetLevel())
	}
	if _, ok := logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter = %T, want JSONFormatter", logger.Formatter)
	}
}
