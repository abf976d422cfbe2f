package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"wheres-my-lunch/internal/week"
)

// Config is loaded once at startup from a YAML file; secrets and
// connection details can be overridden through environment variables so
// the file can be committed without credentials.
type Config struct {
	Telegram  Telegram  `yaml:"telegram"`
	Company   string    `yaml:"company"`
	ExportDir string    `yaml:"export_dir"`
	Timezone  string    `yaml:"timezone"`
	Deadline  Deadline  `yaml:"deadline"`
	Database  *Database `yaml:"database"`
	RabbitMQ  *RabbitMQ `yaml:"rabbitmq"`
}

type Telegram struct {
	Token   string `yaml:"token"`
	AdminID int64  `yaml:"admin_id"`
}

// Deadline is the weekly ordering cutoff. Weekday is an English weekday
// name, case-insensitive.
type Deadline struct {
	Weekday string `yaml:"weekday"`
	Hour    int    `yaml:"hour"`
	Minute  int    `yaml:"minute"`
}

type Database struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMQ struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Company:   "GORA",
		ExportDir: "exports",
		Timezone:  "Europe/Moscow",
		Deadline:  Deadline{Weekday: "friday", Hour: 16},
		Database:  &Database{Host: "localhost", Port: 5432},
		RabbitMQ:  &RabbitMQ{Host: "localhost", Port: 5672, VHost: "/"},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()

	if cfg.Telegram.Token == "" {
		return nil, fmt.Errorf("telegram token is not set (telegram.token or BOT_TOKEN)")
	}
	if _, ok := weekdays[strings.ToLower(cfg.Deadline.Weekday)]; !ok {
		return nil, fmt.Errorf("unknown deadline weekday %q", cfg.Deadline.Weekday)
	}
	if cfg.Deadline.Hour < 0 || cfg.Deadline.Hour > 23 || cfg.Deadline.Minute < 0 || cfg.Deadline.Minute > 59 {
		return nil, fmt.Errorf("deadline time %02d:%02d is out of range", cfg.Deadline.Hour, cfg.Deadline.Minute)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Telegram.Token = getEnv("BOT_TOKEN", c.Telegram.Token)
	if v := os.Getenv("ADMIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.AdminID = id
		}
	}

	c.Database.Host = getEnv("POSTGRES_HOST", c.Database.Host)
	c.Database.User = getEnv("POSTGRES_USER", c.Database.User)
	c.Database.Password = getEnv("POSTGRES_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("POSTGRES_DBNAME", c.Database.Database)
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}

	c.RabbitMQ.Host = getEnv("RABBITMQ_HOST", c.RabbitMQ.Host)
	c.RabbitMQ.User = getEnv("RABBITMQ_USER", c.RabbitMQ.User)
	c.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", c.RabbitMQ.Password)
	if v := os.Getenv("RABBITMQ_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.RabbitMQ.Port = port
		}
	}
}

// WeekDeadline converts the configured cutoff into the resolver's form.
func (c *Config) WeekDeadline() week.Deadline {
	return week.Deadline{
		Weekday: weekdays[strings.ToLower(c.Deadline.Weekday)],
		Hour:    c.Deadline.Hour,
		Minute:  c.Deadline.Minute,
	}
}

// Location returns the timezone the deadline and the reminder schedule
// are evaluated in. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, _ := time.LoadLocation(c.Timezone)
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
