package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Blackout is a depot closure shown on every vehicle calendar
type Blackout struct {
	Title string    `yaml:"title"`
	Start time.Time `yaml:"start"`
	End   time.Time `yaml:"end"`
}

// Features switches creatable event categories on and off
type Features struct {
	Assignment  bool `yaml:"assignment"`
	Maintenance bool `yaml:"maintenance"`
}

// File is the optional YAML configuration file
type File struct {
	Features       Features   `yaml:"features"`
	Timezone       string     `yaml:"timezone"`
	WeekStart      string     `yaml:"week_start"`
	MaxDriverHours float64    `yaml:"max_driver_hours"`
	Blackouts      []Blackout `yaml:"blackouts"`
	SeedDemoData   *bool      `yaml:"seed_demo_data"`
}

// Config is the effective configuration
type Config struct {
	Port        string
	DatabaseURL string
	DataPath    string
	GinMode     string
	LogLevel    string
	APIURL      string
	HTTPTimeout time.Duration

	ReminderCron string

	Location       *time.Location
	WeekStart      time.Weekday
	Features       Features
	MaxDriverHours float64
	Blackouts      []Blackout
	SeedDemoData   bool
}

// LoadDotEnv loads the first .env found in the working directory or its parents.
func LoadDotEnv() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// FromEnv builds the configuration from environment variables and the YAML
// file named by CONFIG_FILE, if any.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:         getenv("PORT", "8000"),
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DataPath:     getenv("DATA_PATH", "fleet.db"),
		GinMode:      os.Getenv("GIN_MODE"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		APIURL:       strings.TrimRight(getenv("FLEET_API_URL", "http://localhost:8000"), "/"),
		ReminderCron: getenv("REMINDER_CRON", "*/15 * * * *"),
		WeekStart:    time.Monday,
		Features:     Features{Assignment: true, Maintenance: true},
		SeedDemoData: true,
	}

	timeoutSec, err := strconv.Atoi(getenv("HTTP_TIMEOUT_SECONDS", "15"))
	if err != nil || timeoutSec < 1 {
		return Config{}, fmt.Errorf("invalid HTTP_TIMEOUT_SECONDS")
	}
	cfg.HTTPTimeout = time.Duration(timeoutSec) * time.Second

	tz := getenv("TIMEZONE", "UTC")
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cfg.apply(f); err != nil {
			return Config{}, err
		}
		if f.Timezone != "" && os.Getenv("TIMEZONE") == "" {
			tz = f.Timezone
		}
	}

	cfg.Location, err = time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("TIMEZONE: %w", err)
	}
	return cfg, nil
}

// LoadFile reads a YAML configuration file. Keys left out keep their
// defaults; a missing file yields the defaults and no error.
func LoadFile(path string) (File, error) {
	f := File{Features: Features{Assignment: true, Maintenance: true}}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f, nil
		}
		return f, err
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, err
	}
	return f, nil
}

func (c *Config) apply(f File) error {
	c.Features = f.Features
	c.MaxDriverHours = f.MaxDriverHours
	if f.SeedDemoData != nil {
		c.SeedDemoData = *f.SeedDemoData
	}

	switch strings.ToLower(f.WeekStart) {
	case "", "monday":
		c.WeekStart = time.Monday
	case "sunday":
		c.WeekStart = time.Sunday
	default:
		return fmt.Errorf("week_start must be monday or sunday, got %q", f.WeekStart)
	}

	for i, b := range f.Blackouts {
		if b.End.Before(b.Start) {
			return fmt.Errorf("blackout %d (%s): end before start", i, b.Title)
		}
	}
	c.Blackouts = f.Blackouts
	return nil
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
