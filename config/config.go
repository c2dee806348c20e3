package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Feed     FeedConfig     `yaml:"feed"`
	Station  StationConfig  `yaml:"station"`
	Night    NightConfig    `yaml:"night"`
	Database DatabaseConfig `yaml:"database"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// FeedConfig holds the upstream BlaBlaBus feed configuration.
type FeedConfig struct {
	URL            string        `yaml:"url"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// StationConfig describes the single station this instance serves.
type StationConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// MatchSubstrings are the lowercase substrings a stop name must all
	// contain to count as the target stop.
	MatchSubstrings []string `yaml:"match_substrings"`
	BrandID         string   `yaml:"brand_id"`
	BrandName       string   `yaml:"brand_name"`
}

// NightConfig controls the nightly snapshot jobs.
type NightConfig struct {
	SchedulerEnabled     bool          `yaml:"scheduler_enabled"`
	CheckIntervalSeconds int           `yaml:"check_interval_seconds"`
	CheckInterval        time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnv lets environment variables override file values. The upstream URL
// and station id were environment-provided in every deployment so far.
func (c *Config) applyEnv() {
	if v := os.Getenv("BLABLABUS_URL"); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv("BLABLABUS_STATION_ID"); v != "" {
		c.Station.ID = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 5000
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 10
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 5
	}

	if c.Feed.TimeoutSeconds <= 0 {
		c.Feed.TimeoutSeconds = 30
	}
	c.Feed.Timeout = time.Duration(c.Feed.TimeoutSeconds) * time.Second

	if c.Station.ID == "" {
		c.Station.ID = "default-station-id"
	}
	if c.Station.Name == "" {
		c.Station.Name = "Montpellier - Sabines Bus Station"
	}
	if len(c.Station.MatchSubstrings) == 0 {
		c.Station.MatchSubstrings = []string{"montpellier", "sabine"}
	}
	if c.Station.BrandID == "" {
		c.Station.BrandID = "blablabus-id"
	}
	if c.Station.BrandName == "" {
		c.Station.BrandName = "BlaBlaBus"
	}

	if c.Night.CheckIntervalSeconds <= 0 {
		c.Night.CheckIntervalSeconds = 600
	}
	c.Night.CheckInterval = time.Duration(c.Night.CheckIntervalSeconds) * time.Second
}
