package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Meraki MerakiConfig `yaml:"meraki"`
	Poller PollerConfig `yaml:"poller"`
	Report ReportConfig `yaml:"report"`
}

// ServerConfig holds the local HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateBurst       int     `yaml:"rate_burst"`
}

// MerakiConfig holds the upstream Dashboard API configuration. The
// organization ID and API key may be given inline or via a file path; the
// file is read only when the inline value is empty.
type MerakiConfig struct {
	BaseURL         string  `yaml:"base_url"`
	OrgID           string  `yaml:"org_id"`
	OrgIDFile       string  `yaml:"org_id_file"`
	APIKey          string  `yaml:"api_key"`
	APIKeyFile      string  `yaml:"api_key_file"`
	Network         string  `yaml:"network"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	FetchWorkers    int     `yaml:"fetch_workers"`
}

// PollerConfig holds the polling cadence configuration.
type PollerConfig struct {
	IntervalSeconds int           `yaml:"interval_seconds"`
	PenaltySeconds  int           `yaml:"penalty_seconds"`
	WindowMinutes   int           `yaml:"window_minutes"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
	Penalty         time.Duration `yaml:"-"`
	Window          time.Duration `yaml:"-"`
}

// ReportConfig holds the rendered report output configuration.
type ReportConfig struct {
	OutputFile string `yaml:"output_file"`
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

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied, used when no
// config file exists on disk.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateBurst <= 0 {
		cfg.Server.RateBurst = 5
	}

	if cfg.Meraki.BaseURL == "" {
		cfg.Meraki.BaseURL = "https://api.meraki.com/api/v1"
	}
	if cfg.Meraki.OrgIDFile == "" {
		cfg.Meraki.OrgIDFile = "org.txt"
	}
	if cfg.Meraki.APIKeyFile == "" {
		cfg.Meraki.APIKeyFile = "token.txt"
	}
	if cfg.Meraki.RateLimitPerSec <= 0 {
		cfg.Meraki.RateLimitPerSec = 8
	}
	if cfg.Meraki.FetchWorkers <= 0 {
		log.Printf("meraki.fetch_workers is not set or invalid; defaulting to 4")
		cfg.Meraki.FetchWorkers = 4
	}

	if cfg.Poller.IntervalSeconds <= 0 {
		cfg.Poller.IntervalSeconds = 60
	}
	if cfg.Poller.PenaltySeconds <= 0 {
		cfg.Poller.PenaltySeconds = 60
	}
	if cfg.Poller.WindowMinutes <= 0 {
		cfg.Poller.WindowMinutes = 10
	}
	cfg.Poller.Interval = time.Duration(cfg.Poller.IntervalSeconds) * time.Second
	cfg.Poller.Penalty = time.Duration(cfg.Poller.PenaltySeconds) * time.Second
	cfg.Poller.Window = time.Duration(cfg.Poller.WindowMinutes) * time.Minute

	if cfg.Report.OutputFile == "" {
		cfg.Report.OutputFile = "ap-utilization.html"
	}
}
