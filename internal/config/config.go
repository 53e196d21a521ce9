package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources Sources `yaml:"sources"`
	Catalog Catalog `yaml:"catalog"`
	Ranking Ranking `yaml:"ranking"`
	Output  Output  `yaml:"output"`
	Server  Server  `yaml:"server"`
}

// Sources locates the two raw dump files.
type Sources struct {
	VisitsTSV    string `yaml:"visits_tsv"`
	DownloadsTSV string `yaml:"downloads_tsv"`
}

// Catalog configures the data.gouv.fr metadata API client.
type Catalog struct {
	BaseURL          string `yaml:"base_url"`
	RequestTimeoutMS int    `yaml:"request_timeout_ms"`
	RateLimitMS      int    `yaml:"rate_limit_ms"`
	CacheTTLDays     int    `yaml:"cache_ttl_days"`
}

// Ranking configures the top-N computation.
type Ranking struct {
	TopN int `yaml:"top_n"`
	// AllTimeStart is the first month the dumps cover; the allTime
	// window and the empty-data start date both anchor here.
	AllTimeStart string `yaml:"all_time_start"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

// ConfigDir returns the XDG config directory for dumpstats.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "dumpstats")
}

// CacheDir returns the XDG data directory holding the metadata cache.
func CacheDir() string {
	return filepath.Join(homeDir(), ".local", "share", "dumpstats")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/dumpstats/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'dumpstats init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Sources: Sources{
			VisitsTSV:    filepath.Join(homeDir(), "Downloads", "visits_datasets.tsv"),
			DownloadsTSV: filepath.Join(homeDir(), "Downloads", "visits_resources.tsv"),
		},
		Catalog: Catalog{
			BaseURL:          "https://www.data.gouv.fr/api/1",
			RequestTimeoutMS: 10_000,
			RateLimitMS:      100,
			CacheTTLDays:     30,
		},
		Ranking: Ranking{
			TopN:         100,
			AllTimeStart: "2022-07",
		},
		Output: Output{
			DataDir: filepath.Join("public", "data"),
		},
		Server: Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Sources.VisitsTSV = expandHome(cfg.Sources.VisitsTSV)
	cfg.Sources.DownloadsTSV = expandHome(cfg.Sources.DownloadsTSV)
	cfg.Output.DataDir = expandHome(cfg.Output.DataDir)

	return cfg, nil
}

// expandHome resolves a leading ~/ against the user's home directory.
func expandHome(path string) string {
	if len(path) >= 2 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// RequestTimeout returns the catalog per-request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Catalog.RequestTimeoutMS) * time.Millisecond
}

// RateLimitDelay returns the delay inserted between catalog requests.
func (c *Config) RateLimitDelay() time.Duration {
	return time.Duration(c.Catalog.RateLimitMS) * time.Millisecond
}

// CacheTTL returns how long cached metadata stays fresh.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Catalog.CacheTTLDays) * 24 * time.Hour
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
