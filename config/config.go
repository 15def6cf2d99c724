package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/k1LoW/expand"
)

var (
	homePath       string
	configHomePath string
	stateHomePath  string
)

const (
	defaultListen   = ":8080"
	defaultTimeout  = 10 * time.Second
	defaultTimezone = "America/Los_Angeles"
)

type Config struct {
	// address the server listens on
	Listen string `yaml:"listen,omitempty" json:"listen,omitempty"`
	// time zone the post date is shown in
	Timezone string `yaml:"timezone,omitempty" json:"timezone,omitempty"`
	// deadline for every outbound call, e.g. "10s"
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// number of retries for outbound calls (0 = no retry)
	RetryMax int `yaml:"retryMax,omitempty" json:"retryMax,omitempty"`
	// number of rendered cards kept in memory
	CacheSize int `yaml:"cacheSize,omitempty" json:"cacheSize,omitempty"`
	// path of an additional JSON log file
	LogFile    string      `yaml:"logFile,omitempty" json:"logFile,omitempty"`
	API        API         `yaml:"api,omitempty" json:"api,omitempty"`
	Oracle     Oracle      `yaml:"oracle,omitempty" json:"oracle,omitempty"`
	Layout     Layout      `yaml:"layout,omitempty" json:"layout,omitempty"`
	ColorRules []ColorRule `yaml:"colorRules,omitempty" json:"colorRules,omitempty"`
}

// API configures access to the post API.
type API struct {
	BaseURL      string   `yaml:"baseURL,omitempty" json:"baseURL,omitempty"`
	ClientID     string   `yaml:"clientID,omitempty" json:"clientID,omitempty"`
	ClientSecret string   `yaml:"clientSecret,omitempty" json:"clientSecret,omitempty"`
	TokenURL     string   `yaml:"tokenURL,omitempty" json:"tokenURL,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty" json:"scopes,omitempty"`
	Token        string   `yaml:"token,omitempty" json:"token,omitempty"`
	TokenFile    string   `yaml:"tokenFile,omitempty" json:"tokenFile,omitempty"`
}

// Oracle selects the text renderer.
type Oracle struct {
	Type     string `yaml:"type,omitempty" json:"type,omitempty"` // chart, local or command
	URL      string `yaml:"url,omitempty" json:"url,omitempty"`
	Command  string `yaml:"command,omitempty" json:"command,omitempty"`
	MaxWidth int    `yaml:"maxWidth,omitempty" json:"maxWidth,omitempty"`
}

// Layout overrides card geometry. Zero values keep the defaults.
type Layout struct {
	Margin            *int   `yaml:"margin,omitempty" json:"margin,omitempty"`
	Padding           *int   `yaml:"padding,omitempty" json:"padding,omitempty"`
	LineHeight        int    `yaml:"lineHeight,omitempty" json:"lineHeight,omitempty"`
	CardWidth         int    `yaml:"cardWidth,omitempty" json:"cardWidth,omitempty"`
	MinWidth          int    `yaml:"minWidth,omitempty" json:"minWidth,omitempty"`
	DefaultBackground string `yaml:"defaultBackground,omitempty" json:"defaultBackground,omitempty"`
}

type ColorRule struct {
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"` // regular expression matched from the token start
	If      string `yaml:"if,omitempty" json:"if,omitempty"`           // CEL expression over `word`
	Color   string `yaml:"color" json:"color"`
}

func init() {
	var err error
	homePath, err = os.UserHomeDir()
	if err != nil {
		panic(fmt.Sprintf("failed to get home directory: %v", err))
	}
}

// Load loads the configuration from the config file.
// It searches for config files in the following order:
// 1. $XDG_CONFIG_HOME/postshot/config-{profile}.yml
// 2. $XDG_CONFIG_HOME/postshot/config.yml
// Environment variables in the file are expanded.
// If no config file is found, it returns a Config with defaults.
func Load(profile string) (*Config, error) {
	cfg := &Config{}
	p, ok := Path(profile)
	if ok {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(expand.ExpandenvYAMLBytes(b), cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}
	cfg.setDefaults()
	return cfg, nil
}

// Path returns the config file Load would read.
func Path(profile string) (string, bool) {
	var configBasePaths []string
	if profile != "" {
		configBasePaths = append(configBasePaths, filepath.Join(configPath(), fmt.Sprintf("config-%s", profile)))
	}
	configBasePaths = append(configBasePaths, filepath.Join(configPath(), "config"))
	for _, basePath := range configBasePaths {
		for _, ext := range []string{".yml", ".yaml"} {
			p := basePath + ext
			if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
				return p, true
			}
		}
	}
	return "", false
}

func (cfg *Config) setDefaults() {
	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	if cfg.Timezone == "" {
		cfg.Timezone = defaultTimezone
	}
	if cfg.Oracle.Type == "" {
		cfg.Oracle.Type = "chart"
	}
	if cfg.API.TokenFile == "" {
		cfg.API.TokenFile = filepath.Join(StateHomePath(), "token.json")
	}
}

// TimeoutDuration returns the per-call deadline.
func (cfg *Config) TimeoutDuration() (time.Duration, error) {
	if cfg.Timeout == "" {
		return defaultTimeout, nil
	}
	d, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", cfg.Timeout, err)
	}
	return d, nil
}

// Location returns the display time zone.
func (cfg *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return loc, nil
}

// configPath returns the path to the configuration directory.
func configPath() string {
	if configHomePath != "" {
		return configHomePath
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		configHomePath = filepath.Join(v, "postshot")
	} else {
		configHomePath = filepath.Join(homePath, ".config", "postshot")
	}
	return configHomePath
}

// StateHomePath returns the path to the state home directory.
func StateHomePath() string {
	if stateHomePath != "" {
		return stateHomePath
	}
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		stateHomePath = filepath.Join(v, "postshot")
	} else {
		stateHomePath = filepath.Join(homePath, ".local", "state", "postshot")
	}
	return stateHomePath
}
