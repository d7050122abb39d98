package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/seo-optimizer/seoaudit/analyzer"
)

// Environment variables read by Load.
const (
	EnvConfigFile   = "SEOAUDIT_CONFIG"
	EnvPort         = "PORT"
	EnvGinMode      = "GIN_MODE"
	EnvDevMode      = "DEV_MODE"
	EnvDataDir      = "SEOAUDIT_DATA_DIR"
	EnvUserAgent    = "SEOAUDIT_USER_AGENT"
	EnvFetchTimeout = "SEOAUDIT_FETCH_TIMEOUT"
	EnvProbeTimeout = "SEOAUDIT_PROBE_TIMEOUT"
	EnvLogLevel     = "SEOAUDIT_LOG_LEVEL"
)

// Options holds all configuration for audits and the API server.
type Options struct {
	// Audit
	UserAgent    string        `yaml:"user_agent"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// Output
	OutputFile   string `yaml:"output"`
	OutputFormat string `yaml:"format"`
	NoColor      bool   `yaml:"no_color"`
	LogLevel     string `yaml:"log_level"`

	// Server
	Port      string  `yaml:"port"`
	GinMode   string  `yaml:"gin_mode"`
	DevMode   bool    `yaml:"dev_mode"`
	DataDir   string  `yaml:"data_dir"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second per client
	RateBurst int     `yaml:"rate_burst"`
}

// Default returns the built-in configuration.
func Default() Options {
	return Options{
		UserAgent:    analyzer.DefaultUserAgent,
		FetchTimeout: analyzer.DefaultFetchTimeout,
		ProbeTimeout: analyzer.DefaultProbeTimeout,
		OutputFormat: "md",
		LogLevel:     "info",
		Port:         "8082",
		GinMode:      "release",
		DataDir:      "data",
		RateLimit:    2,
		RateBurst:    5,
	}
}

// LoadEnvFiles loads .env.development, falling back to .env. Variables
// already set in the environment win. It reports whether a file was found.
func LoadEnvFiles() bool {
	if err := godotenv.Load(".env.development"); err == nil {
		return true
	}
	return godotenv.Load() == nil
}

// Load builds the configuration from the defaults, the YAML file at path (or
// the one named by SEOAUDIT_CONFIG) and the environment, in that order.
func Load(path string) (Options, error) {
	opts := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := opts.mergeFile(path); err != nil {
			return opts, err
		}
	}
	if err := opts.mergeEnv(); err != nil {
		return opts, err
	}
	return opts, nil
}

func (o *Options) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, o); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (o *Options) mergeEnv() error {
	if v := os.Getenv(EnvPort); v != "" {
		o.Port = v
	}
	if v := os.Getenv(EnvGinMode); v != "" {
		o.GinMode = v
	}
	if v := os.Getenv(EnvDevMode); v != "" {
		o.DevMode = v == "true"
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		o.DataDir = v
	}
	if v := os.Getenv(EnvUserAgent); v != "" {
		o.UserAgent = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		o.LogLevel = v
	}

	var errs []error
	for name, target := range map[string]*time.Duration{
		EnvFetchTimeout: &o.FetchTimeout,
		EnvProbeTimeout: &o.ProbeTimeout,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		d, err := parseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		*target = d
	}
	return errors.Join(errs...)
}

// parseDuration accepts Go durations and plain seconds.
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}

// Validate checks values that cannot be fixed up silently.
func (o Options) Validate() error {
	if o.FetchTimeout <= 0 || o.ProbeTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	switch o.OutputFormat {
	case "md", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (want md, json or yaml)", o.OutputFormat)
	}
	if o.RateLimit <= 0 || o.RateBurst < 1 {
		return errors.New("rate limit and burst must be positive")
	}
	return nil
}
