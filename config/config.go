// Package config loads notehub settings from a .env file, an optional YAML
// file and NOTEHUB_* environment variables, in that order of precedence
// (later wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "NOTEHUB_"

// Config holds every setting of the server and the terminal client.
type Config struct {
	APIURL        string        `yaml:"api_url"`
	APIToken      string        `yaml:"api_token"`
	PerPage       int           `yaml:"per_page"`
	ListenAddr    string        `yaml:"listen_addr"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	TemplatesDir  string        `yaml:"templates_dir"`
	CachePath     string        `yaml:"cache_path"`
	CacheMaxAge   time.Duration `yaml:"cache_max_age"`
	StaleTime     time.Duration `yaml:"stale_time"`
	Debounce      time.Duration `yaml:"debounce"`
	ToastDuration time.Duration `yaml:"toast_duration"`
	LogLevel      string        `yaml:"log_level"`
}

// Default returns the built-in settings. APIURL has no default.
func Default() Config {
	return Config{
		PerPage:       12,
		ListenAddr:    ":8080",
		HTTPTimeout:   30 * time.Second,
		SessionTTL:    30 * time.Minute,
		CacheMaxAge:   24 * time.Hour,
		StaleTime:     30 * time.Second,
		Debounce:      400 * time.Millisecond,
		ToastDuration: 4 * time.Second,
		LogLevel:      "info",
	}
}

// Load builds the configuration. envFiles default to ".env"; a missing env
// file is not an error, a missing YAML file named explicitly is.
func Load(yamlPath string, envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables that are already set.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	cfg := Default()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"API_URL":       &c.APIURL,
		"API_TOKEN":     &c.APIToken,
		"LISTEN_ADDR":   &c.ListenAddr,
		"TEMPLATES_DIR": &c.TemplatesDir,
		"CACHE_PATH":    &c.CachePath,
		"LOG_LEVEL":     &c.LogLevel,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"HTTP_TIMEOUT":   &c.HTTPTimeout,
		"SESSION_TTL":    &c.SessionTTL,
		"CACHE_MAX_AGE":  &c.CacheMaxAge,
		"STALE_TIME":     &c.StaleTime,
		"DEBOUNCE":       &c.Debounce,
		"TOAST_DURATION": &c.ToastDuration,
	}
	for name, dst := range durations {
		v, ok := os.LookupEnv(envPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s%s: %w", envPrefix, name, err)
		}
		*dst = d
	}

	if v, ok := os.LookupEnv(envPrefix + "PER_PAGE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sPER_PAGE: %w", envPrefix, err)
		}
		c.PerPage = n
	}
	return nil
}

// Validate checks the settings every front end needs.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required (set %sAPI_URL)", envPrefix)
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_url %q is not an absolute URL", c.APIURL)
	}
	if c.PerPage < 1 {
		return fmt.Errorf("per_page must be positive, got %d", c.PerPage)
	}
	if c.Debounce < 0 || c.ToastDuration < 0 || c.HTTPTimeout < 0 || c.StaleTime < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level; unknown names mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
