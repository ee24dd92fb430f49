// Package config handles TOML/YAML configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/stockchat-proxy/config.toml",
	"configs/config.toml",
}

// reservedRoutes are the paths served by the proxy itself.
var reservedRoutes = []string{"/api/proxy", "/healthz", "/proxy/status"}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config     string `kong:"short='c',help='Path to TOML or YAML config file.',env='CONFIG_PATH'"`
	Host       string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port       int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	BackendURL string `kong:"help='Backend base URL (overrides config).',env='BACKEND_URL'"`
	LogLevel   string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Backend BackendConfig `toml:"backend" yaml:"backend"`
	CORS    CORSConfig    `toml:"cors" yaml:"cors"`
	Log     LogConfig     `toml:"log" yaml:"log"`
	Metrics MetricsConfig `toml:"metrics" yaml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host      string          `toml:"host" yaml:"host"`
	Port      int             `toml:"port" yaml:"port"` // 0 means "use default" (8000)
	BodyLimit string          `toml:"body_limit" yaml:"body_limit"`
	RateLimit RateLimitConfig `toml:"rate_limit" yaml:"rate_limit"`

	// BodyMaxBytes is BodyLimit parsed at load time.
	BodyMaxBytes int64 `toml:"-" yaml:"-"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled" yaml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second" yaml:"requests_per_second"`
}

// BackendConfig describes the backend the proxy forwards to.
type BackendConfig struct {
	BaseURL        string `toml:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// CORSConfig holds the values stamped into Access-Control-* response headers.
type CORSConfig struct {
	AllowOrigins []string `toml:"allow_origins" yaml:"allow_origins"`
	AllowMethods []string `toml:"allow_methods" yaml:"allow_methods"`
	AllowHeaders []string `toml:"allow_headers" yaml:"allow_headers"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

// Load reads the config file and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/stockchat-proxy/config.toml then configs/config.toml. If nothing is
// found, a backend URL from the CLI is enough to run on defaults.
func Load(cli *CLI) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfig()
	}

	var cfg Config
	switch {
	case path != "":
		if err := decodeFile(path, &cfg); err != nil {
			return nil, err
		}
		cfg.filePath = path
	case cli.BackendURL == "":
		return nil, fmt.Errorf("config: no config file found (searched %v) and no backend URL given", configSearchPaths)
	}

	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// decodeFile picks the decoder by file extension; anything that is not
// .yaml or .yml is read as TOML.
func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.BackendURL != "" {
		c.Backend.BaseURL = cli.BackendURL
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

// validate reports every problem at once rather than the first one found.
func (c *Config) validate() error {
	var errs error

	// Backend URL: required, http or https. The backend is typically HTTP-only.
	if c.Backend.BaseURL == "" {
		errs = multierr.Append(errs, errors.New("backend.base_url is required"))
	} else if u, err := url.Parse(c.Backend.BaseURL); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("backend.base_url is not a valid URL: %w", err))
	} else {
		if u.Scheme != "http" && u.Scheme != "https" {
			errs = multierr.Append(errs, fmt.Errorf("backend.base_url must use http or https; got %q", c.Backend.BaseURL))
		}
		if u.Host == "" {
			errs = multierr.Append(errs, fmt.Errorf("backend.base_url has no host; got %q", c.Backend.BaseURL))
		}
		if u.RawQuery != "" || u.Fragment != "" {
			errs = multierr.Append(errs, fmt.Errorf("backend.base_url must not carry a query or fragment; got %q", c.Backend.BaseURL))
		}
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port))
	}
	if c.Server.BodyLimit != "" {
		n, err := humanize.ParseBytes(c.Server.BodyLimit)
		switch {
		case err != nil:
			errs = multierr.Append(errs, fmt.Errorf("server.body_limit %q: %w", c.Server.BodyLimit, err))
		case n == 0:
			errs = multierr.Append(errs, fmt.Errorf("server.body_limit must be greater than zero; got %q", c.Server.BodyLimit))
		default:
			c.Server.BodyMaxBytes = int64(n)
		}
	}
	if c.Backend.TimeoutSeconds < 0 {
		errs = multierr.Append(errs, fmt.Errorf("backend.timeout_seconds must be non-negative; got %d", c.Backend.TimeoutSeconds))
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond))
	}

	// CORS origins: "*" or absolute origins.
	for _, o := range c.CORS.AllowOrigins {
		if o == "*" {
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Scheme == "" || u.Host == "" || (u.Path != "" && u.Path != "/") {
			errs = multierr.Append(errs, fmt.Errorf("cors.allow_origins entry %q must be \"*\" or scheme://host[:port]", o))
		}
	}

	// Log fields.
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		errs = multierr.Append(errs, fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "":
		// valid
	default:
		errs = multierr.Append(errs, fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format))
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			errs = multierr.Append(errs, fmt.Errorf("metrics.path must start with '/'; got %q", p))
		}
		for _, reserved := range reservedRoutes {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				errs = multierr.Append(errs, fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved))
			}
		}
	}

	return errs
}

// setDefaults fills zero-valued fields with sensible defaults.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyLimit = "10MB"
		c.Server.BodyMaxBytes = 10 * 1000 * 1000
	}
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 120
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if len(c.CORS.AllowOrigins) == 0 {
		c.CORS.AllowOrigins = []string{"*"}
	}
	if len(c.CORS.AllowMethods) == 0 {
		c.CORS.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(c.CORS.AllowHeaders) == 0 {
		c.CORS.AllowHeaders = []string{"Content-Type", "Authorization"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
