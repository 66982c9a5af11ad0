package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "LINKSTASH_"

// Config holds all configuration options for linkstash
type Config struct {
	// Page context: the browser that hosts the scanned page
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Auto-scroll timing
	Scroll ScrollConfig `yaml:"scroll" json:"scroll"`

	// Collection persistence
	Store StoreConfig `yaml:"store" json:"store"`

	Export ExportConfig `yaml:"export" json:"export"`

	// Local messenger bridge for `linkstash serve`
	Server ServerConfig `yaml:"server" json:"server"`

	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig controls how the page context is launched or attached
type BrowserConfig struct {
	Headless          bool          `yaml:"headless" json:"headless"`
	Bin               string        `yaml:"bin" json:"bin"`
	ControlURL        string        `yaml:"control_url" json:"control_url"`
	UserDataDir       string        `yaml:"user_data_dir" json:"user_data_dir"`
	Stealth           bool          `yaml:"stealth" json:"stealth"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	RetryAttempts     int           `yaml:"retry_attempts" json:"retry_attempts"`
}

// ScrollConfig holds the scroll driver and poll loop timings
type ScrollConfig struct {
	// WaitTime is the number of ticks between scroll actions
	WaitTime            int           `yaml:"wait_time" json:"wait_time"`
	QuietWindow         time.Duration `yaml:"quiet_window" json:"quiet_window"`
	TickInterval        time.Duration `yaml:"tick_interval" json:"tick_interval"`
	MaxScrollsPerSecond int           `yaml:"max_scrolls_per_second" json:"max_scrolls_per_second"`
	PollInterval        time.Duration `yaml:"poll_interval" json:"poll_interval"`
	PingTimeout         time.Duration `yaml:"ping_timeout" json:"ping_timeout"`
	// MaxDuration bounds a whole session; zero means no bound
	MaxDuration time.Duration `yaml:"max_duration" json:"max_duration"`
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	Path    string `yaml:"path" json:"path"`
}

// ExportConfig holds export defaults
type ExportConfig struct {
	Format    string `yaml:"format" json:"format"`
	Directory string `yaml:"directory" json:"directory"`
}

// ServerConfig holds the HTTP bridge settings
type ServerConfig struct {
	Listen            string `yaml:"listen" json:"listen"`
	MaxCommandsPerMin int    `yaml:"max_commands_per_minute" json:"max_commands_per_minute"`
	EventBuffer       int    `yaml:"event_buffer" json:"event_buffer"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	OnComplete bool `yaml:"on_complete" json:"on_complete"`
	OnError    bool `yaml:"on_error" json:"on_error"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	Format  string `yaml:"format" json:"format"`
	File    string `yaml:"file" json:"file"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:          true,
			Stealth:           true,
			NavigationTimeout: 30 * time.Second,
			RetryAttempts:     3,
		},
		Scroll: ScrollConfig{
			WaitTime:            1,
			QuietWindow:         2 * time.Second,
			TickInterval:        time.Second,
			MaxScrollsPerSecond: 2,
			PollInterval:        1500 * time.Millisecond,
			PingTimeout:         3 * time.Second,
		},
		Store: StoreConfig{
			Backend: "file",
		},
		Export: ExportConfig{
			Format:    "csv",
			Directory: ".",
		},
		Server: ServerConfig{
			Listen:            "127.0.0.1:7878",
			MaxCommandsPerMin: 600,
			EventBuffer:       256,
		},
		Notifications: NotificationConfig{
			Enabled:    true,
			OnComplete: true,
			OnError:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv loads configuration from LINKSTASH_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	envString("BROWSER_BIN", &c.Browser.Bin)
	envString("BROWSER_CONTROL_URL", &c.Browser.ControlURL)
	envString("BROWSER_USER_DATA_DIR", &c.Browser.UserDataDir)
	errs = append(errs,
		envBool("HEADLESS", &c.Browser.Headless),
		envBool("STEALTH", &c.Browser.Stealth),
		envInt("WAIT_TIME", &c.Scroll.WaitTime),
		envDuration("QUIET_WINDOW", &c.Scroll.QuietWindow),
		envDuration("TICK_INTERVAL", &c.Scroll.TickInterval),
		envInt("MAX_SCROLLS_PER_SECOND", &c.Scroll.MaxScrollsPerSecond),
		envDuration("PING_TIMEOUT", &c.Scroll.PingTimeout),
		envDuration("MAX_DURATION", &c.Scroll.MaxDuration),
		envBool("NOTIFICATIONS_ENABLED", &c.Notifications.Enabled),
	)

	envString("STORE_BACKEND", &c.Store.Backend)
	envString("STORE_PATH", &c.Store.Path)
	envString("EXPORT_FORMAT", &c.Export.Format)
	envString("EXPORT_DIR", &c.Export.Directory)
	envString("LISTEN", &c.Server.Listen)
	envString("LOG_LEVEL", &c.Logging.Level)
	envString("LOG_FORMAT", &c.Logging.Format)
	envString("LOG_FILE", &c.Logging.File)

	return errors.Join(errs...)
}

func envString(key string, dst *string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = b
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = d
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".linkstash.yaml",
		".linkstash.yml",
		filepath.Join(home, ".config", "linkstash", "config.yaml"),
		filepath.Join(home, ".config", "linkstash", "config.yml"),
		filepath.Join(home, ".linkstash.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Scroll.WaitTime < 0 {
		errs = append(errs, errors.New("scroll wait time cannot be negative"))
	}
	if c.Scroll.QuietWindow <= 0 {
		errs = append(errs, errors.New("quiet window must be positive"))
	}
	if c.Scroll.TickInterval <= 0 {
		errs = append(errs, errors.New("tick interval must be positive"))
	}
	if c.Scroll.MaxScrollsPerSecond <= 0 {
		errs = append(errs, errors.New("max scrolls per second must be positive"))
	}
	if c.Scroll.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	if c.Scroll.PingTimeout <= 0 {
		errs = append(errs, errors.New("ping timeout must be positive"))
	}
	if c.Scroll.MaxDuration < 0 {
		errs = append(errs, errors.New("max duration cannot be negative"))
	}

	if c.Browser.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("navigation timeout must be positive"))
	}
	if c.Browser.RetryAttempts < 1 {
		errs = append(errs, errors.New("browser retry attempts must be at least 1"))
	}

	validBackends := map[string]bool{"file": true, "bolt": true, "sqlite": true, "memory": true}
	if !validBackends[strings.ToLower(c.Store.Backend)] {
		errs = append(errs, fmt.Errorf("invalid store backend %q", c.Store.Backend))
	}

	validFormats := map[string]bool{"csv": true, "json": true}
	if !validFormats[strings.ToLower(c.Export.Format)] {
		errs = append(errs, fmt.Errorf("invalid export format %q", c.Export.Format))
	}

	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server listen address is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validLogFormats := map[string]bool{"console": true, "json": true}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags the user actually set should be present in the map.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-format"].(string); ok && v != "" {
		c.Logging.Format = v
	}
	if v, ok := flags["no-color"].(bool); ok && v {
		c.Logging.NoColor = true
	}
	if v, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = v
	}
	if v, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = v
	}
	if v, ok := flags["browser-url"].(string); ok && v != "" {
		c.Browser.ControlURL = v
	}
	if v, ok := flags["wait"].(int); ok && v >= 0 {
		c.Scroll.WaitTime = v
	}
	if v, ok := flags["quiet"].(time.Duration); ok && v > 0 {
		c.Scroll.QuietWindow = v
	}
	if v, ok := flags["max-duration"].(time.Duration); ok && v >= 0 {
		c.Scroll.MaxDuration = v
	}
	if v, ok := flags["store"].(string); ok && v != "" {
		c.Store.Backend = v
	}
	if v, ok := flags["store-path"].(string); ok && v != "" {
		c.Store.Path = v
	}
	if v, ok := flags["format"].(string); ok && v != "" {
		c.Export.Format = v
	}
	if v, ok := flags["listen"].(string); ok && v != "" {
		c.Server.Listen = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// godotenv never overrides variables that are already set
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".linkstash.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
