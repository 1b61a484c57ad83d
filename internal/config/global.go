// Package config handles refmend's global configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matsen/refmend/internal/lookup"
)

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "refmend"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
	// CacheFile is the default lookup cache file name.
	CacheFile = "lookups.db"

	// EnvMailto overrides the mailto key.
	EnvMailto = "REFMEND_MAILTO"
	// EnvCache overrides the cache_path key.
	EnvCache = "REFMEND_CACHE"
)

// Config represents configuration stored in ~/.config/refmend/config.yml.
// Zero values mean "use the default".
type Config struct {
	Mailto         string        `yaml:"mailto,omitempty"`
	CrossrefURL    string        `yaml:"crossref_url,omitempty"`
	OpenLibraryURL string        `yaml:"openlibrary_url,omitempty"`
	MaxRetries     int           `yaml:"max_retries,omitempty"`
	RetryDelay     time.Duration `yaml:"retry_delay,omitempty"`
	RequestDelay   time.Duration `yaml:"request_delay,omitempty"`
	Timeout        time.Duration `yaml:"timeout,omitempty"`
	CachePath      string        `yaml:"cache_path,omitempty"`
}

// configCache caches the loaded config.
var configCache *Config

// Path returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/refmend/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir, ConfigFile)
}

// DefaultCachePath returns where the lookup cache lives when cache_path is
// not set.
func DefaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ConfigDir, CacheFile)
	}
	return filepath.Join(dir, ConfigDir, CacheFile)
}

// Load loads the config file at Path.
// Returns an empty config (not an error) if the file doesn't exist.
func Load() (*Config, error) {
	if configCache != nil {
		return configCache, nil
	}

	path := Path()
	if path == "" {
		return &Config{}, nil
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	configCache = cfg
	return cfg, nil
}

// LoadFile loads the config file at path, returning an empty config when
// the file doesn't exist.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.CachePath != "" {
		cfg.CachePath = ExpandPath(cfg.CachePath)
	}
	return &cfg, nil
}

// ResetCache clears the cached config.
// Useful for testing.
func ResetCache() {
	configCache = nil
}

// Save writes the config to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Resolved returns a copy with environment overrides and defaults applied.
func (c Config) Resolved() Config {
	if v := os.Getenv(EnvMailto); v != "" {
		c.Mailto = v
	}
	if v := os.Getenv(EnvCache); v != "" {
		c.CachePath = ExpandPath(v)
	}

	if c.CrossrefURL == "" {
		c.CrossrefURL = lookup.DefaultCrossrefURL
	}
	if c.OpenLibraryURL == "" {
		c.OpenLibraryURL = lookup.DefaultOpenLibraryURL
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = lookup.DefaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = lookup.DefaultRetryDelay
	}
	if c.RequestDelay <= 0 {
		c.RequestDelay = lookup.DefaultRequestDelay
	}
	if c.Timeout <= 0 {
		c.Timeout = lookup.DefaultTimeout
	}
	if c.CachePath == "" {
		c.CachePath = DefaultCachePath()
	}
	return c
}

// ClientOptions converts the config into lookup client options.
func (c Config) ClientOptions() []lookup.ClientOption {
	return []lookup.ClientOption{
		lookup.WithCrossrefURL(c.CrossrefURL),
		lookup.WithOpenLibraryURL(c.OpenLibraryURL),
		lookup.WithMailto(c.Mailto),
		lookup.WithRetries(c.MaxRetries, c.RetryDelay),
		lookup.WithRequestDelay(c.RequestDelay),
		lookup.WithTimeout(c.Timeout),
	}
}

// Keys lists the settable configuration keys.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

var fields = map[string]field{
	"mailto": {
		get: func(c *Config) string { return c.Mailto },
		set: func(c *Config, v string) error { c.Mailto = v; return nil },
	},
	"crossref_url": {
		get: func(c *Config) string { return c.CrossrefURL },
		set: func(c *Config, v string) error { return setURL(&c.CrossrefURL, v) },
	},
	"openlibrary_url": {
		get: func(c *Config) string { return c.OpenLibraryURL },
		set: func(c *Config, v string) error { return setURL(&c.OpenLibraryURL, v) },
	},
	"max_retries": {
		get: func(c *Config) string { return formatInt(c.MaxRetries) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid max_retries: %s (want a positive integer)", v)
			}
			c.MaxRetries = n
			return nil
		},
	},
	"retry_delay": {
		get: func(c *Config) string { return formatDuration(c.RetryDelay) },
		set: func(c *Config, v string) error { return setDuration(&c.RetryDelay, "retry_delay", v) },
	},
	"request_delay": {
		get: func(c *Config) string { return formatDuration(c.RequestDelay) },
		set: func(c *Config, v string) error { return setDuration(&c.RequestDelay, "request_delay", v) },
	},
	"timeout": {
		get: func(c *Config) string { return formatDuration(c.Timeout) },
		set: func(c *Config, v string) error { return setDuration(&c.Timeout, "timeout", v) },
	},
	"cache_path": {
		get: func(c *Config) string { return c.CachePath },
		set: func(c *Config, v string) error { c.CachePath = ExpandPath(v); return nil },
	},
}

// NormalizeKey converts key formats (cache-path, Cache_Path) to the YAML
// key form.
func NormalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "-", "_")
}

// Get returns the value stored for key.
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[NormalizeKey(key)]
	if !ok {
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
	return f.get(c), nil
}

// Set validates value and stores it under key.
func (c *Config) Set(key, value string) error {
	f, ok := fields[NormalizeKey(key)]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return f.set(c, strings.TrimSpace(value))
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}

func setURL(dst *string, v string) error {
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL: %s", v)
	}
	*dst = strings.TrimRight(v, "/")
	return nil
}

func setDuration(dst *time.Duration, key, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fmt.Errorf("invalid %s: %s (want a duration such as 1s or 500ms)", key, v)
	}
	*dst = d
	return nil
}

func formatInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}
